package billing

import (
	"sort"

	"github.com/jhoicas/sifen-dte/internal/domain/entity"
)

// ActionKind tipo de acción de un ciclo.
type ActionKind int

const (
	ActionSubmit ActionKind = iota + 1
	ActionCancel
	ActionPoll
)

func (k ActionKind) String() string {
	switch k {
	case ActionSubmit:
		return "submit"
	case ActionCancel:
		return "cancel"
	case ActionPoll:
		return "poll"
	default:
		return "unknown"
	}
}

// Action unidad de trabajo del despachador.
type Action struct {
	Kind     ActionKind
	Document *entity.FiscalDocument    // submit y poll
	Event    *entity.CancellationEvent // cancel
}

// Snapshot trabajo pendiente leído al inicio del ciclo.
type Snapshot struct {
	Dispatchable []*entity.FiscalDocument
	Events       []*entity.CancellationEvent
	Awaiting     []*entity.FiscalDocument
	Limit        int // tope por lista; 0 = sin tope
}

// Plan ordena el trabajo del ciclo: envíos (el más antiguo primero), luego eventos y por último consultas.
// No modifica el snapshot.
func Plan(s Snapshot) []Action {
	docs := make([]*entity.FiscalDocument, len(s.Dispatchable))
	copy(docs, s.Dispatchable)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].IssuedAt.Before(docs[j].IssuedAt)
	})

	events := make([]*entity.CancellationEvent, len(s.Events))
	copy(events, s.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})

	out := make([]Action, 0, len(docs)+len(events)+len(s.Awaiting))
	for _, d := range capped(docs, s.Limit) {
		out = append(out, Action{Kind: ActionSubmit, Document: d})
	}
	for _, ev := range capped(events, s.Limit) {
		out = append(out, Action{Kind: ActionCancel, Event: ev})
	}
	for _, d := range capped(s.Awaiting, s.Limit) {
		if d.BatchID == "" {
			continue
		}
		out = append(out, Action{Kind: ActionPoll, Document: d})
	}
	return out
}

func capped[T any](xs []T, limit int) []T {
	if limit > 0 && len(xs) > limit {
		return xs[:limit]
	}
	return xs
}
