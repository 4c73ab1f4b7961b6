package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/internal/domain/repository"
)

var _ repository.EventRepository = (*EventRepo)(nil)

// EventRepo implementación de EventRepository (usable con pool o tx).
type EventRepo struct {
	q Querier
}

// NewEventRepository construye el adaptador.
func NewEventRepository(q Querier) *EventRepo {
	return &EventRepo{q: q}
}

const eventColumns = `id, document_id, cdc, reason, COALESCE(signed_xml, ''), COALESCE(response_code, ''),
	COALESCE(message, ''), status, attempts, created_at, updated_at`

// NextEventID reserva el siguiente Id de rEve desde la secuencia.
func (r *EventRepo) NextEventID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.q.QueryRow(ctx, `SELECT nextval('cancellation_event_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("next event id: %w", err)
	}
	return id, nil
}

// Create inserta el evento.
func (r *EventRepo) Create(ctx context.Context, ev *entity.CancellationEvent) error {
	now := time.Now().UTC()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now
	query := `
		INSERT INTO cancellation_events (id, document_id, cdc, reason, signed_xml, response_code, message,
		                                 status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		ev.ID, ev.DocumentID, ev.CDC, ev.Reason, nullIfEmpty(ev.SignedXML), nullIfEmpty(ev.ResponseCode),
		nullIfEmpty(ev.Message), ev.Status, ev.Attempts, ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if violatedConstraint(err) == "uq_cancellation_events_open" {
				return fmt.Errorf("%w: el documento %s ya tiene una cancelación abierta", domain.ErrInvalidTransition, ev.DocumentID)
			}
			return fmt.Errorf("%w: evento %d", domain.ErrDuplicate, ev.ID)
		}
		return fmt.Errorf("insert cancellation event: %w", err)
	}
	return nil
}

// Update persiste el resultado del envío.
func (r *EventRepo) Update(ctx context.Context, ev *entity.CancellationEvent) error {
	ev.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE cancellation_events
		SET signed_xml = $2, response_code = $3, message = $4, status = $5, attempts = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		ev.ID, nullIfEmpty(ev.SignedXML), nullIfEmpty(ev.ResponseCode), nullIfEmpty(ev.Message),
		ev.Status, ev.Attempts, ev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update cancellation event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: evento %d", domain.ErrNotFound, ev.ID)
	}
	return nil
}

// ListPending eventos aún no registrados con intentos disponibles.
func (r *EventRepo) ListPending(ctx context.Context, maxAttempts, limit int) ([]*entity.CancellationEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM cancellation_events
		WHERE status = 'PENDING' AND attempts < $1
		ORDER BY created_at LIMIT $2`
	return r.list(ctx, query, maxAttempts, limit)
}

// ListByDocument eventos del documento, el más reciente al final.
func (r *EventRepo) ListByDocument(ctx context.Context, documentID string) ([]*entity.CancellationEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM cancellation_events WHERE document_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, documentID)
}

func (r *EventRepo) list(ctx context.Context, query string, args ...any) ([]*entity.CancellationEvent, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cancellation events: %w", err)
	}
	defer rows.Close()

	var out []*entity.CancellationEvent
	for rows.Next() {
		var ev entity.CancellationEvent
		if err := rows.Scan(&ev.ID, &ev.DocumentID, &ev.CDC, &ev.Reason, &ev.SignedXML, &ev.ResponseCode,
			&ev.Message, &ev.Status, &ev.Attempts, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cancellation event: %w", err)
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}
