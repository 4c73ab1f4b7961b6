// Package dte contiene las reglas de dominio del documento tributario electrónico:
// máquina de estados de transmisión, cálculo de totales y validaciones previas al armado del XML.
package dte

import (
	"fmt"

	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
)

// transitions lista las transiciones permitidas por estado de origen.
var transitions = map[entity.DocumentStatus][]entity.DocumentStatus{
	entity.StatusPending:   {entity.StatusSubmitted, entity.StatusAccepted, entity.StatusRejected},
	entity.StatusSubmitted: {entity.StatusAccepted, entity.StatusRejected, entity.StatusPending},
	entity.StatusAccepted:  {entity.StatusCancelled},
	entity.StatusRejected:  {entity.StatusPending},
}

// CanTransition indica si from -> to es válida.
// Pending -> Accepted/Rejected cubre la respuesta sincrónica; Submitted -> Pending la reencola un lote no procesado.
func CanTransition(from, to entity.DocumentStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition aplica la transición sobre el documento o devuelve ErrInvalidTransition.
func Transition(doc *entity.FiscalDocument, to entity.DocumentStatus) error {
	if !CanTransition(doc.Status, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, doc.Status, to)
	}
	doc.Status = to
	return nil
}

// IsTerminal indica si el estado ya no se reintenta automáticamente.
func IsTerminal(s entity.DocumentStatus) bool {
	return s == entity.StatusAccepted || s == entity.StatusRejected || s == entity.StatusCancelled
}
