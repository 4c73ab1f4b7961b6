package repository

import (
	"context"

	"github.com/jhoicas/sifen-dte/internal/domain/entity"
)

// EventRepository persistencia de eventos de cancelación.
type EventRepository interface {
	// NextEventID reserva el Id numérico del próximo rEve.
	NextEventID(ctx context.Context) (int64, error)
	Create(ctx context.Context, ev *entity.CancellationEvent) error
	Update(ctx context.Context, ev *entity.CancellationEvent) error
	ListPending(ctx context.Context, maxAttempts, limit int) ([]*entity.CancellationEvent, error)
	ListByDocument(ctx context.Context, documentID string) ([]*entity.CancellationEvent, error)
}
