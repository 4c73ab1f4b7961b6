package repository

import (
	"context"

	"github.com/jhoicas/sifen-dte/internal/domain/entity"
)

// EmitterRepository datos maestros del emisor y su timbrado vigente.
type EmitterRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Emitter, error)
}
