package repository

import (
	"context"

	"github.com/jhoicas/sifen-dte/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia de documentos electrónicos y su bitácora.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.FiscalDocument) error
	// Update persiste los campos del pipeline (estado, CDC, XML, respuesta, intentos, errores).
	Update(ctx context.Context, doc *entity.FiscalDocument) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error)
	GetByCDC(ctx context.Context, cdc string) (*entity.FiscalDocument, error)
	// LockByID toma SELECT ... FOR UPDATE; solo tiene efecto dentro de una transacción.
	LockByID(ctx context.Context, id string) (*entity.FiscalDocument, error)
	// ListDispatchable devuelve documentos Pending (o Submitted por falla de conectividad)
	// con intentos < maxAttempts, solo modo electrónico, ordenados por emisión.
	ListDispatchable(ctx context.Context, maxAttempts, limit int) ([]*entity.FiscalDocument, error)
	// ListAwaitingResult devuelve documentos Submitted con lote asignado y intentos < maxAttempts
	// para consultar su resultado.
	ListAwaitingResult(ctx context.Context, maxAttempts, limit int) ([]*entity.FiscalDocument, error)
	// NextNumber reserva el siguiente número para emisor/establecimiento/punto/tipo.
	NextNumber(ctx context.Context, emitterID, establishment, expeditionPoint string, kind entity.DocumentKind) (int64, error)

	AppendLog(ctx context.Context, log *entity.TransmissionLog) error
	ListLogs(ctx context.Context, documentID string) ([]*entity.TransmissionLog, error)
}
