package billing

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/dte"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/internal/domain/repository"
	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
	"github.com/jhoicas/sifen-dte/pkg/logger"
)

// CancelUseCase cancelación de documentos aprobados mediante el evento rGeVeCan.
type CancelUseCase struct {
	docs     repository.DocumentRepository
	tx       TxRunner
	certs    CertificateSource
	pipeline *Pipeline
	clock    Clock
	log      zerolog.Logger
}

// NewCancelUseCase construye el caso de uso.
func NewCancelUseCase(docs repository.DocumentRepository, tx TxRunner, certs CertificateSource, pipeline *Pipeline, clock Clock, log zerolog.Logger) *CancelUseCase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CancelUseCase{
		docs: docs, tx: tx, certs: certs, pipeline: pipeline, clock: clock,
		log: log.With().Str("component", "cancel").Logger(),
	}
}

// Cancel registra y envía el evento de cancelación. Sin conexión el evento queda Pending y
// el despachador lo reintenta; en ese caso no se devuelve error.
func (uc *CancelUseCase) Cancel(ctx context.Context, documentID, reason string) (*entity.CancellationEvent, error) {
	reason, err := dte.NormalizeReason(reason)
	if err != nil {
		return nil, err
	}
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, documentID)
	}
	if err := dte.ValidateCancellable(doc, uc.clock.Now()); err != nil {
		return nil, err
	}

	var ev *entity.CancellationEvent
	err = uc.tx.RunDocument(ctx, func(docs repository.DocumentRepository, events repository.EventRepository) error {
		cur, err := docs.LockByID(ctx, doc.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: documento %s", domain.ErrNotFound, doc.ID)
		}
		if err := dte.ValidateCancellable(cur, uc.clock.Now()); err != nil {
			return err
		}
		existing, err := events.ListByDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		if err := dte.ValidateNoOpenCancellation(existing); err != nil {
			return err
		}
		id, err := events.NextEventID(ctx)
		if err != nil {
			return err
		}
		ev = &entity.CancellationEvent{
			ID: id, DocumentID: doc.ID, CDC: doc.CDC, Reason: reason,
			Status: entity.EventPending, CreatedAt: uc.clock.Now(),
		}
		return events.Create(ctx, ev)
	})
	if err != nil {
		return nil, fmt.Errorf("registrar evento: %w", err)
	}

	cert, err := uc.certs.Certificate()
	if err != nil {
		uc.log.Error().Err(err).Int64("event_id", ev.ID).Msg("certificado no disponible, el evento queda pendiente")
		return ev, nil
	}
	if _, err := deliverEvent(ctx, uc.pipeline, uc.docs, uc.tx, uc.clock, cert, ev); err != nil {
		return ev, err
	}
	l := logger.Document(uc.log, doc.ID, doc.CDC, ev.ResponseCode)
	l.Info().Int64("event_id", ev.ID).Str("status", string(ev.Status)).Msg("evento de cancelación")
	return ev, nil
}

// deliverEvent firma (si hace falta), envía y persiste el resultado del evento.
// Antes de cada envío vuelve a validar el documento y el plazo; fuera de plazo el evento se rechaza
// sin transmitir. Devuelve true si el envío falló por conectividad.
func deliverEvent(ctx context.Context, p *Pipeline, docs repository.DocumentRepository, tx TxRunner, clock Clock, cert tls.Certificate, ev *entity.CancellationEvent) (bool, error) {
	doc, err := docs.GetByID(ctx, ev.DocumentID)
	if err != nil {
		return false, err
	}
	if doc == nil {
		err = fmt.Errorf("%w: documento %s", domain.ErrNotFound, ev.DocumentID)
	} else {
		err = dte.ValidateCancellable(doc, clock.Now())
	}
	if err != nil {
		ev.Status = entity.EventRejected
		ev.Message = err.Error()
		return false, saveEvent(ctx, tx, ev, nil)
	}

	if err := p.PrepareEvent(ev, cert); err != nil {
		ev.Attempts++
		ev.Message = err.Error()
		return false, saveEvent(ctx, tx, ev, nil)
	}

	res, err := p.SendEvent(ctx, cert, ev)
	if err != nil {
		kind := ErrorKindOf(err)
		ev.Message = err.Error()
		if kind == domain.KindConnectivity {
			return true, saveEvent(ctx, tx, ev, nil)
		}
		ev.Attempts++
		var rejected *sifenxml.AuthorityRejected
		if errors.As(err, &rejected) {
			ev.Status = entity.EventRejected
			ev.ResponseCode = rejected.Code.Value
			ev.Message = rejected.Message
		}
		return false, saveEvent(ctx, tx, ev, nil)
	}

	ev.Attempts++
	ev.ResponseCode = res.Code.Value
	ev.Message = res.Message
	if res.Code.Kind != sifenxml.CodeEventRegistered {
		ev.Status = entity.EventRejected
		return false, saveEvent(ctx, tx, ev, nil)
	}
	ev.Status = entity.EventRegistered

	cancelDoc := func(doc *entity.FiscalDocument) *entity.TransmissionLog {
		from := doc.Status
		if err := dte.Transition(doc, entity.StatusCancelled); err != nil {
			return nil
		}
		doc.ResponseCode = res.Code.Value
		l := newLog(doc, OpEvent, from, clock.Now())
		fillLog(l, res)
		return l
	}
	return false, saveEvent(ctx, tx, ev, cancelDoc)
}

// saveEvent persiste el evento y, si mutate no es nil, aplica el cambio al documento bloqueado.
func saveEvent(ctx context.Context, tx TxRunner, ev *entity.CancellationEvent, mutate func(*entity.FiscalDocument) *entity.TransmissionLog) error {
	return tx.RunDocument(ctx, func(docs repository.DocumentRepository, events repository.EventRepository) error {
		if err := events.Update(ctx, ev); err != nil {
			return err
		}
		if mutate == nil {
			return nil
		}
		doc, err := docs.LockByID(ctx, ev.DocumentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%w: documento %s", domain.ErrNotFound, ev.DocumentID)
		}
		l := mutate(doc)
		if l == nil {
			return nil
		}
		if err := docs.Update(ctx, doc); err != nil {
			return err
		}
		return docs.AppendLog(ctx, l)
	})
}
