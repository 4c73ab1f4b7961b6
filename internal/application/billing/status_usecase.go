package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/sifen-dte/internal/application/dto"
	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/internal/domain/repository"
)

// StatusUseCase superficie de consulta: estado, bitácora y verificación de la firma guardada.
type StatusUseCase struct {
	docs   repository.DocumentRepository
	events repository.EventRepository
	verify SignatureVerifier
}

// NewStatusUseCase construye el caso de uso.
func NewStatusUseCase(docs repository.DocumentRepository, events repository.EventRepository, verify SignatureVerifier) *StatusUseCase {
	return &StatusUseCase{docs: docs, events: events, verify: verify}
}

// Get devuelve el documento con su bitácora y eventos.
func (uc *StatusUseCase) Get(ctx context.Context, id string) (*dto.DocumentStatusResponse, error) {
	doc, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	logs, err := uc.Logs(ctx, id)
	if err != nil {
		return nil, err
	}
	evs, err := uc.events.ListByDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &dto.DocumentStatusResponse{Document: dto.ToDocumentResponse(doc), Logs: logs}
	for _, ev := range evs {
		out.Events = append(out.Events, dto.ToCancellationResponse(ev))
	}
	return out, nil
}

// Logs bitácora de transmisión en orden cronológico.
func (uc *StatusUseCase) Logs(ctx context.Context, id string) ([]dto.TransmissionLogResponse, error) {
	logs, err := uc.docs.ListLogs(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TransmissionLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.ToTransmissionLogResponse(l))
	}
	return out, nil
}

// Verify vuelve a validar la firma del XML guardado contra el certificado embebido.
// Una firma inválida no es error: se informa en la respuesta.
func (uc *StatusUseCase) Verify(ctx context.Context, id string) (*dto.VerifyResponse, error) {
	doc, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.SignedXML == "" {
		return nil, fmt.Errorf("%w: el documento %s todavía no fue firmado", domain.ErrConflict, id)
	}
	cert, err := uc.verify([]byte(doc.SignedXML))
	if err != nil {
		return &dto.VerifyResponse{Valid: false, Error: err.Error()}, nil
	}
	notAfter := cert.NotAfter
	return &dto.VerifyResponse{Valid: true, Subject: cert.Subject.String(), NotAfter: &notAfter}, nil
}

func (uc *StatusUseCase) load(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	doc, err := uc.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, id)
	}
	return doc, nil
}
