package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/dte"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
)

// Operaciones registradas en la bitácora.
const (
	OpSubmit   = "submit"
	OpPoll     = "query"
	OpEvent    = "event"
	OpResubmit = "resubmit"
	OpIssue    = "issue"
	OpConsult  = "consult"
)

// newLog entrada de bitácora con el estado de origen y destino del documento.
func newLog(doc *entity.FiscalDocument, op string, from entity.DocumentStatus, now time.Time) *entity.TransmissionLog {
	return &entity.TransmissionLog{
		DocumentID: doc.ID,
		Operation:  op,
		FromStatus: from,
		ToStatus:   doc.Status,
		CreatedAt:  now,
	}
}

// fillLog copia código, mensaje y cuerpos de la respuesta a la entrada.
func fillLog(l *entity.TransmissionLog, res *sifenxml.Result) {
	if res == nil {
		return
	}
	l.ResponseCode = res.Code.Value
	l.Message = res.Message
	l.Request = string(res.Request)
	l.Response = string(res.Raw)
}

// applySubmitResult aplica la respuesta de recibe-lote o recibe-de. Un lote recibido sin número de
// protocolo no se puede consultar: se devuelve como error de protocolo y el documento no cambia.
func applySubmitResult(doc *entity.FiscalDocument, res *sifenxml.Result, now time.Time) error {
	dr, hasResult := documentResult(res, doc.CDC)
	if !hasResult && res.Code.Kind != sifenxml.CodeAccepted && res.BatchID == "" {
		return &sifenxml.ProtocolError{
			Op:     "recibe-lote",
			Status: 200,
			Body:   string(res.Raw),
			Err:    fmt.Errorf("respuesta %s sin dProtConsLote", res.Code.Value),
		}
	}

	doc.Attempts++
	doc.ResponseCode = res.Code.Value
	doc.LastResponse = string(res.Raw)
	doc.LastError, doc.LastErrorKind = "", ""

	if hasResult {
		applyDocumentResult(doc, dr, now)
		return nil
	}
	if res.Code.Kind == sifenxml.CodeAccepted {
		setAccepted(doc, now)
		return nil
	}
	if doc.Status != entity.StatusSubmitted {
		if err := dte.Transition(doc, entity.StatusSubmitted); err != nil {
			return err
		}
	}
	doc.BatchID = res.BatchID
	doc.SubmittedAt = &now
	return nil
}

// applyPollResult aplica la respuesta de consulta-lote. Un lote en proceso no cambia el estado.
func applyPollResult(doc *entity.FiscalDocument, res *sifenxml.Result, now time.Time) {
	doc.LastResponse = string(res.Raw)
	if dr, ok := documentResult(res, doc.CDC); ok {
		applyDocumentResult(doc, dr, now)
		return
	}
	if res.Code.Kind == sifenxml.CodeAccepted {
		doc.ResponseCode = res.Code.Value
		setAccepted(doc, now)
	}
}

func applyDocumentResult(doc *entity.FiscalDocument, dr sifenxml.DocumentResult, now time.Time) {
	if dr.Code.Value != "" {
		doc.ResponseCode = dr.Code.Value
	}
	switch {
	case dr.Approved():
		setAccepted(doc, now)
	case dr.Rejected():
		_ = dte.Transition(doc, entity.StatusRejected)
		doc.LastError = dr.Message
		doc.LastErrorKind = string(domain.KindRejected)
	}
}

func setAccepted(doc *entity.FiscalDocument, now time.Time) {
	if dte.Transition(doc, entity.StatusAccepted) == nil {
		doc.AcceptedAt = &now
		doc.LastError, doc.LastErrorKind = "", ""
	}
}

// documentResult busca el resultado del CDC; con un único resultado sin id se asume propio.
func documentResult(res *sifenxml.Result, cdc string) (sifenxml.DocumentResult, bool) {
	for _, d := range res.Documents {
		if d.CDC == cdc {
			return d, true
		}
	}
	if len(res.Documents) == 1 && res.Documents[0].CDC == "" {
		return res.Documents[0], true
	}
	return sifenxml.DocumentResult{}, false
}

// applyFailure registra un error de envío o consulta. Devuelve true si el ciclo debe abortarse.
//
//   - conectividad: se anota el error sin contar intento y se aborta el ciclo;
//   - rechazo de SIFEN: Rejected (terminal); un lote no encolado vuelve a Pending;
//   - protocolo, armado o firma: cuenta intento y el documento sigue en su estado.
func applyFailure(doc *entity.FiscalDocument, err error, countAttempt bool) bool {
	kind := ErrorKindOf(err)
	doc.LastError = err.Error()
	doc.LastErrorKind = string(kind)

	if kind == domain.KindConnectivity {
		return true
	}
	if countAttempt {
		doc.Attempts++
	}

	var rejected *sifenxml.AuthorityRejected
	if errors.As(err, &rejected) {
		doc.ResponseCode = rejected.Code.Value
		doc.LastResponse = string(rejected.Raw)
		if rejected.Code.Kind == sifenxml.CodeBatchNotQueued && doc.Status == entity.StatusSubmitted {
			_ = dte.Transition(doc, entity.StatusPending)
			doc.BatchID = ""
			return false
		}
		_ = dte.Transition(doc, entity.StatusRejected)
	}
	return false
}
