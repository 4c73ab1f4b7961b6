package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sifen-dte/internal/application/dto"
	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/dte"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/internal/domain/repository"
	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
	"github.com/jhoicas/sifen-dte/pkg/logger"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// IssueUseCase emisión de facturas y notas de crédito y reenvío manual de rechazados.
// El documento queda Pending con su CDC definitivo; el despachador lo transmite.
type IssueUseCase struct {
	docs             repository.DocumentRepository
	emitters         repository.EmitterRepository
	tx               TxRunner
	cdc              *sifen.CDCGenerator
	clock            Clock
	metrics          Metrics
	defaultEmitterID string
	log              zerolog.Logger
}

// NewIssueUseCase construye el caso de uso. gen nil usa el generador de CDC por defecto.
func NewIssueUseCase(
	docs repository.DocumentRepository,
	emitters repository.EmitterRepository,
	tx TxRunner,
	gen *sifen.CDCGenerator,
	clock Clock,
	m Metrics,
	defaultEmitterID string,
	log zerolog.Logger,
) *IssueUseCase {
	if gen == nil {
		gen = sifen.NewCDCGenerator(nil)
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if m == nil {
		m = NopMetrics{}
	}
	return &IssueUseCase{
		docs: docs, emitters: emitters, tx: tx, cdc: gen, clock: clock, metrics: m,
		defaultEmitterID: defaultEmitterID,
		log:              log.With().Str("component", "issue").Logger(),
	}
}

// IssueInvoice valida, calcula totales y CDC y persiste la factura en Pending.
func (uc *IssueUseCase) IssueInvoice(ctx context.Context, req *dto.IssueInvoiceRequest) (*entity.FiscalDocument, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	doc := uc.newDocument(entity.KindInvoice, &req.IssueDocumentRequest)
	doc.Payment = toPayment(req.Payment)
	return uc.issue(ctx, doc)
}

// IssueCreditNote igual que IssueInvoice; además exige una factura aprobada como referencia.
func (uc *IssueUseCase) IssueCreditNote(ctx context.Context, req *dto.IssueCreditNoteRequest) (*entity.FiscalDocument, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	doc := uc.newDocument(entity.KindCreditNote, &req.IssueDocumentRequest)
	doc.Reference = &entity.CreditNoteReference{
		CDC:    sifen.OnlyDigits(req.ReferenceCDC),
		Reason: strings.TrimSpace(req.Reason),
	}
	referenced, err := uc.docs.GetByCDC(ctx, doc.Reference.CDC)
	if err != nil {
		return nil, err
	}
	if err := dte.ValidateReference(doc, referenced); err != nil {
		return nil, err
	}
	return uc.issue(ctx, doc)
}

func (uc *IssueUseCase) issue(ctx context.Context, doc *entity.FiscalDocument) (*entity.FiscalDocument, error) {
	em, err := uc.emitter(ctx, doc.EmitterID)
	if err != nil {
		return nil, err
	}
	doc.EmitterID = em.ID
	if err := dte.ValidateReceiver(doc.Receiver); err != nil {
		return nil, err
	}
	totals, err := dte.ComputeTotals(doc.Lines, doc.Currency)
	if err != nil {
		return nil, err
	}
	doc.Totals = totals

	err = uc.tx.RunDocument(ctx, func(docs repository.DocumentRepository, _ repository.EventRepository) error {
		n, err := docs.NextNumber(ctx, em.ID, doc.Establishment, doc.ExpeditionPoint, doc.Kind)
		if err != nil {
			return err
		}
		doc.Number = sifen.PadLeft(strconv.FormatInt(n, 10), 7)
		if _, err := sifenxml.AssignCDC(doc, em, uc.cdc); err != nil {
			return err
		}
		if err := docs.Create(ctx, doc); err != nil {
			return err
		}
		return docs.AppendLog(ctx, newLog(doc, OpIssue, "", uc.clock.Now()))
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.DocumentIssued(string(doc.Kind))
	log := logger.Document(uc.log, doc.ID, doc.CDC, "")
	log.Info().Str("kind", string(doc.Kind)).
		Str("total", doc.Totals.GrandTotal.String()).Msg("documento emitido")
	return doc, nil
}

// Resubmit vuelve un documento Rejected a Pending con los intentos en cero.
// El CDC se conserva salvo que hayan cambiado los campos de identidad del emisor.
func (uc *IssueUseCase) Resubmit(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	var out *entity.FiscalDocument
	err := uc.tx.RunDocument(ctx, func(docs repository.DocumentRepository, _ repository.EventRepository) error {
		doc, err := docs.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%w: documento %s", domain.ErrNotFound, id)
		}
		if doc.Status != entity.StatusRejected {
			return fmt.Errorf("%w: solo se reenvían documentos rechazados (estado %s)", domain.ErrInvalidTransition, doc.Status)
		}
		em, err := uc.emitter(ctx, doc.EmitterID)
		if err != nil {
			return err
		}
		from := doc.Status
		if !sifenxml.CDCMatches(doc, em) {
			log := logger.Document(uc.log, doc.ID, doc.CDC, "")
			log.Warn().Msg("cambiaron los campos de identidad, se regenera el CDC")
			doc.CDC, doc.SecurityCode = "", ""
			if _, err := sifenxml.AssignCDC(doc, em, uc.cdc); err != nil {
				return err
			}
		}
		if err := dte.Transition(doc, entity.StatusPending); err != nil {
			return err
		}
		doc.Attempts = 0
		doc.LastError, doc.LastErrorKind = "", ""
		doc.BatchID, doc.ResponseCode = "", ""
		doc.SignedXML = ""
		doc.SubmittedAt = nil
		if err := docs.Update(ctx, doc); err != nil {
			return err
		}
		out = doc
		return docs.AppendLog(ctx, newLog(doc, OpResubmit, from, uc.clock.Now()))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *IssueUseCase) emitter(ctx context.Context, id string) (*entity.Emitter, error) {
	if id == "" {
		id = uc.defaultEmitterID
	}
	if id == "" {
		return nil, fmt.Errorf("%w: no se indicó emisor", domain.ErrMissingMasterData)
	}
	em, err := uc.emitters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if em == nil {
		return nil, fmt.Errorf("%w: emisor %s no encontrado", domain.ErrMissingMasterData, id)
	}
	if err := dte.ValidateEmitter(em); err != nil {
		return nil, err
	}
	return em, nil
}

func (uc *IssueUseCase) newDocument(kind entity.DocumentKind, req *dto.IssueDocumentRequest) *entity.FiscalDocument {
	issuedAt := uc.clock.Now()
	if req.IssuedAt != nil {
		issuedAt = *req.IssuedAt
	}
	mode := req.EmissionMode
	if mode == "" {
		mode = entity.EmissionElectronic
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "PYG"
	}
	txType := req.TransactionType
	if txType == 0 {
		txType = sifen.TransactionSale
	}

	doc := &entity.FiscalDocument{
		Kind:            kind,
		EmitterID:       req.EmitterID,
		EmissionMode:    mode,
		Establishment:   sifen.PadLeft(sifen.OnlyDigits(req.Establishment), 3),
		ExpeditionPoint: sifen.PadLeft(sifen.OnlyDigits(req.ExpeditionPoint), 3),
		Receiver:        toReceiver(req.Receiver),
		IssuedAt:        issuedAt,
		Currency:        currency,
		ExchangeRate:    req.ExchangeRate,
		TransactionType: txType,
		Status:          entity.StatusPending,
	}
	for _, l := range req.Lines {
		doc.Lines = append(doc.Lines, entity.DocumentLine{
			Code: l.Code, Description: strings.TrimSpace(l.Description), Unit: l.Unit,
			Quantity: l.Quantity, UnitPrice: l.UnitPrice, Discount: l.Discount,
			VATCategory: strings.ToLower(strings.TrimSpace(l.VATCategory)),
		})
	}
	return doc
}

func toReceiver(r dto.ReceiverRequest) entity.Receiver {
	ruc, dv := r.RUC, r.DV
	if strings.Contains(ruc, "-") {
		ruc, dv = sifen.SplitRUC(ruc)
	}
	return entity.Receiver{
		Nature: r.Nature, ContributorType: r.ContributorType, RUC: sifen.OnlyDigits(ruc), DV: dv,
		DocType: r.DocType, DocNumber: strings.TrimSpace(r.DocNumber), Name: strings.TrimSpace(r.Name),
		Address: r.Address, HouseNumber: r.HouseNumber, Country: strings.ToUpper(r.Country),
		Phone: r.Phone, Email: r.Email,
	}
}

func toPayment(p dto.PaymentRequest) entity.PaymentCondition {
	out := entity.PaymentCondition{Condition: p.Condition, CreditType: p.CreditType, TermDays: p.TermDays}
	if out.Condition == 0 {
		out.Condition = sifen.ConditionCash
	}
	for _, e := range p.Payments {
		out.Payments = append(out.Payments, entity.PaymentEntry{Type: e.Type, Amount: e.Amount, Currency: e.Currency})
	}
	for _, i := range p.Installments {
		out.Installments = append(out.Installments, entity.Installment{Amount: i.Amount, DueDate: i.DueDate})
	}
	return out
}
