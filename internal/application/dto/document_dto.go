package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
)

// ReceiverRequest datos del receptor (gDatRec).
type ReceiverRequest struct {
	Nature          int    `json:"nature"`           // 1 contribuyente, 2 no contribuyente
	ContributorType int    `json:"contributor_type"` // 1 física, 2 jurídica
	RUC             string `json:"ruc,omitempty"`    // sin DV o con "-DV"
	DV              string `json:"dv,omitempty"`
	DocType         int    `json:"doc_type,omitempty"`
	DocNumber       string `json:"doc_number,omitempty"`
	Name            string `json:"name,omitempty"`
	Address         string `json:"address,omitempty"`
	HouseNumber     string `json:"house_number,omitempty"`
	Country         string `json:"country,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
}

// LineRequest línea de detalle.
type LineRequest struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Unit        string          `json:"unit,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	VATCategory string          `json:"vat_category"` // "10", "5" o "exento"
}

// PaymentEntryRequest pago al contado.
type PaymentEntryRequest struct {
	Type     int             `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
}

// InstallmentRequest cuota de crédito.
type InstallmentRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
}

// PaymentRequest condición de la operación.
type PaymentRequest struct {
	Condition    int                   `json:"condition"` // 1 contado, 2 crédito
	Payments     []PaymentEntryRequest `json:"payments,omitempty"`
	CreditType   int                   `json:"credit_type,omitempty"`
	TermDays     int                   `json:"term_days,omitempty"`
	Installments []InstallmentRequest  `json:"installments,omitempty"`
}

// IssueDocumentRequest campos comunes a factura y nota de crédito.
type IssueDocumentRequest struct {
	EmitterID       string          `json:"emitter_id,omitempty"` // vacío: emisor por defecto
	Establishment   string          `json:"establishment"`
	ExpeditionPoint string          `json:"expedition_point"`
	IssuedAt        *time.Time      `json:"issued_at,omitempty"`
	EmissionMode    string          `json:"emission_mode,omitempty"` // electronic (default) | self_printed
	Currency        string          `json:"currency,omitempty"`      // PYG por defecto
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	TransactionType int             `json:"transaction_type,omitempty"`
	Receiver        ReceiverRequest `json:"receiver"`
	Lines           []LineRequest   `json:"lines"`
}

// IssueInvoiceRequest body para POST /api/documents/invoices.
type IssueInvoiceRequest struct {
	IssueDocumentRequest
	Payment PaymentRequest `json:"payment"`
}

// IssueCreditNoteRequest body para POST /api/documents/credit-notes.
type IssueCreditNoteRequest struct {
	IssueDocumentRequest
	ReferenceCDC string `json:"reference_cdc"`
	Reason       string `json:"reason"`
}

// CancelRequest body para POST /api/documents/:id/cancel.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// Validate controles de forma previos a la resolución del emisor.
func (r *IssueDocumentRequest) Validate() error {
	if len(r.Lines) == 0 {
		return fmt.Errorf("%w: el documento debe tener al menos una línea", domain.ErrInvalidInput)
	}
	for i, l := range r.Lines {
		if strings.TrimSpace(l.Description) == "" {
			return fmt.Errorf("%w: línea %d sin descripción", domain.ErrInvalidInput, i+1)
		}
		if !l.Quantity.IsPositive() {
			return fmt.Errorf("%w: línea %d con cantidad no positiva", domain.ErrInvalidInput, i+1)
		}
		if l.UnitPrice.IsNegative() || l.Discount.IsNegative() {
			return fmt.Errorf("%w: línea %d con montos negativos", domain.ErrInvalidInput, i+1)
		}
	}
	switch r.EmissionMode {
	case "", entity.EmissionElectronic, entity.EmissionSelfPrinted:
	default:
		return fmt.Errorf("%w: modo de emisión %q", domain.ErrInvalidInput, r.EmissionMode)
	}
	if r.Receiver.Nature != 1 && r.Receiver.Nature != 2 {
		return fmt.Errorf("%w: naturaleza del receptor debe ser 1 o 2", domain.ErrInvalidInput)
	}
	return nil
}

// Validate agrega los controles de la nota de crédito.
func (r *IssueCreditNoteRequest) Validate() error {
	if err := r.IssueDocumentRequest.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.ReferenceCDC) == "" {
		return fmt.Errorf("%w: falta el CDC del documento asociado", domain.ErrInvalidReference)
	}
	if strings.TrimSpace(r.Reason) == "" {
		return fmt.Errorf("%w: falta el motivo de la nota de crédito", domain.ErrInvalidInput)
	}
	return nil
}

// DocumentResponse superficie de estado de un documento.
type DocumentResponse struct {
	ID              string          `json:"id"`
	Kind            string          `json:"kind"`
	Establishment   string          `json:"establishment"`
	ExpeditionPoint string          `json:"expedition_point"`
	Number          string          `json:"number"`
	IssuedAt        time.Time       `json:"issued_at"`
	Currency        string          `json:"currency"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	TotalVAT        decimal.Decimal `json:"total_vat"`
	CDC             string          `json:"cdc"`
	Status          string          `json:"status"`
	Attempts        int             `json:"attempts"`
	LastError       string          `json:"last_error,omitempty"`
	LastErrorKind   string          `json:"last_error_kind,omitempty"`
	ResponseCode    string          `json:"response_code,omitempty"`
	BatchID         string          `json:"batch_id,omitempty"`
	LastResponse    string          `json:"last_response,omitempty"`
	SignedXML       string          `json:"signed_xml,omitempty"`
	ReferenceCDC    string          `json:"reference_cdc,omitempty"`
	SubmittedAt     *time.Time      `json:"submitted_at,omitempty"`
	AcceptedAt      *time.Time      `json:"accepted_at,omitempty"`
}

// TransmissionLogResponse entrada de la bitácora.
type TransmissionLogResponse struct {
	Operation    string    `json:"operation"`
	FromStatus   string    `json:"from_status,omitempty"`
	ToStatus     string    `json:"to_status,omitempty"`
	ResponseCode string    `json:"response_code,omitempty"`
	Message      string    `json:"message,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// DocumentStatusResponse estado más bitácora para GET /api/documents/:id.
type DocumentStatusResponse struct {
	Document DocumentResponse          `json:"document"`
	Logs     []TransmissionLogResponse `json:"logs"`
	Events   []CancellationResponse    `json:"events,omitempty"`
}

// VerifyResponse resultado de la verificación de la firma almacenada.
type VerifyResponse struct {
	Valid    bool       `json:"valid"`
	Subject  string     `json:"subject,omitempty"`
	NotAfter *time.Time `json:"not_after,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// CancellationResponse evento de cancelación.
type CancellationResponse struct {
	EventID      int64     `json:"event_id"`
	CDC          string    `json:"cdc"`
	Status       string    `json:"status"`
	ResponseCode string    `json:"response_code,omitempty"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// DispatcherRunResponse resumen de un ciclo disparado manualmente.
type DispatcherRunResponse struct {
	Connected bool   `json:"connected"`
	Result    string `json:"result"`
	Submitted int    `json:"submitted"`
	Accepted  int    `json:"accepted"`
	Rejected  int    `json:"rejected"`
	Failed    int    `json:"failed"`
	Events    int    `json:"events"`
	Polled    int    `json:"polled"`
}

// ConsultResponse resultado de consulta-de para un documento.
type ConsultResponse struct {
	DocumentID   string `json:"document_id"`
	CDC          string `json:"cdc"`
	ResponseCode string `json:"response_code"`
	Message      string `json:"message,omitempty"`
	Protocol     string `json:"protocol,omitempty"`
	Status       string `json:"status"`
	Updated      bool   `json:"updated"`
}

// RUCResponse datos del contribuyente según SIFEN.
type RUCResponse struct {
	RUC              string `json:"ruc"`
	Found            bool   `json:"found"`
	Name             string `json:"name,omitempty"`
	Status           string `json:"status,omitempty"`
	ElectronicIssuer bool   `json:"electronic_issuer"`
	ResponseCode     string `json:"response_code"`
	Message          string `json:"message,omitempty"`
}

// ToDocumentResponse mapea la entidad a la respuesta.
func ToDocumentResponse(d *entity.FiscalDocument) DocumentResponse {
	r := DocumentResponse{
		ID: d.ID, Kind: string(d.Kind), Establishment: d.Establishment, ExpeditionPoint: d.ExpeditionPoint,
		Number: d.Number, IssuedAt: d.IssuedAt, Currency: d.Currency,
		GrandTotal: d.Totals.GrandTotal, TotalVAT: d.Totals.TotalVAT,
		CDC: d.CDC, Status: string(d.Status), Attempts: d.Attempts,
		LastError: d.LastError, LastErrorKind: d.LastErrorKind, ResponseCode: d.ResponseCode,
		BatchID: d.BatchID, LastResponse: d.LastResponse, SignedXML: d.SignedXML,
		SubmittedAt: d.SubmittedAt, AcceptedAt: d.AcceptedAt,
	}
	if d.Reference != nil {
		r.ReferenceCDC = d.Reference.CDC
	}
	return r
}

// ToTransmissionLogResponse mapea una entrada de bitácora.
func ToTransmissionLogResponse(l *entity.TransmissionLog) TransmissionLogResponse {
	return TransmissionLogResponse{
		Operation: l.Operation, FromStatus: string(l.FromStatus), ToStatus: string(l.ToStatus),
		ResponseCode: l.ResponseCode, Message: l.Message, ErrorKind: l.ErrorKind,
		Fingerprint: l.Fingerprint, CreatedAt: l.CreatedAt,
	}
}

// ToCancellationResponse mapea un evento.
func ToCancellationResponse(ev *entity.CancellationEvent) CancellationResponse {
	return CancellationResponse{
		EventID: ev.ID, CDC: ev.CDC, Status: string(ev.Status), ResponseCode: ev.ResponseCode,
		Message: ev.Message, CreatedAt: ev.CreatedAt,
	}
}
