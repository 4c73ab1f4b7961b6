package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind tipo de documento electrónico.
type DocumentKind string

const (
	KindInvoice    DocumentKind = "invoice"
	KindCreditNote DocumentKind = "credit_note"
)

// TypeCode devuelve iTiDE (01 factura, 05 nota de crédito).
func (k DocumentKind) TypeCode() string {
	if k == KindCreditNote {
		return "05"
	}
	return "01"
}

// DocumentStatus estado de transmisión frente a SIFEN.
type DocumentStatus string

const (
	StatusPending   DocumentStatus = "PENDING"   // Generado, pendiente de envío
	StatusSubmitted DocumentStatus = "SUBMITTED" // Lote recibido, resultado pendiente
	StatusAccepted  DocumentStatus = "ACCEPTED"  // Aprobado por SIFEN
	StatusRejected  DocumentStatus = "REJECTED"  // Rechazado por SIFEN
	StatusCancelled DocumentStatus = "CANCELLED" // Cancelado por evento
)

// Modos de emisión. Solo los electrónicos se transmiten.
const (
	EmissionElectronic  = "electronic"
	EmissionSelfPrinted = "self_printed"
)

// FiscalDocument cabecera de un documento electrónico (factura o nota de crédito).
type FiscalDocument struct {
	ID              string
	Kind            DocumentKind
	EmitterID       string
	EmissionMode    string
	Establishment   string // dEst (3)
	ExpeditionPoint string // dPunExp (3)
	Number          string // dNumDoc (7)
	Receiver        Receiver
	IssuedAt        time.Time
	Lines           []DocumentLine
	Currency        string          // cMoneOpe (ISO 4217)
	ExchangeRate    decimal.Decimal // dTiCam; cero para PYG
	TransactionType int             // iTipTra
	Payment         PaymentCondition
	Totals          Totals
	Reference       *CreditNoteReference // solo notas de crédito

	CDC           string
	SecurityCode  string
	Status        DocumentStatus
	Attempts      int
	LastError     string
	LastErrorKind string
	SignedXML     string // rDE firmado, sin declaración XML
	LastResponse  string // respuesta SOAP cruda
	ResponseCode  string // dCodRes
	BatchID       string // dProtConsLote
	SubmittedAt   *time.Time
	AcceptedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsCreditNote indica si el documento es una nota de crédito.
func (d *FiscalDocument) IsCreditNote() bool { return d.Kind == KindCreditNote }

// DocumentLine línea de detalle (gCamItem).
type DocumentLine struct {
	Code        string // dCodInt
	Description string // dDesProSer
	Unit        string // cUniMed; vacío = 77
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal // dDescItem, monto total de descuento de la línea
	VATCategory string          // "10", "5" o "exento"

	// Calculados
	Gross     decimal.Decimal // dTotBruOpeItem
	Amount    decimal.Decimal // dTotOpeItem
	TaxBase   decimal.Decimal // dBasGravIVA
	VAT       decimal.Decimal // dLiqIVAItem
	ExemptBas decimal.Decimal // dBasExe
}

// Totals totales del documento (gTotSub). Siempre son suma de las líneas.
type Totals struct {
	SubExempt  decimal.Decimal // dSubExe
	Sub5       decimal.Decimal // dSub5
	Sub10      decimal.Decimal // dSub10
	TotalOpe   decimal.Decimal // dTotOpe
	Discount   decimal.Decimal // dTotDesc
	Rounding   decimal.Decimal // dRedon
	GrandTotal decimal.Decimal // dTotGralOpe
	VAT5       decimal.Decimal // dIVA5
	VAT10      decimal.Decimal // dIVA10
	TotalVAT   decimal.Decimal // dTotIVA
	Base5      decimal.Decimal // dBaseGrav5
	Base10     decimal.Decimal // dBaseGrav10
	TotalBase  decimal.Decimal // dTBasGraIVA
}

// PaymentCondition condición de la operación (gCamCond).
type PaymentCondition struct {
	Condition    int            // iCondOpe: 1 contado, 2 crédito
	Payments     []PaymentEntry // contado
	CreditType   int            // iCondCred: 1 plazo, 2 cuotas
	TermDays     int            // dPlazoCre
	Installments []Installment  // gCuotas
}

// PaymentEntry pago al contado (gPaConEIni).
type PaymentEntry struct {
	Type     int // iTiPago
	Amount   decimal.Decimal
	Currency string
}

// Installment cuota de una venta a crédito.
type Installment struct {
	Amount  decimal.Decimal
	DueDate time.Time
}

// CreditNoteReference documento asociado de una nota de crédito.
type CreditNoteReference struct {
	CDC    string // dCdCDERef
	Reason string // texto libre del operador
}
