// Package sifen contiene el cálculo del CDC, validaciones de RUC y catálogos
// del Manual Técnico SIFEN v150 (Paraguay).
package sifen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// ErrInvalidIdentityFields indica que algún campo de identidad no cabe en su ancho fijo o falta.
var ErrInvalidIdentityFields = errors.New("sifen: campos de identidad del CDC inválidos")

// CDCLength largo fijo del Código de Control.
const CDCLength = 44

// Anchos de cada campo del CDC, en orden.
const (
	widthDocumentType    = 2
	widthRUC             = 8
	widthDV              = 1
	widthEstablishment   = 3
	widthExpeditionPoint = 3
	widthNumber          = 7
	widthTaxpayerType    = 1
	widthDate            = 8
	widthEmissionType    = 1
	widthSecurityCode    = 9
)

// CDCFields campos que componen el CDC. Todos se normalizan a solo dígitos.
type CDCFields struct {
	DocumentType    string // iTiDE: 01 factura, 05 nota de crédito
	RUC             string // RUC del emisor sin DV
	DV              string // dígito verificador del RUC
	Establishment   string // dEst
	ExpeditionPoint string // dPunExp
	Number          string // dNumDoc
	TaxpayerType    string // iTipCont: 1 física, 2 jurídica
	Date            string // fecha de emisión yyyyMMdd
	EmissionType    string // iTipEmi: 1 normal
	SecurityCode    string // dCodSeg; vacío = se genera
}

// FormatCDCDate formatea la fecha de emisión como la espera el CDC.
func FormatCDCDate(t time.Time) string {
	return t.Format("20060102")
}

// SecurityCodeSource entrega códigos de seguridad de 9 dígitos.
type SecurityCodeSource interface {
	Next() string
}

// ClockSecurityCodes genera códigos a partir del reloj: nanosegundos mod 1e9,
// siempre crecientes dentro del proceso y nunca cero.
type ClockSecurityCodes struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewClockSecurityCodes crea la fuente. now nil usa time.Now.
func NewClockSecurityCodes(now func() time.Time) *ClockSecurityCodes {
	if now == nil {
		now = time.Now
	}
	return &ClockSecurityCodes{now: now}
}

// Next devuelve el siguiente código.
func (s *ClockSecurityCodes) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.now().UnixNano() % 1_000_000_000
	if n <= s.last {
		n = s.last + 1
	}
	if n >= 1_000_000_000 || n <= 0 {
		n = 1
	}
	s.last = n
	return fmt.Sprintf("%09d", n)
}

var defaultSecurityCodes = NewClockSecurityCodes(nil)

// CDCGenerator arma CDCs usando una fuente de códigos de seguridad inyectada.
type CDCGenerator struct {
	codes SecurityCodeSource
}

// NewCDCGenerator crea el generador. codes nil usa la fuente basada en reloj.
func NewCDCGenerator(codes SecurityCodeSource) *CDCGenerator {
	if codes == nil {
		codes = defaultSecurityCodes
	}
	return &CDCGenerator{codes: codes}
}

// GenerateCDC genera el CDC con la fuente por defecto.
func GenerateCDC(f CDCFields) (string, error) {
	return NewCDCGenerator(nil).Generate(f)
}

// Generate arma los 43 dígitos y agrega el dígito verificador.
// Nunca trunca: un campo más ancho que su posición es un error.
func (g *CDCGenerator) Generate(f CDCFields) (string, error) {
	secCode := onlyDigits(f.SecurityCode)
	if secCode == "" {
		secCode = g.codes.Next()
	}

	parts := []struct {
		name     string
		value    string
		width    int
		required bool
	}{
		{"tipo de documento", f.DocumentType, widthDocumentType, true},
		{"RUC", f.RUC, widthRUC, true},
		{"DV", f.DV, widthDV, true},
		{"establecimiento", f.Establishment, widthEstablishment, false},
		{"punto de expedición", f.ExpeditionPoint, widthExpeditionPoint, false},
		{"número", f.Number, widthNumber, true},
		{"tipo de contribuyente", f.TaxpayerType, widthTaxpayerType, false},
		{"fecha", f.Date, widthDate, true},
		{"tipo de emisión", f.EmissionType, widthEmissionType, false},
		{"código de seguridad", secCode, widthSecurityCode, true},
	}

	var b strings.Builder
	b.Grow(CDCLength)
	for _, p := range parts {
		digits := onlyDigits(p.value)
		if digits == "" && p.required {
			return "", fmt.Errorf("%w: %s vacío", ErrInvalidIdentityFields, p.name)
		}
		if len(digits) > p.width {
			return "", fmt.Errorf("%w: %s %q excede %d dígitos", ErrInvalidIdentityFields, p.name, digits, p.width)
		}
		b.WriteString(padLeft(digits, p.width))
	}

	base := b.String()
	dv, err := CheckDigit(base)
	if err != nil {
		return "", err
	}
	return base + strconv.Itoa(dv), nil
}

// CheckDigit calcula el dígito verificador módulo 11 con pesos 2..11 desde la derecha.
// Resultados 10 u 11 se convierten en 0.
func CheckDigit(digits string) (int, error) {
	if digits == "" {
		return 0, fmt.Errorf("%w: cadena vacía", ErrInvalidIdentityFields)
	}
	sum, weight := 0, 2
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: carácter no numérico %q", ErrInvalidIdentityFields, c)
		}
		sum += int(c-'0') * weight
		weight++
		if weight > 11 {
			weight = 2
		}
	}
	dv := 11 - sum%11
	if dv >= 10 {
		dv = 0
	}
	return dv, nil
}

// ValidateCDC verifica largo, que sea numérico y su dígito verificador.
func ValidateCDC(cdc string) error {
	if len(cdc) != CDCLength {
		return fmt.Errorf("%w: el CDC debe tener %d dígitos, tiene %d", ErrInvalidIdentityFields, CDCLength, len(cdc))
	}
	dv, err := CheckDigit(cdc[:CDCLength-1])
	if err != nil {
		return err
	}
	if int(cdc[CDCLength-1]-'0') != dv {
		return fmt.Errorf("%w: dígito verificador esperado %d, recibido %c", ErrInvalidIdentityFields, dv, cdc[CDCLength-1])
	}
	return nil
}

// SplitCDC descompone un CDC válido en sus campos.
func SplitCDC(cdc string) (CDCFields, error) {
	if err := ValidateCDC(cdc); err != nil {
		return CDCFields{}, err
	}
	pos := 0
	next := func(w int) string {
		s := cdc[pos : pos+w]
		pos += w
		return s
	}
	return CDCFields{
		DocumentType:    next(widthDocumentType),
		RUC:             next(widthRUC),
		DV:              next(widthDV),
		Establishment:   next(widthEstablishment),
		ExpeditionPoint: next(widthExpeditionPoint),
		Number:          next(widthNumber),
		TaxpayerType:    next(widthTaxpayerType),
		Date:            next(widthDate),
		EmissionType:    next(widthEmissionType),
		SecurityCode:    next(widthSecurityCode),
	}, nil
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// OnlyDigits quita todo lo que no sea dígito ASCII.
func OnlyDigits(s string) string { return onlyDigits(s) }

// PadLeft rellena con ceros a la izquierda hasta width.
func PadLeft(s string, width int) string { return padLeft(s, width) }
