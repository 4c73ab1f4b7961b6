package sifen

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CreditNoteMotive motivo de emisión de la nota de crédito (iMotEmi).
type CreditNoteMotive int

const (
	MotiveReturnAndPriceAdjust CreditNoteMotive = 1
	MotiveReturn               CreditNoteMotive = 2
	MotiveDiscount             CreditNoteMotive = 3
	MotiveBonus                CreditNoteMotive = 4
	MotiveBadDebt              CreditNoteMotive = 5
	MotiveCostRecovery         CreditNoteMotive = 6
	MotiveExpenseRecovery      CreditNoteMotive = 7
	MotivePriceAdjust          CreditNoteMotive = 8
)

// maxMotiveDescription largo máximo de dDesMotEmi.
const maxMotiveDescription = 60

// Description texto oficial de iMotEmi.
func (m CreditNoteMotive) Description() string {
	switch m {
	case MotiveReturnAndPriceAdjust:
		return "Devolución y Ajuste de precios"
	case MotiveReturn:
		return "Devolución"
	case MotiveDiscount:
		return "Descuento"
	case MotiveBonus:
		return "Bonificación"
	case MotiveBadDebt:
		return "Crédito incobrable"
	case MotiveCostRecovery:
		return "Recupero de costo"
	case MotiveExpenseRecovery:
		return "Recupero de gasto"
	case MotivePriceAdjust:
		return "Ajuste de precio"
	default:
		return "Devolución"
	}
}

// ClassifyMotive asigna el motivo a partir del texto libre del operador.
// La comparación ignora mayúsculas y acentos; sin coincidencias devuelve devolución.
func ClassifyMotive(reason string) CreditNoteMotive {
	r := FoldAccents(reason)
	has := func(words ...string) bool {
		for _, w := range words {
			if !strings.Contains(r, w) {
				return false
			}
		}
		return true
	}

	switch {
	case has("ajuste", "precio", "devol"):
		return MotiveReturnAndPriceAdjust
	case has("devol"):
		return MotiveReturn
	case has("descuento"):
		return MotiveDiscount
	case has("bonific"):
		return MotiveBonus
	case has("incobrable"):
		return MotiveBadDebt
	case has("recupero", "costo"):
		return MotiveCostRecovery
	case has("recupero", "gasto"):
		return MotiveExpenseRecovery
	case has("ajuste", "precio"):
		return MotivePriceAdjust
	default:
		return MotiveReturn
	}
}

// MotiveDescription texto para dDesMotEmi: la razón del operador recortada, o la descripción oficial.
func MotiveDescription(m CreditNoteMotive, reason string) string {
	s := strings.TrimSpace(reason)
	if s == "" {
		s = m.Description()
	}
	rs := []rune(s)
	if len(rs) > maxMotiveDescription {
		rs = rs[:maxMotiveDescription]
	}
	return string(rs)
}

// FoldAccents pasa a minúsculas y quita diacríticos ("Devolución" -> "devolucion").
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
