package dte

import (
	"fmt"

	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
	"github.com/shopspring/decimal"
)

var (
	hundred       = decimal.NewFromInt(100)
	divisor10     = decimal.NewFromInt(110)
	divisor5      = decimal.NewFromInt(105)
	maxDiscountPc = decimal.NewFromInt(100)
)

// Precision decimales de la moneda: guaraníes sin decimales, el resto con 2.
func Precision(currency string) int32 {
	if currency == "" || currency == "PYG" {
		return 0
	}
	return 2
}

// ComputeLine calcula bruto, neto, base imponible e IVA de una línea.
// Los montos se truncan hacia cero a la precisión de la moneda; el IVA es el
// remanente del monto, así base + IVA siempre reconstruye el total de la línea.
func ComputeLine(l *entity.DocumentLine, precision int32) error {
	cat := sifen.VATCategory(l.VATCategory)
	if !cat.Valid() {
		return fmt.Errorf("%w: categoría de IVA %q desconocida", domain.ErrMissingMasterData, l.VATCategory)
	}
	if !l.Quantity.IsPositive() {
		return fmt.Errorf("%w: la cantidad de %q debe ser mayor a cero", domain.ErrInvalidInput, l.Code)
	}
	if l.UnitPrice.IsNegative() || l.Discount.IsNegative() {
		return fmt.Errorf("%w: precio y descuento de %q no pueden ser negativos", domain.ErrInvalidInput, l.Code)
	}

	gross := l.Quantity.Mul(l.UnitPrice).Truncate(precision)
	discount := l.Discount.Truncate(precision)
	amount := gross.Sub(discount)
	if amount.IsNegative() {
		return fmt.Errorf("%w: el descuento de %q supera el bruto", domain.ErrInvalidInput, l.Code)
	}

	l.Gross = gross
	l.Discount = discount
	l.Amount = amount
	l.TaxBase = decimal.Zero
	l.VAT = decimal.Zero
	l.ExemptBas = decimal.Zero

	switch cat {
	case sifen.VAT10:
		l.TaxBase = amount.Mul(hundred).Div(divisor10).Truncate(precision)
		l.VAT = amount.Sub(l.TaxBase)
	case sifen.VAT5:
		l.TaxBase = amount.Mul(hundred).Div(divisor5).Truncate(precision)
		l.VAT = amount.Sub(l.TaxBase)
	default:
		l.ExemptBas = amount
	}
	return nil
}

// DiscountPercent porcentaje de descuento de la línea (dPorcDesIt) con 2 decimales.
func DiscountPercent(l entity.DocumentLine) decimal.Decimal {
	if l.Gross.IsZero() || l.Discount.IsZero() {
		return decimal.Zero
	}
	pct := l.Discount.Mul(hundred).Div(l.Gross).Truncate(2)
	if pct.GreaterThan(maxDiscountPc) {
		return maxDiscountPc
	}
	return pct
}

// ComputeTotals calcula cada línea y acumula gTotSub. El total general es la suma de los montos de línea.
func ComputeTotals(lines []entity.DocumentLine, currency string) (entity.Totals, error) {
	if len(lines) == 0 {
		return entity.Totals{}, fmt.Errorf("%w: el documento debe tener al menos una línea", domain.ErrMissingMasterData)
	}
	prec := Precision(currency)

	var t entity.Totals
	for i := range lines {
		l := &lines[i]
		if err := ComputeLine(l, prec); err != nil {
			return entity.Totals{}, fmt.Errorf("línea %d: %w", i+1, err)
		}
		t.TotalOpe = t.TotalOpe.Add(l.Amount)
		t.Discount = t.Discount.Add(l.Discount)
		switch sifen.VATCategory(l.VATCategory) {
		case sifen.VAT10:
			t.Sub10 = t.Sub10.Add(l.Amount)
			t.Base10 = t.Base10.Add(l.TaxBase)
			t.VAT10 = t.VAT10.Add(l.VAT)
		case sifen.VAT5:
			t.Sub5 = t.Sub5.Add(l.Amount)
			t.Base5 = t.Base5.Add(l.TaxBase)
			t.VAT5 = t.VAT5.Add(l.VAT)
		default:
			t.SubExempt = t.SubExempt.Add(l.Amount)
		}
	}
	t.Rounding = decimal.Zero
	t.GrandTotal = t.TotalOpe.Sub(t.Rounding)
	t.TotalVAT = t.VAT5.Add(t.VAT10)
	t.TotalBase = t.Base5.Add(t.Base10)
	return t, nil
}
