package sifen

import (
	"fmt"
	"strconv"
	"strings"
)

// ComputeRUCDV calcula el dígito verificador de un RUC paraguayo (módulo 11, igual que el CDC).
// ruc puede venir con puntos o espacios; no debe incluir el DV.
func ComputeRUCDV(ruc string) (int, error) {
	digits := onlyDigits(ruc)
	if digits == "" {
		return 0, fmt.Errorf("sifen: RUC vacío")
	}
	if len(digits) > widthRUC {
		return 0, fmt.Errorf("sifen: RUC %q excede %d dígitos", digits, widthRUC)
	}
	return CheckDigit(digits)
}

// SplitRUC separa "80069563-1" en RUC y DV. Sin guion se asume que el último dígito es el DV.
func SplitRUC(rucWithDV string) (ruc, dv string) {
	s := strings.TrimSpace(rucWithDV)
	if i := strings.LastIndex(s, "-"); i >= 0 {
		return onlyDigits(s[:i]), onlyDigits(s[i+1:])
	}
	d := onlyDigits(s)
	if len(d) < 2 {
		return d, ""
	}
	return d[:len(d)-1], d[len(d)-1:]
}

// ValidateRUC valida que el DV corresponda al RUC.
func ValidateRUC(ruc, dv string) error {
	expected, err := ComputeRUCDV(ruc)
	if err != nil {
		return err
	}
	got := onlyDigits(dv)
	if got == "" {
		return fmt.Errorf("sifen: DV del RUC %s vacío", onlyDigits(ruc))
	}
	if got != strconv.Itoa(expected) {
		return fmt.Errorf("sifen: DV del RUC %s inválido: esperado %d, recibido %s", onlyDigits(ruc), expected, got)
	}
	return nil
}
