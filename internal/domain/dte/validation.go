package dte

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// CancellationWindow plazo para cancelar un DE aprobado.
const CancellationWindow = 48 * time.Hour

// ValidateEmitter verifica los datos maestros obligatorios del emisor.
// Devuelve todos los faltantes juntos, envueltos en ErrMissingMasterData.
func ValidateEmitter(e *entity.Emitter) error {
	if e == nil {
		return fmt.Errorf("%w: emisor nulo", domain.ErrMissingMasterData)
	}
	var errs []error
	if sifen.OnlyDigits(e.RUC) == "" {
		errs = append(errs, errors.New("RUC del emisor vacío"))
	} else if err := sifen.ValidateRUC(e.RUC, e.DV); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, errors.New("razón social del emisor vacía"))
	}
	if strings.TrimSpace(e.Address) == "" {
		errs = append(errs, errors.New("dirección del emisor vacía"))
	}
	if sifen.OnlyDigits(e.Timbrado.Number) == "" || e.Timbrado.StartDate.IsZero() {
		errs = append(errs, errors.New("timbrado sin número o fecha de inicio"))
	}
	if e.DepartmentCode <= 0 || e.DistrictCode <= 0 || e.CityCode <= 0 {
		errs = append(errs, errors.New("códigos geográficos del emisor incompletos"))
	}
	if len(e.Activities) == 0 {
		errs = append(errs, errors.New("el emisor no tiene actividades económicas"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{domain.ErrMissingMasterData}, errs...)...)
	}
	return nil
}

// ValidateReceiver verifica que un receptor contribuyente tenga RUC con DV correcto.
// Los no contribuyentes nunca fallan: sin documento se emiten como innominados.
func ValidateReceiver(r entity.Receiver) error {
	if !r.IsTaxpayer() {
		return nil
	}
	if sifen.OnlyDigits(r.RUC) == "" {
		return fmt.Errorf("%w: receptor contribuyente sin RUC", domain.ErrMissingMasterData)
	}
	if err := sifen.ValidateRUC(r.RUC, r.DV); err != nil {
		return fmt.Errorf("%w: receptor: %v", domain.ErrMissingMasterData, err)
	}
	return nil
}

// ValidateReference verifica que la nota de crédito apunte a una factura aprobada.
func ValidateReference(nc *entity.FiscalDocument, referenced *entity.FiscalDocument) error {
	if nc.Reference == nil || nc.Reference.CDC == "" {
		return fmt.Errorf("%w: la nota de crédito no indica CDC de referencia", domain.ErrInvalidReference)
	}
	if referenced == nil {
		return fmt.Errorf("%w: CDC %s no existe", domain.ErrInvalidReference, nc.Reference.CDC)
	}
	if referenced.Kind != entity.KindInvoice || referenced.Status != entity.StatusAccepted {
		return fmt.Errorf("%w: CDC %s en estado %s", domain.ErrInvalidReference, nc.Reference.CDC, referenced.Status)
	}
	return nil
}

// NormalizeReason recorta el motivo y valida su largo (5 a 500 caracteres).
func NormalizeReason(reason string) (string, error) {
	r := strings.TrimSpace(reason)
	n := utf8.RuneCountInString(r)
	if n < sifen.EventCancellationMinReason || n > sifen.EventCancellationMaxReason {
		return "", fmt.Errorf("%w: recibidos %d", domain.ErrInvalidReason, n)
	}
	return r, nil
}

// ValidateCancellable verifica estado aprobado y plazo de 48 horas desde la aprobación.
func ValidateCancellable(doc *entity.FiscalDocument, now time.Time) error {
	if doc.Status != entity.StatusAccepted {
		return fmt.Errorf("%w: el documento está en %s", domain.ErrInvalidTransition, doc.Status)
	}
	if doc.AcceptedAt == nil {
		return fmt.Errorf("%w: sin fecha de aprobación", domain.ErrCancellationWindow)
	}
	if now.Sub(*doc.AcceptedAt) > CancellationWindow {
		return fmt.Errorf("%w: aprobado el %s", domain.ErrCancellationWindow, doc.AcceptedAt.Format(time.RFC3339))
	}
	return nil
}

// ValidateNoOpenCancellation exige que el documento no tenga un evento de cancelación
// pendiente o registrado.
func ValidateNoOpenCancellation(events []*entity.CancellationEvent) error {
	for _, ev := range events {
		if ev.Status == entity.EventPending || ev.Status == entity.EventRegistered {
			return fmt.Errorf("%w: el documento ya tiene el evento %d en %s", domain.ErrInvalidTransition, ev.ID, ev.Status)
		}
	}
	return nil
}
