package sifen

import (
	"fmt"
	"strconv"

	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// CDCFieldsFor arma los campos del CDC desde el documento y el emisor.
func CDCFieldsFor(doc *entity.FiscalDocument, em *entity.Emitter) sifen.CDCFields {
	return sifen.CDCFields{
		DocumentType:    doc.Kind.TypeCode(),
		RUC:             em.RUC,
		DV:              em.DV,
		Establishment:   doc.Establishment,
		ExpeditionPoint: doc.ExpeditionPoint,
		Number:          doc.Number,
		TaxpayerType:    strconv.Itoa(em.TaxpayerType),
		Date:            sifen.FormatCDCDate(doc.IssuedAt),
		EmissionType:    sifen.EmissionNormal,
		SecurityCode:    doc.SecurityCode,
	}
}

// AssignCDC genera el CDC una sola vez y lo deja en el documento junto al código de seguridad.
// Si el documento ya tiene CDC no lo toca.
func AssignCDC(doc *entity.FiscalDocument, em *entity.Emitter, gen *sifen.CDCGenerator) (string, error) {
	if doc.CDC != "" {
		return doc.CDC, nil
	}
	cdc, err := gen.Generate(CDCFieldsFor(doc, em))
	if err != nil {
		return "", fmt.Errorf("generar CDC: %w", err)
	}
	parts, err := sifen.SplitCDC(cdc)
	if err != nil {
		return "", err
	}
	doc.CDC = cdc
	doc.SecurityCode = parts.SecurityCode
	return cdc, nil
}

// CDCMatches indica si el CDC guardado sigue correspondiendo a los campos de identidad actuales.
func CDCMatches(doc *entity.FiscalDocument, em *entity.Emitter) bool {
	if doc.CDC == "" {
		return false
	}
	f := CDCFieldsFor(doc, em)
	f.SecurityCode = doc.SecurityCode
	cdc, err := sifen.GenerateCDC(f)
	if err != nil {
		return false
	}
	return cdc == doc.CDC
}
