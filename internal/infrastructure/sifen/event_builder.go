package sifen

import (
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/dte"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// CancellationEventInput datos del evento de cancelación.
type CancellationEventInput struct {
	EventID     int64
	CDC         string
	Reason      string
	SigningTime time.Time
}

// BuildCancellationEvent arma gGroupGesEve/rGesEve/rEve(Id) con rGeVeCan. El elemento a firmar es rEve.
func BuildCancellationEvent(in CancellationEventInput) (*etree.Document, string, error) {
	if in.EventID <= 0 {
		return nil, "", fmt.Errorf("%w: id de evento inválido", domain.ErrInvalidInput)
	}
	if err := sifen.ValidateCDC(in.CDC); err != nil {
		return nil, "", err
	}
	reason, err := dte.NormalizeReason(in.Reason)
	if err != nil {
		return nil, "", err
	}
	id := strconv.FormatInt(in.EventID, 10)

	doc := etree.NewDocument()
	root := doc.CreateElement("gGroupGesEve")
	root.CreateAttr("xmlns", sifen.NamespaceSIFEN)
	root.CreateAttr("xmlns:xsi", sifen.NamespaceXSI)
	root.CreateAttr("xsi:schemaLocation", sifen.SchemaLocationEvent)

	rEve := root.CreateElement("rGesEve").CreateElement("rEve")
	rEve.CreateAttr("Id", id)
	add(rEve, "dFecFirma", formatDateTime(in.SigningTime))
	add(rEve, "dVerFor", sifen.FormatVersion)

	can := rEve.CreateElement("gGroupTiEvt").CreateElement("rGeVeCan")
	add(can, "Id", in.CDC)
	add(can, "mOtEve", reason)

	return doc, id, nil
}
