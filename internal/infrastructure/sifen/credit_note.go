package sifen

import (
	"strconv"

	"github.com/beevik/etree"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// writeCreditNoteMotive agrega gCamNCDE como primer hijo de gDtipDE.
func writeCreditNoteMotive(gDtipDE *etree.Element, reason string) {
	motive := sifen.ClassifyMotive(reason)
	g := gDtipDE.CreateElement("gCamNCDE")
	add(g, "iMotEmi", strconv.Itoa(int(motive)))
	add(g, "dDesMotEmi", sifen.MotiveDescription(motive, reason))
}

// writeAssociatedDocument agrega gCamDEAsoc con el CDC de la factura referenciada.
func writeAssociatedDocument(de *etree.Element, cdc string) {
	g := de.CreateElement("gCamDEAsoc")
	add(g, "iTipDocAso", strconv.Itoa(sifen.AssociatedElectronic))
	add(g, "dDesTipDocAso", sifen.AssociatedElectronicDesc)
	add(g, "dCdCDERef", cdc)
}
