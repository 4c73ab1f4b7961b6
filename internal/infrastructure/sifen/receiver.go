package sifen

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// receiverClass resultado de clasificar al receptor.
type receiverClass struct {
	taxpayer  bool
	anonymous bool
	docType   int
	docNumber string
	name      string
	qrParam   string // dRucRec o dNumIDRec
	qrValue   string
}

// classifyReceiver decide cómo se identifica al receptor. Un no contribuyente sin
// documento utilizable (tipo 9, vacío o "0") se emite como innominado.
func classifyReceiver(r entity.Receiver) receiverClass {
	if r.IsTaxpayer() {
		ruc := sifen.OnlyDigits(r.RUC)
		return receiverClass{
			taxpayer: true,
			name:     nameOr(r.Name, "SIN NOMBRE"),
			qrParam:  "dRucRec",
			qrValue:  ruc,
		}
	}

	num := sifen.OnlyDigits(r.DocNumber)
	if r.DocType == sifen.IDPasaporte || r.DocType == sifen.IDCedulaExtranjera {
		// pasaportes y documentos extranjeros pueden ser alfanuméricos
		num = strings.TrimSpace(r.DocNumber)
	}
	unusable := r.DocType == sifen.IDOtro || r.DocType == sifen.IDInnominado || r.DocType == 0 ||
		num == "" || strings.Trim(num, "0") == ""
	if unusable {
		return receiverClass{
			anonymous: true,
			docType:   sifen.IDInnominado,
			docNumber: "0",
			name:      sifen.AnonymousReceiverNm,
			qrParam:   "dNumIDRec",
			qrValue:   "0",
		}
	}
	return receiverClass{
		docType:   r.DocType,
		docNumber: num,
		name:      nameOr(r.Name, sifen.AnonymousReceiverNm),
		qrParam:   "dNumIDRec",
		qrValue:   num,
	}
}

// writeReceiver agrega gDatRec respetando el orden del XSD.
func writeReceiver(parent *etree.Element, r entity.Receiver, rc receiverClass) {
	g := parent.CreateElement("gDatRec")
	if rc.taxpayer {
		add(g, "iNatRec", strconv.Itoa(sifen.ReceiverTaxpayer))
		add(g, "iTiOpe", strconv.Itoa(sifen.OperationB2B))
	} else {
		add(g, "iNatRec", strconv.Itoa(sifen.ReceiverNonTaxpayer))
		add(g, "iTiOpe", strconv.Itoa(sifen.OperationB2C))
	}
	country := r.Country
	if country == "" {
		country = "PRY"
	}
	add(g, "cPaisRec", country)
	add(g, "dDesPaisRe", countryName(country))

	if rc.taxpayer {
		contType := r.ContributorType
		if contType == 0 {
			contType = 1
		}
		add(g, "iTiContRec", strconv.Itoa(contType))
		add(g, "dRucRec", rc.qrValue)
		add(g, "dDVRec", sifen.OnlyDigits(r.DV))
	} else {
		add(g, "iTipIDRec", strconv.Itoa(rc.docType))
		add(g, "dDTipIDRec", sifen.ReceiverIDDescription(rc.docType))
		add(g, "dNumIDRec", rc.docNumber)
	}
	add(g, "dNomRec", rc.name)
	if rc.anonymous {
		return
	}
	addOpt(g, "dDirRec", r.Address)
	if strings.TrimSpace(r.Address) != "" {
		addOpt(g, "dNumCasRec", nameOr(r.HouseNumber, "0"))
	}
	addOpt(g, "dTelRec", r.Phone)
	addOpt(g, "dEmailRec", r.Email)
}

func countryName(iso string) string {
	switch iso {
	case "PRY":
		return "Paraguay"
	case "ARG":
		return "Argentina"
	case "BRA":
		return "Brasil"
	case "BOL":
		return "Bolivia"
	case "URY":
		return "Uruguay"
	default:
		return iso
	}
}

func nameOr(s, def string) string {
	if t := strings.TrimSpace(s); t != "" {
		return t
	}
	return def
}
