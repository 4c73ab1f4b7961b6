package sifen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/dte"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
	"github.com/shopspring/decimal"
)

// XMLBuilderService construye el rDE v150 sin firma. Es puro: no hace I/O ni lee el reloj.
type XMLBuilderService struct {
	cdc *sifen.CDCGenerator
}

// NewXMLBuilderService crea el servicio. gen nil usa el generador por defecto.
func NewXMLBuilderService(gen *sifen.CDCGenerator) *XMLBuilderService {
	if gen == nil {
		gen = sifen.NewCDCGenerator(nil)
	}
	return &XMLBuilderService{cdc: gen}
}

// Build genera el árbol rDE / dVerFor / DE(Id=CDC) / gCamFuFD con el QR provisorio.
func (s *XMLBuilderService) Build(ctx *BuildContext) (*BuildResult, error) {
	if ctx == nil || ctx.Document == nil || ctx.Emitter == nil {
		return nil, fmt.Errorf("%w: faltan documento o emisor en el contexto", domain.ErrMissingMasterData)
	}
	doc, em := ctx.Document, ctx.Emitter

	if err := dte.ValidateEmitter(em); err != nil {
		return nil, err
	}
	if err := dte.ValidateReceiver(doc.Receiver); err != nil {
		return nil, err
	}
	if doc.IsCreditNote() {
		if doc.Reference == nil || sifen.ValidateCDC(doc.Reference.CDC) != nil {
			return nil, fmt.Errorf("%w: CDC de referencia ausente o inválido", domain.ErrInvalidReference)
		}
	}

	lines := make([]entity.DocumentLine, len(doc.Lines))
	copy(lines, doc.Lines)
	totals, err := dte.ComputeTotals(lines, doc.Currency)
	if err != nil {
		return nil, err
	}

	cdc := doc.CDC
	if cdc == "" {
		if cdc, err = s.cdc.Generate(CDCFieldsFor(doc, em)); err != nil {
			return nil, err
		}
	} else if err := sifen.ValidateCDC(cdc); err != nil {
		return nil, err
	}

	rc := classifyReceiver(doc.Receiver)
	qr := NewQRSkeleton(ctx.Environment, doc, cdc, rc, totals, ctx.CSCID)

	xdoc := etree.NewDocument()
	rde := xdoc.CreateElement("rDE")
	rde.CreateAttr("xmlns", sifen.NamespaceSIFEN)
	rde.CreateAttr("xmlns:xsi", sifen.NamespaceXSI)
	rde.CreateAttr("xsi:schemaLocation", sifen.SchemaLocationDE)
	add(rde, "dVerFor", sifen.FormatVersion)

	de := rde.CreateElement("DE")
	de.CreateAttr("Id", cdc)
	add(de, "dDVId", cdc[len(cdc)-1:])
	add(de, "dFecFirma", formatDateTime(ctx.SigningTime))
	add(de, "dSisFact", sifen.SystemFacturation)

	gOpeDE := de.CreateElement("gOpeDE")
	add(gOpeDE, "iTipEmi", sifen.EmissionNormal)
	add(gOpeDE, "dDesTipEmi", sifen.EmissionNormalDesc)
	add(gOpeDE, "dCodSeg", cdc[34:43])

	s.writeTimbrado(de, doc, em)
	s.writeGeneralData(de, doc, em, rc)

	gDtipDE := de.CreateElement("gDtipDE")
	if doc.IsCreditNote() {
		writeCreditNoteMotive(gDtipDE, doc.Reference.Reason)
	} else {
		gCamFE := gDtipDE.CreateElement("gCamFE")
		add(gCamFE, "iIndPres", strconv.Itoa(sifen.PresenceInPerson))
		add(gCamFE, "dDesIndPres", sifen.PresenceInPersonDesc)
		if err := s.writePaymentCondition(gDtipDE, doc, totals); err != nil {
			return nil, err
		}
	}
	s.writeItems(gDtipDE, lines, doc.Currency)
	s.writeTotals(de, totals, doc)
	if doc.IsCreditNote() {
		writeAssociatedDocument(de, doc.Reference.CDC)
	}

	gCamFuFD := rde.CreateElement("gCamFuFD")
	add(gCamFuFD, "dCarQR", qr.Text())

	return &BuildResult{Doc: xdoc, CDC: cdc, QR: qr, Totals: totals}, nil
}

func (s *XMLBuilderService) writeTimbrado(de *etree.Element, doc *entity.FiscalDocument, em *entity.Emitter) {
	code := doc.Kind.TypeCode()
	g := de.CreateElement("gTimb")
	add(g, "iTiDE", strings.TrimLeft(code, "0"))
	add(g, "dDesTiDE", sifen.DocumentTypeDescription(code))
	add(g, "dNumTim", sifen.PadLeft(sifen.OnlyDigits(em.Timbrado.Number), 8))
	add(g, "dEst", sifen.PadLeft(sifen.OnlyDigits(doc.Establishment), 3))
	add(g, "dPunExp", sifen.PadLeft(sifen.OnlyDigits(doc.ExpeditionPoint), 3))
	add(g, "dNumDoc", sifen.PadLeft(sifen.OnlyDigits(doc.Number), 7))
	if serie := serieLetters(em.Timbrado.Serie); serie != "" {
		add(g, "dSerieNum", serie)
	}
	add(g, "dFeIniT", em.Timbrado.StartDate.Format("2006-01-02"))
}

func (s *XMLBuilderService) writeGeneralData(de *etree.Element, doc *entity.FiscalDocument, em *entity.Emitter, rc receiverClass) {
	g := de.CreateElement("gDatGralOpe")
	add(g, "dFeEmiDE", formatDateTime(doc.IssuedAt))

	currency := doc.Currency
	if currency == "" {
		currency = "PYG"
	}
	ope := g.CreateElement("gOpeCom")
	if !doc.IsCreditNote() {
		tt := doc.TransactionType
		if tt == 0 {
			tt = 1
		}
		add(ope, "iTipTra", strconv.Itoa(tt))
		add(ope, "dDesTipTra", sifen.TransactionTypeDescription(tt))
	}
	add(ope, "iTImp", sifen.TaxTypeIVA)
	add(ope, "dDesTImp", sifen.TaxTypeIVADesc)
	add(ope, "cMoneOpe", currency)
	add(ope, "dDesMoneOpe", sifen.CurrencyDescription(currency))
	if currency != "PYG" {
		add(ope, "dCondTiCam", "1")
		add(ope, "dTiCam", doc.ExchangeRate.StringFixed(2))
	}

	emis := g.CreateElement("gEmis")
	add(emis, "dRucEm", sifen.OnlyDigits(em.RUC))
	add(emis, "dDVEmi", sifen.OnlyDigits(em.DV))
	add(emis, "iTipCont", strconv.Itoa(em.TaxpayerType))
	add(emis, "dNomEmi", strings.TrimSpace(em.Name))
	addOpt(emis, "dNomFanEmi", em.TradeName)
	add(emis, "dDirEmi", strings.TrimSpace(em.Address))
	add(emis, "dNumCas", nameOr(em.HouseNumber, "0"))
	add(emis, "cDepEmi", strconv.Itoa(em.DepartmentCode))
	add(emis, "dDesDepEmi", nameOr(em.DepartmentName, sifen.DepartmentName(em.DepartmentCode)))
	add(emis, "cDisEmi", strconv.Itoa(em.DistrictCode))
	add(emis, "dDesDisEmi", nameOr(em.DistrictName, "DISTRITO "+strconv.Itoa(em.DistrictCode)))
	add(emis, "cCiuEmi", strconv.Itoa(em.CityCode))
	add(emis, "dDesCiuEmi", nameOr(em.CityName, "CIUDAD "+strconv.Itoa(em.CityCode)))
	add(emis, "dTelEmi", nameOr(em.Phone, "000000"))
	add(emis, "dEmailE", nameOr(em.Email, "sin@correo.com.py"))
	for i, act := range em.Activities {
		if i == 9 {
			break
		}
		a := emis.CreateElement("gActEco")
		add(a, "cActEco", act.Code)
		add(a, "dDesActEco", nameOr(act.Description, "ACTIVIDAD ECONOMICA"))
	}

	writeReceiver(g, doc.Receiver, rc)
}

func (s *XMLBuilderService) writePaymentCondition(gDtipDE *etree.Element, doc *entity.FiscalDocument, t entity.Totals) error {
	p := doc.Payment
	cond := p.Condition
	if cond == 0 {
		cond = sifen.ConditionCash
	}
	currency := doc.Currency
	if currency == "" {
		currency = "PYG"
	}
	prec := dte.Precision(currency)

	g := gDtipDE.CreateElement("gCamCond")
	add(g, "iCondOpe", strconv.Itoa(cond))
	add(g, "dDCondOpe", sifen.ConditionDescription(cond))

	switch cond {
	case sifen.ConditionCash:
		payments := p.Payments
		if len(payments) == 0 {
			payments = []entity.PaymentEntry{{Type: 1, Amount: t.GrandTotal, Currency: currency}}
		}
		for _, pay := range payments {
			cur := pay.Currency
			if cur == "" {
				cur = currency
			}
			e := g.CreateElement("gPaConEIni")
			add(e, "iTiPago", strconv.Itoa(pay.Type))
			add(e, "dDesTiPag", sifen.PaymentTypeDescription(pay.Type))
			add(e, "dMonTiPag", pay.Amount.StringFixed(dte.Precision(cur)))
			add(e, "cMoneTiPag", cur)
			add(e, "dDMoneTiPag", sifen.CurrencyDescription(cur))
		}
	case sifen.ConditionCredit:
		credit := p.CreditType
		if credit == 0 {
			credit = sifen.CreditTerm
			if len(p.Installments) > 0 {
				credit = sifen.CreditInstallment
			}
		}
		c := g.CreateElement("gPagCred")
		add(c, "iCondCred", strconv.Itoa(credit))
		add(c, "dDCondCred", sifen.CreditConditionDescription(credit))
		if credit == sifen.CreditInstallment {
			if len(p.Installments) == 0 {
				return fmt.Errorf("%w: crédito en cuotas sin cuotas", domain.ErrInvalidInput)
			}
			add(c, "dCuotas", strconv.Itoa(len(p.Installments)))
			for _, in := range p.Installments {
				q := c.CreateElement("gCuotas")
				add(q, "cMoneCuo", currency)
				add(q, "dDMoneCuo", sifen.CurrencyDescription(currency))
				add(q, "dMonCuota", in.Amount.StringFixed(prec))
				if !in.DueDate.IsZero() {
					add(q, "dVencCuo", in.DueDate.Format("2006-01-02"))
				}
			}
		} else {
			days := p.TermDays
			if days <= 0 {
				return fmt.Errorf("%w: crédito a plazo sin días", domain.ErrInvalidInput)
			}
			add(c, "dPlazoCre", fmt.Sprintf("%d días", days))
		}
	default:
		return fmt.Errorf("%w: condición de operación %d desconocida", domain.ErrInvalidInput, cond)
	}
	return nil
}

func (s *XMLBuilderService) writeItems(gDtipDE *etree.Element, lines []entity.DocumentLine, currency string) {
	prec := dte.Precision(currency)
	for _, l := range lines {
		it := gDtipDE.CreateElement("gCamItem")
		add(it, "dCodInt", nameOr(l.Code, "0"))
		add(it, "dDesProSer", nameOr(l.Description, "ITEM"))
		unit := l.Unit
		if unit == "" {
			unit = sifen.UnitDefault
		}
		add(it, "cUniMed", unit)
		add(it, "dDesUniMed", sifen.UnitDefaultDesc)
		add(it, "dCantProSer", l.Quantity.StringFixed(4))

		val := it.CreateElement("gValorItem")
		add(val, "dPUniProSer", l.UnitPrice.StringFixed(prec))
		add(val, "dTotBruOpeItem", l.Gross.StringFixed(prec))
		rest := val.CreateElement("gValorRestaItem")
		add(rest, "dDescItem", l.Discount.StringFixed(prec))
		add(rest, "dPorcDesIt", dte.DiscountPercent(l).StringFixed(2))
		add(rest, "dTotOpeItem", l.Amount.StringFixed(prec))

		cat := sifen.VATCategory(l.VATCategory)
		afec, desc := cat.Affectation()
		iva := it.CreateElement("gCamIVA")
		add(iva, "iAfecIVA", strconv.Itoa(afec))
		add(iva, "dDesAfecIVA", desc)
		if afec == 1 {
			add(iva, "dPropIVA", "100")
		} else {
			add(iva, "dPropIVA", "0")
		}
		add(iva, "dTasaIVA", strconv.Itoa(cat.Rate()))
		add(iva, "dBasGravIVA", l.TaxBase.StringFixed(prec))
		add(iva, "dLiqIVAItem", l.VAT.StringFixed(prec))
		add(iva, "dBasExe", l.ExemptBas.StringFixed(prec))
	}
}

func (s *XMLBuilderService) writeTotals(de *etree.Element, t entity.Totals, doc *entity.FiscalDocument) {
	prec := dte.Precision(doc.Currency)
	g := de.CreateElement("gTotSub")
	f := func(tag string, v decimal.Decimal) { add(g, tag, v.StringFixed(prec)) }
	f("dSubExe", t.SubExempt)
	f("dSub5", t.Sub5)
	f("dSub10", t.Sub10)
	f("dTotOpe", t.TotalOpe)
	f("dTotDesc", t.Discount)
	f("dRedon", t.Rounding)
	f("dTotGralOpe", t.GrandTotal)
	f("dIVA5", t.VAT5)
	f("dIVA10", t.VAT10)
	f("dTotIVA", t.TotalVAT)
	f("dBaseGrav5", t.Base5)
	f("dBaseGrav10", t.Base10)
	f("dTBasGraIVA", t.TotalBase)
	if doc.Currency != "" && doc.Currency != "PYG" {
		add(g, "dTotalGs", t.GrandTotal.Mul(doc.ExchangeRate).Truncate(0).StringFixed(0))
	}
}

// ── helpers ──

func add(parent *etree.Element, tag, text string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(text)
	return el
}

func addOpt(parent *etree.Element, tag, text string) {
	if t := strings.TrimSpace(text); t != "" {
		add(parent, tag, t)
	}
}

func formatDateTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}

// serieLetters devuelve las dos primeras letras A-Z de la serie, o vacío si no alcanzan.
func serieLetters(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() == 2 {
				return b.String()
			}
		}
	}
	return ""
}
