package sifen

// =============================================================================
// Espacios de nombres y versiones (Manual Técnico SIFEN v150)
// =============================================================================

const (
	NamespaceSIFEN      = "http://ekuatia.set.gov.py/sifen/xsd"
	NamespaceXSI        = "http://www.w3.org/2001/XMLSchema-instance"
	NamespaceSOAP12     = "http://www.w3.org/2003/05/soap-envelope"
	FormatVersion       = "150"
	SchemaLocationDE    = NamespaceSIFEN + " siRecepDE_v150.xsd"
	SchemaLocationEvent = NamespaceSIFEN + " siRecepEvento_v150.xsd"
)

// Environment ambiente SIFEN.
type Environment string

const (
	EnvTest Environment = "test"
	EnvProd Environment = "prod"
)

// BaseURL devuelve la URL base de los servicios web.
func (e Environment) BaseURL() string {
	if e == EnvProd {
		return "https://sifen.set.gov.py"
	}
	return "https://sifen-test.set.gov.py"
}

// QRBaseURL devuelve la URL de consulta pública para el QR.
func (e Environment) QRBaseURL() string {
	if e == EnvProd {
		return "https://ekuatia.set.gov.py/consultas/qr?"
	}
	return "https://ekuatia.set.gov.py/consultas-test/qr?"
}

// =============================================================================
// C002 - Tipo de documento electrónico (iTiDE)
// =============================================================================

const (
	DocTypeInvoice    = "01" // Factura electrónica
	DocTypeCreditNote = "05" // Nota de crédito electrónica
)

// DocumentTypeDescription descripción oficial de iTiDE.
func DocumentTypeDescription(code string) string {
	switch code {
	case DocTypeInvoice:
		return "Factura electrónica"
	case DocTypeCreditNote:
		return "Nota de crédito electrónica"
	default:
		return ""
	}
}

// =============================================================================
// B002 - Tipo de emisión / D013 tipo de transacción / D015 tipo de impuesto
// =============================================================================

const (
	EmissionNormal     = "1"
	EmissionNormalDesc = "Normal"

	TaxTypeIVA     = "1"
	TaxTypeIVADesc = "IVA"

	TaxpayerNatural   = "1" // Persona Física
	TaxpayerJuridical = "2" // Persona Jurídica

	SystemFacturation = "1" // dSisFact: sistema del contribuyente

	TransactionSale = 1 // iTipTra: venta de mercadería
)

// TransactionTypeDescription descripción de iTipTra.
func TransactionTypeDescription(code int) string {
	switch code {
	case 1:
		return "Venta de mercadería"
	case 2:
		return "Prestación de servicios"
	case 3:
		return "Mixto (Venta de mercadería y servicios)"
	case 4:
		return "Venta de activo fijo"
	default:
		return "Venta de mercadería"
	}
}

// CurrencyDescription descripción de cMoneOpe para las monedas soportadas.
func CurrencyDescription(iso string) string {
	switch iso {
	case "PYG":
		return "Guarani"
	case "USD":
		return "US Dollar"
	case "BRL":
		return "Brazilian Real"
	case "ARS":
		return "Argentine Peso"
	case "EUR":
		return "Euro"
	default:
		return iso
	}
}

// =============================================================================
// D201 - Naturaleza y tipo de operación del receptor
// =============================================================================

const (
	ReceiverTaxpayer    = 1 // iNatRec contribuyente
	ReceiverNonTaxpayer = 2 // iNatRec no contribuyente

	OperationB2B = 1 // iTiOpe
	OperationB2C = 2

	// iTipIDRec
	IDCedulaParaguaya   = 1
	IDPasaporte         = 2
	IDCedulaExtranjera  = 3
	IDCarnetResidencia  = 4
	IDInnominado        = 5
	IDTarjetaDiplomatic = 6
	IDOtro              = 9
	AnonymousReceiverNm = "Sin Nombre"
)

// ReceiverIDDescription descripción de iTipIDRec.
func ReceiverIDDescription(code int) string {
	switch code {
	case IDCedulaParaguaya:
		return "Cédula paraguaya"
	case IDPasaporte:
		return "Pasaporte"
	case IDCedulaExtranjera:
		return "Cédula extranjera"
	case IDCarnetResidencia:
		return "Carnet de residencia"
	case IDTarjetaDiplomatic:
		return "Tarjeta Diplomática de exoneración fiscal"
	case IDOtro:
		return "Otro"
	default:
		return "Innominado"
	}
}

// =============================================================================
// E011 - Condición de operación / E7.1 tipos de pago / E7.2 crédito
// =============================================================================

const (
	ConditionCash   = 1
	ConditionCredit = 2

	CreditTerm        = 1 // iCondCred plazo
	CreditInstallment = 2 // iCondCred cuota
)

// ConditionDescription descripción de iCondOpe.
func ConditionDescription(code int) string {
	if code == ConditionCredit {
		return "Crédito"
	}
	return "Contado"
}

// CreditConditionDescription descripción de iCondCred.
func CreditConditionDescription(code int) string {
	if code == CreditInstallment {
		return "Cuota"
	}
	return "Plazo"
}

// PaymentTypeDescription descripción de iTiPago.
func PaymentTypeDescription(code int) string {
	switch code {
	case 1:
		return "Efectivo"
	case 2:
		return "Cheque"
	case 3:
		return "Tarjeta de crédito"
	case 4:
		return "Tarjeta de débito"
	case 5:
		return "Transferencia"
	case 6:
		return "Giro"
	case 7:
		return "Billetera electrónica"
	default:
		return "Otro"
	}
}

// =============================================================================
// E8 - Ítems: unidad de medida y afectación IVA
// =============================================================================

const (
	UnitDefault     = "77"
	UnitDefaultDesc = "UNI"
)

// VATCategory categoría impositiva de una línea.
type VATCategory string

const (
	VAT10     VATCategory = "10"
	VAT5      VATCategory = "5"
	VATExempt VATCategory = "exento"
)

// Valid indica si la categoría es una de las tres admitidas.
func (c VATCategory) Valid() bool {
	return c == VAT10 || c == VAT5 || c == VATExempt
}

// Affectation devuelve iAfecIVA y su descripción.
func (c VATCategory) Affectation() (int, string) {
	switch c {
	case VAT10, VAT5:
		return 1, "Gravado IVA"
	default:
		return 3, "Exento"
	}
}

// Rate tasa en puntos porcentuales (10, 5 o 0).
func (c VATCategory) Rate() int {
	switch c {
	case VAT10:
		return 10
	case VAT5:
		return 5
	default:
		return 0
	}
}

// =============================================================================
// Presencia (E011), documentos asociados (H002) y eventos
// =============================================================================

const (
	PresenceInPerson     = 1
	PresenceInPersonDesc = "Operación presencial"

	AssociatedElectronic     = 1 // iTipDocAso
	AssociatedElectronicDesc = "Electrónico"

	EventCancellationMinReason = 5
	EventCancellationMaxReason = 500
)

// DepartmentName nombre de departamento por código (catálogo geográfico SIFEN).
func DepartmentName(code int) string {
	names := map[int]string{
		1: "CAPITAL", 2: "CONCEPCION", 3: "SAN PEDRO", 4: "CORDILLERA", 5: "GUAIRA",
		6: "CAAGUAZU", 7: "CAAZAPA", 8: "ITAPUA", 9: "MISIONES", 10: "PARAGUARI",
		11: "ALTO PARANA", 12: "CENTRAL", 13: "ÑEEMBUCU", 14: "AMAMBAY", 15: "CANINDEYU",
		16: "PRESIDENTE HAYES", 17: "BOQUERON", 18: "ALTO PARAGUAY",
	}
	return names[code]
}
