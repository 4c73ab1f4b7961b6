package entity

// Receiver datos del receptor tal como se congelan en el documento (gDatRec).
type Receiver struct {
	Nature          int    // iNatRec: 1 contribuyente, 2 no contribuyente
	ContributorType int    // iTiContRec: 1 física, 2 jurídica
	RUC             string // sin DV
	DV              string
	DocType         int    // iTipIDRec para no contribuyentes
	DocNumber       string // dNumIDRec
	Name            string
	Address         string
	HouseNumber     string
	Country         string // cPaisRec; vacío = PRY
	Phone           string
	Email           string
}

// IsTaxpayer indica si el receptor es contribuyente.
func (r Receiver) IsTaxpayer() bool { return r.Nature == 1 }
