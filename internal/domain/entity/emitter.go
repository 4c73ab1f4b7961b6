package entity

import "time"

// Emitter datos maestros del contribuyente emisor (gEmis + gTimb).
type Emitter struct {
	ID             string
	RUC            string
	DV             string
	Name           string
	TradeName      string
	Address        string
	HouseNumber    string
	TaxpayerType   int // iTipCont: 1 física, 2 jurídica
	DepartmentCode int
	DepartmentName string
	DistrictCode   int
	DistrictName   string
	CityCode       int
	CityName       string
	Phone          string
	Email          string
	Activities     []EconomicActivity
	Timbrado       Timbrado
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EconomicActivity actividad económica registrada (gActEco).
type EconomicActivity struct {
	Code        string
	Description string
}

// Timbrado autorización de la SET para emitir documentos.
type Timbrado struct {
	Number    string    // dNumTim (8)
	Serie     string    // dSerieNum, opcional ([A-Z]{2})
	StartDate time.Time // dFeIniT
}
