package sifen_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/jhoicas/sifen-dte/pkg/sifen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// Vector oficial del Manual Técnico SIFEN v150:
//
//	01 80069563 1 001 001 0000006 1 20211129 1 759571469 | 4
//
// Si cambia el orden de los campos, el relleno o los pesos del módulo 11,
// este test falla primero.
// ──────────────────────────────────────────────────────────────────────────────

const (
	testCDCExpected = "01800695631001001000000612021112917595714694"
	testSecCode     = "759571469"
)

func officialFields() sifen.CDCFields {
	return sifen.CDCFields{
		DocumentType:    "01",
		RUC:             "80069563",
		DV:              "1",
		Establishment:   "1",
		ExpeditionPoint: "001",
		Number:          "6",
		TaxpayerType:    "1",
		Date:            "20211129",
		EmissionType:    "1",
		SecurityCode:    testSecCode,
	}
}

func TestGenerateCDC_VectorOficial(t *testing.T) {
	cdc, err := sifen.GenerateCDC(officialFields())
	require.NoError(t, err)
	assert.Equal(t, testCDCExpected, cdc, "El CDC debe coincidir con el ejemplo del manual")
}

func TestGenerateCDC_LimpiaSeparadores(t *testing.T) {
	f := officialFields()
	f.RUC = "80.069.563"
	f.Number = "000-0006"

	cdc, err := sifen.GenerateCDC(f)
	require.NoError(t, err)
	assert.Equal(t, testCDCExpected, cdc)
}

func TestGenerateCDC_Determinista(t *testing.T) {
	a, err := sifen.GenerateCDC(officialFields())
	require.NoError(t, err)
	b, err := sifen.GenerateCDC(officialFields())
	require.NoError(t, err)
	assert.Equal(t, a, b, "Mismos campos y mismo código de seguridad deben dar el mismo CDC")
}

func TestGenerateCDC_Propiedades(t *testing.T) {
	gen := sifen.NewCDCGenerator(nil)
	for n := 1; n <= 50; n++ {
		f := officialFields()
		f.Number = strconv.Itoa(n * 13)
		f.SecurityCode = ""

		cdc, err := gen.Generate(f)
		require.NoError(t, err)
		assert.Len(t, cdc, sifen.CDCLength)
		assert.Regexp(t, `^\d{44}$`, cdc)

		dv, err := sifen.CheckDigit(cdc[:43])
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(dv), cdc[43:], "El DV se debe poder recalcular de forma independiente")
		assert.NoError(t, sifen.ValidateCDC(cdc))
	}
}

// ── Código de seguridad ──

type fixedCodes struct{ code string }

func (f fixedCodes) Next() string { return f.code }

func TestGenerateCDC_UsaFuenteInyectada(t *testing.T) {
	f := officialFields()
	f.SecurityCode = ""

	cdc, err := sifen.NewCDCGenerator(fixedCodes{testSecCode}).Generate(f)
	require.NoError(t, err)
	assert.Equal(t, testCDCExpected, cdc)
}

func TestClockSecurityCodes_Monotono(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // nanos mod 1e9 = 0
	src := sifen.NewClockSecurityCodes(func() time.Time { return fixed })

	prev := ""
	for i := 0; i < 5; i++ {
		code := src.Next()
		assert.Len(t, code, 9)
		assert.NotEqual(t, "000000000", code, "El código de seguridad nunca es cero")
		assert.Greater(t, code, prev, "Cada código debe avanzar respecto del anterior")
		prev = code
	}
}

// ── Errores de validación ──

func TestGenerateCDC_CampoDemasiadoAncho(t *testing.T) {
	f := officialFields()
	f.Number = "12345678"

	_, err := sifen.GenerateCDC(f)
	require.Error(t, err)
	assert.ErrorIs(t, err, sifen.ErrInvalidIdentityFields, "Nunca se trunca un campo")
}

func TestGenerateCDC_CamposObligatorios(t *testing.T) {
	cases := map[string]func(*sifen.CDCFields){
		"ruc":    func(f *sifen.CDCFields) { f.RUC = "" },
		"dv":     func(f *sifen.CDCFields) { f.DV = "-" },
		"numero": func(f *sifen.CDCFields) { f.Number = "" },
		"tipo":   func(f *sifen.CDCFields) { f.DocumentType = "" },
		"fecha":  func(f *sifen.CDCFields) { f.Date = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := officialFields()
			mutate(&f)
			_, err := sifen.GenerateCDC(f)
			assert.ErrorIs(t, err, sifen.ErrInvalidIdentityFields)
		})
	}
}

func TestValidateCDC_DVIncorrecto(t *testing.T) {
	bad := testCDCExpected[:43] + "5"
	assert.ErrorIs(t, sifen.ValidateCDC(bad), sifen.ErrInvalidIdentityFields)
	assert.ErrorIs(t, sifen.ValidateCDC("0180"), sifen.ErrInvalidIdentityFields)
}

func TestSplitCDC(t *testing.T) {
	f, err := sifen.SplitCDC(testCDCExpected)
	require.NoError(t, err)
	assert.Equal(t, "01", f.DocumentType)
	assert.Equal(t, "80069563", f.RUC)
	assert.Equal(t, "001", f.Establishment)
	assert.Equal(t, "0000006", f.Number)
	assert.Equal(t, "20211129", f.Date)
	assert.Equal(t, testSecCode, f.SecurityCode)
}
