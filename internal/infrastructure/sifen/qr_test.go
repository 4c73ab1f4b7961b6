package sifen_test

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
)

func TestFormatCSCID(t *testing.T) {
	assert.Equal(t, "0001", sifenxml.FormatCSCID("1"))
	assert.Equal(t, "0002", sifenxml.FormatCSCID("0002"))
	assert.Equal(t, "0001", sifenxml.FormatCSCID(""), "vacío usa el IdCSC 1")
	assert.Equal(t, "0001", sifenxml.FormatCSCID("000"))
}

func TestFinalizeQRText(t *testing.T) {
	skeleton := "https://ekuatia.set.gov.py/consultas-test/qr?nVersion=150&Id=" + officialCDC +
		"&DigestValue=" + sifenxml.QRDigestPlaceholder + "&IdCSC=0001"
	digest := "q1w2e3r4t5y6u7i8o9p0+/=="
	csc := "ABCD0000000000000000000000000000"

	qr, err := sifenxml.FinalizeQRText(skeleton, digest, csc)
	require.NoError(t, err)

	params := "nVersion=150&Id=" + officialCDC + "&DigestValue=" + hex.EncodeToString([]byte(digest)) + "&IdCSC=0001"
	sum := sha256.Sum256([]byte(params + csc))
	assert.Equal(t, "https://ekuatia.set.gov.py/consultas-test/qr?"+params+"&cHashQR="+hex.EncodeToString(sum[:]), qr)
}

func TestFinalizeQRText_SinMarcador(t *testing.T) {
	_, err := sifenxml.FinalizeQRText("https://x/qr?nVersion=150", "abc", "csc")
	assert.Error(t, err)
	_, err = sifenxml.FinalizeQRText("sin-parametros", "abc", "csc")
	assert.Error(t, err)
}

func TestFinalizeQR_DocumentoSinQR(t *testing.T) {
	doc := etree.NewDocument()
	doc.CreateElement("gGroupGesEve")
	assert.ErrorIs(t, sifenxml.FinalizeQR(doc, "abc", "csc"), sifenxml.ErrQRNotFound)
}

func TestFinalizeQR_ActualizaDCarQR(t *testing.T) {
	res, err := sifenxml.NewXMLBuilderService(nil).Build(buildCtx(testInvoice()))
	require.NoError(t, err)
	require.NoError(t, sifenxml.FinalizeQR(res.Doc, "ZGlnZXN0", "csc"))

	qr := res.Doc.FindElement("//dCarQR").Text()
	assert.NotContains(t, qr, sifenxml.QRDigestPlaceholder)
	assert.True(t, strings.Contains(qr, "&cHashQR="))
}

func TestQR_TextoCompletoDeFacturaFija(t *testing.T) {
	res, err := sifenxml.NewXMLBuilderService(nil).Build(buildCtx(testInvoice()))
	require.NoError(t, err)
	require.NoError(t, sifenxml.FinalizeQR(res.Doc, "41zxGIzOumpUyajGtGiaAjPOojALixduNvzw/B/3B9w=", "ABCD0000000000000000000000000000"))

	// dFeEmiDE = hex("2021-11-29T10:30:00"); DigestValue = hex del digest en base64
	want := "https://ekuatia.set.gov.py/consultas-test/qr?" +
		"nVersion=150" +
		"&Id=01800695631001001000000612021112917595714694" +
		"&dFeEmiDE=323032312d31312d32395431303a33303a3030" +
		"&dNumIDRec=0" +
		"&dTotGralOpe=100000" +
		"&dTotIVA=9091" +
		"&cItems=1" +
		"&DigestValue=34317a7847497a4f756d705579616a4774476961416a504f6f6a414c697864754e767a772f422f334239773d" +
		"&IdCSC=0001" +
		"&cHashQR=03bf361b1f19f3799a54ef7f1ce93f958881572a4fed6d31662886eed26e3bc1"
	assert.Equal(t, want, res.Doc.FindElement("//gCamFuFD/dCarQR").Text())
}
