package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goldenCDC = "01800695631001001000000612021112917595714694"

// rDE fijo: DE hereda el xmlns por defecto de rDE y no lo declara.
const goldenRDE = `<rDE xmlns="http://ekuatia.set.gov.py/sifen/xsd" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" ` +
	`xsi:schemaLocation="http://ekuatia.set.gov.py/sifen/xsd siRecepDE_v150.xsd">` +
	`<dVerFor>150</dVerFor>` +
	`<DE Id="` + goldenCDC + `"><dDVId>4</dDVId><dFecFirma>2021-11-29T17:59:57</dFecFirma><dSisFact>1</dSisFact>` +
	`<gDtipDE><gCamItem><dDesProSer>Servicio &amp; soporte</dDesProSer><dCantProSer>2</dCantProSer><dInfEmi/></gCamItem></gDtipDE>` +
	`<gTotSub><dTotGralOpe>100000</dTotGralOpe></gTotSub></DE>` +
	`</rDE>`

// Forma canónica esperada: xmlns por defecto redeclarado antes de Id, sin xmlns:xsi y
// elementos vacíos con etiqueta de cierre.
const goldenCanonicalDE = `<DE xmlns="http://ekuatia.set.gov.py/sifen/xsd" Id="` + goldenCDC + `">` +
	`<dDVId>4</dDVId><dFecFirma>2021-11-29T17:59:57</dFecFirma><dSisFact>1</dSisFact>` +
	`<gDtipDE><gCamItem><dDesProSer>Servicio &amp; soporte</dDesProSer><dCantProSer>2</dCantProSer><dInfEmi></dInfEmi></gCamItem></gDtipDE>` +
	`<gTotSub><dTotGralOpe>100000</dTotGralOpe></gTotSub></DE>`

const goldenDigestHex = "e35cf1188cceba6a54c9a8c6b4689a0233cea2300b8b176e36fcf0fc1ff707dc"

func TestCanonicalize_DEConNamespaceHeredado(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(goldenRDE))
	de := doc.FindElement("//DE")
	require.NotNil(t, de)

	got, err := canonicalize(de)
	require.NoError(t, err)
	assert.Equal(t, goldenCanonicalDE, string(got))

	sum := sha256.Sum256(got)
	assert.Equal(t, goldenDigestHex, hex.EncodeToString(sum[:]))
}

func TestCanonicalize_IgnoraFirmaDescendiente(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(goldenRDE))
	de := doc.FindElement("//DE")
	de.CreateElement("Signature").CreateAttr("xmlns", NamespaceDS)

	got, err := canonicalize(de)
	require.NoError(t, err)
	assert.Equal(t, goldenCanonicalDE, string(got), "la transformación enveloped quita Signature")
}
