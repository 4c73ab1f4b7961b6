package signer_test

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/infrastructure/sifen/signer"
)

// notFound resolver que nunca encuentra nada, para forzar el respaldo.
type notFound struct{}

func (notFound) Resolve(*etree.Document, string) *etree.Element { return nil }

func parse(t *testing.T, xml string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	return doc
}

func TestStandardLookup_FindsByID(t *testing.T) {
	doc := parse(t, `<rDE><DE Id="abc"><x/></DE></rDE>`)
	el := signer.StandardLookup{}.Resolve(doc, "abc")
	require.NotNil(t, el)
	assert.Equal(t, "DE", el.Tag)
}

func TestStandardLookup_RejectsQuotes(t *testing.T) {
	doc := parse(t, `<rDE><DE Id="abc"/></rDE>`)
	assert.Nil(t, signer.StandardLookup{}.Resolve(doc, `a'b`), "ids con comillas no se interpolan en la ruta")
}

func TestAttributeScan_PrefixedID(t *testing.T) {
	doc := parse(t, `<root xmlns:wsu="urn:wsu"><Body wsu:Id="cuerpo"/></root>`)
	el := signer.AttributeScan{}.Resolve(doc, "cuerpo")
	require.NotNil(t, el)
	assert.Equal(t, "Body", el.Tag)
}

func TestChainResolver_FallsBack(t *testing.T) {
	doc := parse(t, `<rDE><DE Id="abc"/></rDE>`)
	el, err := signer.ResolveID(signer.ChainResolver{notFound{}, signer.AttributeScan{}}, doc, "abc")
	require.NoError(t, err)
	assert.Equal(t, "DE", el.Tag)
}

func TestResolveID_NotFound(t *testing.T) {
	doc := parse(t, `<rDE><DE Id="abc"/></rDE>`)
	_, err := signer.ResolveID(nil, doc, "zzz")
	assert.ErrorIs(t, err, domain.ErrReferenceElementNotFound)
}
