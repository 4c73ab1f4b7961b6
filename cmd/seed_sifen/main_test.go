package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewEncoder(), []byte(s))
	require.NoError(t, err)
	return out
}

func TestReadCities_Latin1(t *testing.T) {
	raw := latin1(t, "DEPARTAMENTO;DESC_DEPARTAMENTO;DISTRITO;DESC_DISTRITO;CIUDAD;DESC_CIUDAD\n"+
		"11;CENTRAL;145;ÑEMBY;3344;ÑEMBY\n"+
		"1;CAPITAL;1;ASUNCION (DISTRITO);1;ASUNCION (DISTRITO)\n"+
		"1;CAPITAL;1;ASUNCION (DISTRITO);1;ASUNCION (DISTRITO)\n"+
		"incompleta;solo\n")

	cities, err := readCities(transform.NewReader(bytes.NewReader(raw), charmap.ISO8859_1.NewDecoder()))
	require.NoError(t, err)
	require.Len(t, cities, 2, "encabezado, duplicados y filas incompletas se omiten")
	assert.Equal(t, 1, cities[0].code, "se ordena por código de ciudad")
	assert.Equal(t, "ÑEMBY", cities[1].name, "los acentos Latin-1 se decodifican a UTF-8")
	assert.Equal(t, 145, cities[1].districtCode)
}

func TestWriteSQL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSQL(&buf, []city{
		{deptCode: 1, deptName: "CAPITAL", districtCode: 1, districtName: "ASUNCION", code: 1, name: "ASUNCION"},
		{deptCode: 11, deptName: "CENTRAL", districtCode: 2, districtName: "SAN LORENZO", code: 7, name: "D'ARCY"},
	}))
	sql := buf.String()
	assert.Contains(t, sql, "INSERT INTO geo_cities")
	assert.Contains(t, sql, "(7, 'D''ARCY', 2, 'SAN LORENZO', 11, 'CENTRAL')")
	assert.True(t, strings.HasSuffix(sql, "department_name = EXCLUDED.department_name;\n"))
}

func TestWriteSQL_Vacio(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSQL(&buf, nil))
	assert.NotContains(t, buf.String(), "INSERT")
}
