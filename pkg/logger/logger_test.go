package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sifen-dte/pkg/logger"
)

func TestDocument_AgregaIdentidad(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	l := logger.Document(base, "doc-1", "01800695631001001000000612021112917595714694", "0260")
	l.Info().Msg("ok")

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "doc-1", got["document_id"])
	assert.Equal(t, "01800695631001001000000612021112917595714694", got["cdc"])
	assert.Equal(t, "0260", got["code"])
}

func TestDocument_SinCodigo(t *testing.T) {
	var buf bytes.Buffer
	l := logger.Document(zerolog.New(&buf), "doc-1", "", "")
	l.Info().Msg("ok")

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.NotContains(t, got, "code", "un código vacío no se agrega")
	assert.Equal(t, "doc-1", got["document_id"])
}
