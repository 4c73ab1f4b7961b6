package sifen

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/klauspost/compress/zip"
)

// MaxBatchSize cantidad máxima de DE por lote aceptada por recibe-lote.
const MaxBatchSize = 50

// BatchEntryName nombre del único archivo dentro del ZIP del lote.
const BatchEntryName = "lote.xml"

// CompressBatch empaqueta los rDE firmados en <rLoteDE> dentro de un ZIP en memoria.
func CompressBatch(docs []SignedDE) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("zip: lote vacío")
	}
	if len(docs) > MaxBatchSize {
		return nil, fmt.Errorf("zip: lote de %d documentos supera el máximo de %d", len(docs), MaxBatchSize)
	}

	var payload bytes.Buffer
	payload.WriteString(`<rLoteDE>`)
	for _, d := range docs {
		payload.Write(stripDeclaration(d.XML))
	}
	payload.WriteString(`</rLoteDE>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create(BatchEntryName)
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", BatchEntryName, err)
	}
	if _, err := fw.Write(payload.Bytes()); err != nil {
		return nil, fmt.Errorf("zip: escribir lote: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBatch devuelve base64(zip(rLoteDE)), el contenido de xDE.
func EncodeBatch(docs []SignedDE) (string, error) {
	z, err := CompressBatch(docs)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(z), nil
}

// stripDeclaration quita la declaración <?xml ...?> inicial si existe.
func stripDeclaration(b []byte) []byte {
	b = bytes.TrimSpace(b)
	if !bytes.HasPrefix(b, []byte("<?xml")) {
		return b
	}
	if i := bytes.Index(b, []byte("?>")); i >= 0 {
		return bytes.TrimSpace(b[i+2:])
	}
	return b
}
