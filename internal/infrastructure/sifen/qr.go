package sifen

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/jhoicas/sifen-dte/internal/domain/dte"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// QRDigestPlaceholder valor provisorio de DigestValue hasta conocer el digest de la firma.
const QRDigestPlaceholder = "665569394474586a4f4a396970724970754f344c434a75706a457a73645766664846656d573270344c69593d"

// ErrQRNotFound el documento no tiene gCamFuFD/dCarQR.
var ErrQRNotFound = errors.New("sifen: dCarQR no encontrado")

// NewQRSkeleton arma los parámetros del QR en el orden fijo de la consulta pública.
func NewQRSkeleton(env sifen.Environment, doc *entity.FiscalDocument, cdc string, rc receiverClass, t entity.Totals, cscID string) QRSkeleton {
	prec := dte.Precision(doc.Currency)
	emission := hex.EncodeToString([]byte(formatDateTime(doc.IssuedAt)))

	params := strings.Join([]string{
		"nVersion=" + sifen.FormatVersion,
		"Id=" + cdc,
		"dFeEmiDE=" + emission,
		rc.qrParam + "=" + rc.qrValue,
		"dTotGralOpe=" + t.GrandTotal.StringFixed(prec),
		"dTotIVA=" + t.TotalVAT.StringFixed(prec),
		"cItems=" + strconv.Itoa(len(doc.Lines)),
		"DigestValue=" + QRDigestPlaceholder,
		"IdCSC=" + FormatCSCID(cscID),
	}, "&")
	return QRSkeleton{BaseURL: env.QRBaseURL(), Params: params}
}

// FormatCSCID normaliza el IdCSC a 4 dígitos ("1" -> "0001").
func FormatCSCID(id string) string {
	d := sifen.OnlyDigits(id)
	if d == "" || strings.Trim(d, "0") == "" {
		d = "1"
	}
	return sifen.PadLeft(d, 4)
}

// FinalizeQRText reemplaza el DigestValue provisorio por hex(digest base64) y agrega cHashQR.
// cHashQR = sha256hex(parámetros + CSC).
func FinalizeQRText(skeleton, digestB64, csc string) (string, error) {
	base, params, ok := strings.Cut(skeleton, "?")
	if !ok {
		return "", fmt.Errorf("sifen: QR sin parámetros: %q", skeleton)
	}
	placeholder := "DigestValue=" + QRDigestPlaceholder
	if !strings.Contains(params, placeholder) {
		return "", fmt.Errorf("sifen: QR sin DigestValue provisorio")
	}
	params = strings.Replace(params, placeholder, "DigestValue="+hex.EncodeToString([]byte(digestB64)), 1)

	sum := sha256.Sum256([]byte(params + csc))
	return base + "?" + params + "&cHashQR=" + hex.EncodeToString(sum[:]), nil
}

// FinalizeQR actualiza dCarQR en el árbol. Devuelve ErrQRNotFound si el documento no lleva QR.
func FinalizeQR(doc *etree.Document, digestB64, csc string) error {
	el := doc.FindElement("//gCamFuFD/dCarQR")
	if el == nil {
		return ErrQRNotFound
	}
	text, err := FinalizeQRText(el.Text(), digestB64, csc)
	if err != nil {
		return err
	}
	el.SetText(text)
	return nil
}
