// Package sifen implementa el armado del XML rDE v150, el código QR, el empaquetado en lote
// y el cliente SOAP 1.2 de los servicios web de SIFEN (Paraguay).
package sifen

import (
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// BuildContext contexto con todos los datos ya resueltos para construir el rDE. El builder no hace I/O.
type BuildContext struct {
	Document    *entity.FiscalDocument
	Emitter     *entity.Emitter
	Environment sifen.Environment
	CSCID       string    // IdCSC del QR
	SigningTime time.Time // dFecFirma, inyectado
}

// BuildResult árbol sin firmar y datos derivados.
type BuildResult struct {
	Doc    *etree.Document
	CDC    string
	QR     QRSkeleton
	Totals entity.Totals
}

// QRSkeleton texto del QR antes de conocer el DigestValue.
type QRSkeleton struct {
	BaseURL string
	Params  string // nVersion=...&IdCSC=....
}

// Text URL completa tal como se escribe en dCarQR.
func (q QRSkeleton) Text() string { return q.BaseURL + q.Params }

// SignedDE documento firmado listo para transmitir.
type SignedDE struct {
	DocumentID string
	CDC        string
	XML        []byte // rDE firmado, sin declaración XML
}
