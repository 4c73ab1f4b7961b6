package sifen

import (
	"crypto/tls"

	"github.com/beevik/etree"
)

// Signer firma un árbol XML con firma XML-DSig envuelta.
type Signer interface {
	// Sign firma el elemento cuyo atributo Id es id e inserta ds:Signature
	// a continuación de él, dentro de su elemento padre.
	Sign(doc *etree.Document, id string, cert tls.Certificate) (*etree.Document, error)
}
