package signer

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/jhoicas/sifen-dte/internal/domain"
)

// IDResolver ubica el elemento referenciado por la firma.
type IDResolver interface {
	Resolve(doc *etree.Document, id string) *etree.Element
}

// StandardLookup busca con la ruta etree //*[@Id='id'] (atributo Id sin prefijo).
type StandardLookup struct{}

// Resolve implementa IDResolver.
func (StandardLookup) Resolve(doc *etree.Document, id string) *etree.Element {
	if strings.ContainsAny(id, `'"[]`) {
		return nil
	}
	path, err := etree.CompilePath(fmt.Sprintf("//*[@Id='%s']", id))
	if err != nil {
		return nil
	}
	return doc.FindElementPath(path)
}

// AttributeScan recorre todos los elementos y compara el nombre local del atributo,
// así encuentra Id con cualquier prefijo o espacio de nombres.
type AttributeScan struct{}

// Resolve implementa IDResolver.
func (AttributeScan) Resolve(doc *etree.Document, id string) *etree.Element {
	root := doc.Root()
	if root == nil {
		return nil
	}
	return scan(root, id)
}

func scan(el *etree.Element, id string) *etree.Element {
	for _, a := range el.Attr {
		if a.Key == "Id" && a.Value == id {
			return el
		}
	}
	for _, child := range el.ChildElements() {
		if found := scan(child, id); found != nil {
			return found
		}
	}
	return nil
}

// ChainResolver prueba cada resolver en orden.
type ChainResolver []IDResolver

// Resolve implementa IDResolver.
func (c ChainResolver) Resolve(doc *etree.Document, id string) *etree.Element {
	for _, r := range c {
		if el := r.Resolve(doc, id); el != nil {
			return el
		}
	}
	return nil
}

// DefaultResolver búsqueda estándar con recorrido manual como respaldo.
var DefaultResolver IDResolver = ChainResolver{StandardLookup{}, AttributeScan{}}

// ResolveID devuelve el elemento o ErrReferenceElementNotFound.
func ResolveID(r IDResolver, doc *etree.Document, id string) (*etree.Element, error) {
	if r == nil {
		r = DefaultResolver
	}
	el := r.Resolve(doc, id)
	if el == nil {
		return nil, fmt.Errorf("%w: Id=%q", domain.ErrReferenceElementNotFound, id)
	}
	return el, nil
}
