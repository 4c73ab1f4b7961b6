package signer

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/leifj/signedxml"
)

// canonicalize aplica Exclusive C14N (sin comentarios) a una copia desprendida del elemento.
// La copia vuelve a declarar los espacios de nombres heredados de sus ancestros y
// no incluye ds:Signature descendientes (transformación enveloped-signature).
func canonicalize(el *etree.Element) ([]byte, error) {
	cp := detach(el)
	removeSignatures(cp)
	c := signedxml.ExclusiveCanonicalization{WithComments: false}
	out, err := c.ProcessElement(cp, "")
	if err != nil {
		return nil, fmt.Errorf("c14n de <%s>: %w", el.Tag, err)
	}
	return []byte(out), nil
}

// detach copia el elemento y agrega las declaraciones xmlns en alcance que no tenga.
func detach(el *etree.Element) *etree.Element {
	cp := el.Copy()
	declared := map[string]bool{}
	for _, a := range cp.Attr {
		if key, ok := nsDeclKey(a); ok {
			declared[key] = true
		}
	}
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			key, ok := nsDeclKey(a)
			if !ok || declared[key] {
				continue
			}
			declared[key] = true
			if key == "" {
				cp.CreateAttr("xmlns", a.Value)
			} else {
				cp.CreateAttr("xmlns:"+key, a.Value)
			}
		}
	}
	return cp
}

// nsDeclKey devuelve el prefijo declarado ("" para el default) si el atributo es xmlns.
func nsDeclKey(a etree.Attr) (string, bool) {
	switch {
	case a.Space == "" && a.Key == "xmlns":
		return "", true
	case a.Space == "xmlns":
		return a.Key, true
	default:
		return "", false
	}
}

func removeSignatures(el *etree.Element) {
	for _, child := range el.ChildElements() {
		if child.Tag == "Signature" {
			el.RemoveChild(child)
			continue
		}
		removeSignatures(child)
	}
}
