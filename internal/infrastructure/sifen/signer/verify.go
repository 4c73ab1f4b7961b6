package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ErrInvalidSignature firma ausente, alterada o con certificado ilegible.
var ErrInvalidSignature = errors.New("firma XML inválida")

// Verify comprueba la primera firma envuelta del documento: recalcula el digest del
// elemento referenciado y valida SignatureValue con el certificado de KeyInfo.
func Verify(xml []byte) (*x509.Certificate, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xml); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return VerifyDocument(doc)
}

// VerifyDocument igual que Verify sobre un árbol ya parseado.
func VerifyDocument(doc *etree.Document) (*x509.Certificate, error) {
	sigEl := doc.FindElement("//Signature")
	if sigEl == nil {
		return nil, fmt.Errorf("%w: sin elemento Signature", ErrInvalidSignature)
	}
	// SignedInfo se canonicaliza sobre una copia de Signature, igual que al firmar.
	sig := sigEl.Copy()

	signedInfo := sig.FindElement("SignedInfo")
	ref := sig.FindElement("SignedInfo/Reference")
	digestEl := sig.FindElement("SignedInfo/Reference/DigestValue")
	valueEl := sig.FindElement("SignatureValue")
	certEl := sig.FindElement("KeyInfo/X509Data/X509Certificate")
	if signedInfo == nil || ref == nil || digestEl == nil || valueEl == nil || certEl == nil {
		return nil, fmt.Errorf("%w: estructura incompleta", ErrInvalidSignature)
	}

	id := strings.TrimPrefix(ref.SelectAttrValue("URI", ""), "#")
	target, err := ResolveID(DefaultResolver, doc, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	canonical, err := canonicalize(target)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(canonical)
	expected, err := base64.StdEncoding.DecodeString(strings.TrimSpace(digestEl.Text()))
	if err != nil || !bytes.Equal(expected, digest[:]) {
		return nil, fmt.Errorf("%w: DigestValue no coincide", ErrInvalidSignature)
	}

	der, err := base64.StdEncoding.DecodeString(compact(certEl.Text()))
	if err != nil {
		return nil, fmt.Errorf("%w: certificado: %v", ErrInvalidSignature, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: certificado: %v", ErrInvalidSignature, err)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: llave pública no RSA", ErrInvalidSignature)
	}

	canonicalSI, err := canonicalize(signedInfo)
	if err != nil {
		return nil, err
	}
	value, err := base64.StdEncoding.DecodeString(compact(valueEl.Text()))
	if err != nil {
		return nil, fmt.Errorf("%w: SignatureValue: %v", ErrInvalidSignature, err)
	}
	hash := sha256.Sum256(canonicalSI)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, hash[:], value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return cert, nil
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
