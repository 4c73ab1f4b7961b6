// Servicio de firma XML-DSig envuelta (Exclusive C14N, RSA-SHA256) para rDE y eventos SIFEN.
// Inserta <Signature> inmediatamente después del elemento firmado, dentro de su padre.

package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/jhoicas/sifen-dte/internal/domain"
	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// DigitalSignatureService firma documentos y eventos.
type DigitalSignatureService struct {
	csc      string
	resolver IDResolver
}

// NewDigitalSignatureService crea el servicio. csc es el código secreto usado para cHashQR;
// resolver nil usa la búsqueda estándar con recorrido de respaldo.
func NewDigitalSignatureService(csc string, resolver IDResolver) *DigitalSignatureService {
	if resolver == nil {
		resolver = DefaultResolver
	}
	return &DigitalSignatureService{csc: csc, resolver: resolver}
}

// Sign implementa pkg/sifen.Signer.
func (s *DigitalSignatureService) Sign(doc *etree.Document, id string, cert tls.Certificate) (*etree.Document, error) {
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok || priv == nil {
		return nil, fmt.Errorf("%w: se requiere llave privada RSA", domain.ErrSigningKeyUnavailable)
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("%w: certificado sin cadena X.509", domain.ErrSigningKeyUnavailable)
	}
	if doc == nil || doc.Root() == nil {
		return nil, fmt.Errorf("%w: documento vacío", domain.ErrReferenceElementNotFound)
	}

	target, err := ResolveID(s.resolver, doc, id)
	if err != nil {
		return nil, err
	}
	parent := target.Parent()
	if parent == nil {
		return nil, fmt.Errorf("%w: <%s> no tiene elemento padre para alojar la firma", domain.ErrReferenceElementNotFound, target.Tag)
	}

	// 1) Digest del elemento referenciado
	canonical, err := canonicalize(target)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(canonical)
	digestB64 := base64.StdEncoding.EncodeToString(digest[:])

	// 2) SignedInfo y SignatureValue
	sig := etree.NewElement("Signature")
	sig.CreateAttr("xmlns", NamespaceDS)
	signedInfo := buildSignedInfo(sig, id, digestB64)

	canonicalSI, err := canonicalize(signedInfo)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(canonicalSI)
	value, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, hash[:])
	if err != nil {
		return nil, fmt.Errorf("firmar SignedInfo: %w", err)
	}
	sig.CreateElement("SignatureValue").SetText(base64.StdEncoding.EncodeToString(value))

	// 3) KeyInfo
	x509Data := sig.CreateElement("KeyInfo").CreateElement("X509Data")
	x509Data.CreateElement("X509Certificate").SetText(base64.StdEncoding.EncodeToString(cert.Certificate[0]))

	// 4) Inserción a continuación del elemento firmado
	removeSiblingSignature(parent, target)
	parent.InsertChildAt(target.Index()+1, sig)

	// 5) QR con el digest real (solo rDE)
	if err := sifenxml.FinalizeQR(doc, digestB64, s.csc); err != nil && !errors.Is(err, sifenxml.ErrQRNotFound) {
		return nil, fmt.Errorf("finalizar QR: %w", err)
	}
	return doc, nil
}

func buildSignedInfo(sig *etree.Element, id, digestB64 string) *etree.Element {
	si := sig.CreateElement("SignedInfo")
	si.CreateElement("CanonicalizationMethod").CreateAttr("Algorithm", AlgExcC14N)
	si.CreateElement("SignatureMethod").CreateAttr("Algorithm", AlgRSASHA256)

	ref := si.CreateElement("Reference")
	ref.CreateAttr("URI", "#"+id)
	transforms := ref.CreateElement("Transforms")
	transforms.CreateElement("Transform").CreateAttr("Algorithm", TransformEnveloped)
	transforms.CreateElement("Transform").CreateAttr("Algorithm", AlgExcC14N)
	ref.CreateElement("DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	ref.CreateElement("DigestValue").SetText(digestB64)
	return si
}

// removeSiblingSignature quita una firma previa ubicada justo después del elemento (re-firma).
func removeSiblingSignature(parent, target *etree.Element) {
	children := parent.ChildElements()
	for i, c := range children {
		if c == target && i+1 < len(children) && children[i+1].Tag == "Signature" {
			parent.RemoveChild(children[i+1])
			return
		}
	}
}

var _ sifen.Signer = (*DigitalSignatureService)(nil)
