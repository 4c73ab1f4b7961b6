// Carga de certificado desde .p12 (PKCS#12) o par PEM.

package signer

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/sifen-dte/internal/domain"
	"golang.org/x/crypto/pkcs12"
)

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: leer p12: %v", domain.ErrSigningKeyUnavailable, err)
	}
	return DecodeP12(data, password)
}

// DecodeP12 decodifica un PKCS#12 en memoria. Si el contenedor trae la cadena completa
// se usa pkcs12.ToPEM para conservar los intermedios.
func DecodeP12(data []byte, password string) (tls.Certificate, error) {
	priv, cert, err := pkcs12.Decode(data, password)
	if err == nil {
		return tls.Certificate{
			Certificate: [][]byte{cert.Raw},
			PrivateKey:  priv,
			Leaf:        cert,
		}, nil
	}
	blocks, pemErr := pkcs12.ToPEM(data, password)
	if pemErr != nil {
		return tls.Certificate{}, fmt.Errorf("%w: decodificar p12: %v", domain.ErrSigningKeyUnavailable, err)
	}
	var pemData []byte
	for _, b := range blocks {
		pemData = append(pemData, pem.EncodeToMemory(b)...)
	}
	pair, err := tls.X509KeyPair(pemData, pemData)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: cadena p12: %v", domain.ErrSigningKeyUnavailable, err)
	}
	return pair, nil
}

// LoadFromPEM carga certificado y llave desde archivos PEM (por separado o combinados).
func LoadFromPEM(certPath, keyPath string) (tls.Certificate, error) {
	if keyPath == "" {
		keyPath = certPath
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: cargar PEM: %v", domain.ErrSigningKeyUnavailable, err)
	}
	return cert, nil
}

// Leaf devuelve el certificado hoja parseado.
func Leaf(cert tls.Certificate) (*x509.Certificate, error) {
	if cert.Leaf != nil {
		return cert.Leaf, nil
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("%w: certificado vacío", domain.ErrSigningKeyUnavailable)
	}
	return x509.ParseCertificate(cert.Certificate[0])
}

// ValidateCertificate exige llave RSA y vigencia en now.
func ValidateCertificate(cert tls.Certificate, now time.Time) error {
	if _, ok := cert.PrivateKey.(*rsa.PrivateKey); !ok {
		return fmt.Errorf("%w: la llave privada no es RSA", domain.ErrSigningKeyUnavailable)
	}
	leaf, err := Leaf(cert)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSigningKeyUnavailable, err)
	}
	if now.Before(leaf.NotBefore) {
		return fmt.Errorf("%w: certificado aún no vigente (desde %s)", domain.ErrSigningKeyUnavailable, leaf.NotBefore.Format(time.RFC3339))
	}
	if now.After(leaf.NotAfter) {
		return fmt.Errorf("%w: certificado vencido el %s", domain.ErrSigningKeyUnavailable, leaf.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// CertificateSource entrega el certificado de firma vigente.
type CertificateSource interface {
	Certificate() (tls.Certificate, error)
}

// CertificateStore mantiene el certificado en memoria y lo recarga bajo demanda.
type CertificateStore struct {
	mu       sync.RWMutex
	path     string
	keyPath  string
	password string
	now      func() time.Time
	cert     *tls.Certificate
}

// NewCertificateStore crea el almacén. Rutas .p12/.pfx se leen como PKCS#12; el resto como PEM.
func NewCertificateStore(path, keyPath, password string, now func() time.Time) *CertificateStore {
	if now == nil {
		now = time.Now
	}
	return &CertificateStore{path: path, keyPath: keyPath, password: password, now: now}
}

// NewStaticCertificateStore envuelve un certificado ya cargado.
func NewStaticCertificateStore(cert tls.Certificate) *CertificateStore {
	return &CertificateStore{cert: &cert, now: time.Now}
}

// Certificate devuelve el certificado cargado, leyéndolo la primera vez.
func (s *CertificateStore) Certificate() (tls.Certificate, error) {
	s.mu.RLock()
	cert := s.cert
	s.mu.RUnlock()
	if cert == nil {
		if err := s.Reload(); err != nil {
			return tls.Certificate{}, err
		}
		s.mu.RLock()
		cert = s.cert
		s.mu.RUnlock()
	}
	if err := ValidateCertificate(*cert, s.now()); err != nil {
		return tls.Certificate{}, err
	}
	return *cert, nil
}

// Reload vuelve a leer el archivo configurado.
func (s *CertificateStore) Reload() error {
	if s.path == "" {
		return fmt.Errorf("%w: ruta de certificado no configurada", domain.ErrSigningKeyUnavailable)
	}
	var (
		cert tls.Certificate
		err  error
	)
	if isP12(s.path) {
		cert, err = LoadFromP12(s.path, s.password)
	} else {
		cert, err = LoadFromPEM(s.path, s.keyPath)
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cert = &cert
	s.mu.Unlock()
	return nil
}

func isP12(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		return true
	}
	return false
}
