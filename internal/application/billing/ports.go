package billing

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/jhoicas/sifen-dte/internal/domain/repository"
	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
)

// TxRunner ejecuta fn dentro de una transacción con los repositorios de documentos y eventos.
type TxRunner interface {
	RunDocument(ctx context.Context, fn func(
		docs repository.DocumentRepository,
		events repository.EventRepository,
	) error) error
}

// Clock reloj inyectable. Sleep devuelve ctx.Err() si el contexto se cancela antes.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock reloj real.
type SystemClock struct{}

// Now hora actual.
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep espera d o hasta que se cancele ctx.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Prober sonda de conectividad.
type Prober interface {
	Connected(ctx context.Context) bool
}

// Locker lock de instancia única. Acquire renueva si ya es propio.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Metrics puerto de métricas.
type Metrics interface {
	CycleCompleted(result string)
	ObserveTransmission(operation, outcome string, d time.Duration)
	DocumentIssued(kind string)
	SetQueueDepth(n int)
}

// NopMetrics descarta las métricas.
type NopMetrics struct{}

func (NopMetrics) CycleCompleted(string)                             {}
func (NopMetrics) ObserveTransmission(string, string, time.Duration) {}
func (NopMetrics) DocumentIssued(string)                             {}
func (NopMetrics) SetQueueDepth(int)                                 {}

// Archive copia de auditoría de artefactos XML.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// CertificateSource certificado de firma y mTLS. Reload lo vuelve a leer y validar.
type CertificateSource interface {
	Certificate() (tls.Certificate, error)
	Reload() error
}

// Builder arma el rDE sin firmar.
type Builder interface {
	Build(ctx *sifenxml.BuildContext) (*sifenxml.BuildResult, error)
}

// SignatureVerifier valida un XML firmado y devuelve el certificado firmante.
type SignatureVerifier func(xml []byte) (*x509.Certificate, error)
