package signer_test

import (
	"crypto/tls"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/infrastructure/sifen/signer"
)

func TestValidateCertificate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cert := selfSigned(t, now.Add(-24*time.Hour), now.Add(24*time.Hour))

	assert.NoError(t, signer.ValidateCertificate(cert, now))
	assert.ErrorIs(t, signer.ValidateCertificate(cert, now.Add(48*time.Hour)), domain.ErrSigningKeyUnavailable, "vencido")
	assert.ErrorIs(t, signer.ValidateCertificate(cert, now.Add(-48*time.Hour)), domain.ErrSigningKeyUnavailable, "aún no vigente")
	assert.ErrorIs(t, signer.ValidateCertificate(tls.Certificate{}, now), domain.ErrSigningKeyUnavailable, "sin llave")
}

func TestCertificateStore_Static(t *testing.T) {
	cert := validCert(t)
	store := signer.NewStaticCertificateStore(cert)
	got, err := store.Certificate()
	require.NoError(t, err)
	assert.Equal(t, cert.Certificate[0], got.Certificate[0])
}

func TestCertificateStore_MissingPath(t *testing.T) {
	store := signer.NewCertificateStore("", "", "", nil)
	_, err := store.Certificate()
	assert.ErrorIs(t, err, domain.ErrSigningKeyUnavailable)
}

func TestLoadFromP12_MissingFile(t *testing.T) {
	_, err := signer.LoadFromP12("/no/existe.p12", "")
	assert.ErrorIs(t, err, domain.ErrSigningKeyUnavailable)
}
