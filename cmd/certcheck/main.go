// certcheck diagnostica el certificado de firma configurado (.p12/.pfx o PEM).
//
// Uso: go run ./cmd/certcheck [-path cert.p12] [-password secreto] [-key llave.pem]
// Sin flags toma SIFEN_CERT_PATH, SIFEN_CERT_KEY_PATH y SIFEN_CERT_PASSWORD.
package main

import (
	"crypto/rsa"
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jhoicas/sifen-dte/internal/infrastructure/sifen/signer"
	"github.com/jhoicas/sifen-dte/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	path := flag.String("path", cfg.SIFEN.CertPath, "ruta al .p12/.pfx o .pem")
	key := flag.String("key", cfg.SIFEN.CertKeyPath, "llave PEM si -path es solo el certificado")
	password := flag.String("password", cfg.SIFEN.CertPassword, "password del .p12")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "Falta la ruta del certificado (-path o SIFEN_CERT_PATH)")
		os.Exit(2)
	}

	var cert tls.Certificate
	lower := strings.ToLower(*path)
	if strings.HasSuffix(lower, ".p12") || strings.HasSuffix(lower, ".pfx") {
		cert, err = signer.LoadFromP12(*path, *password)
	} else {
		cert, err = signer.LoadFromPEM(*path, *key)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	leaf, err := signer.Leaf(cert)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sujeto:     %s\n", leaf.Subject)
	fmt.Printf("Emisor:     %s\n", leaf.Issuer)
	fmt.Printf("Serie:      %s\n", leaf.SerialNumber)
	fmt.Printf("Vigencia:   %s → %s\n", leaf.NotBefore.Format(time.RFC3339), leaf.NotAfter.Format(time.RFC3339))
	fmt.Printf("Cadena:     %d certificado(s)\n", len(cert.Certificate))
	if k, ok := cert.PrivateKey.(*rsa.PrivateKey); ok {
		fmt.Printf("Llave:      RSA %d bits\n", k.N.BitLen())
	} else {
		fmt.Printf("Llave:      %T\n", cert.PrivateKey)
	}

	if err := signer.ValidateCertificate(cert, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "NO APTO: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK: certificado apto para firmar DTE")
}
