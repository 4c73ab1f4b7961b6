// Package connectivity detecta si hay salida a internet antes de cada ciclo del despachador.
package connectivity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// Pinger envía un eco ICMP y espera la respuesta.
type Pinger interface {
	Ping(ctx context.Context, host string, timeout time.Duration) error
}

// Config hosts y tiempos de la sonda.
type Config struct {
	Hosts       []string      // sifen.set.gov.py, sifen-test.set.gov.py, google.com
	PingTimeout time.Duration // por host
	HTTPURL     string        // respaldo: responde 204
	HTTPTimeout time.Duration
}

// DefaultConfig valores por defecto.
func DefaultConfig() Config {
	return Config{
		Hosts:       []string{"sifen.set.gov.py", "sifen-test.set.gov.py", "google.com"},
		PingTimeout: 3 * time.Second,
		HTTPURL:     "https://www.google.com/generate_204",
		HTTPTimeout: 5 * time.Second,
	}
}

// Prober prueba ICMP host por host y, si ninguno responde, un GET HTTP.
type Prober struct {
	cfg    Config
	pinger Pinger
	client *http.Client
	log    zerolog.Logger
}

// NewProber crea la sonda. pinger nil usa ICMP sin privilegios (udp4).
func NewProber(cfg Config, pinger Pinger, log zerolog.Logger) *Prober {
	def := DefaultConfig()
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = def.HTTPTimeout
	}
	if pinger == nil {
		pinger = ICMPPinger{}
	}
	return &Prober{
		cfg:    cfg,
		pinger: pinger,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		log:    log.With().Str("component", "connectivity").Logger(),
	}
}

// Connected devuelve true con el primer host que responde.
func (p *Prober) Connected(ctx context.Context) bool {
	for _, host := range p.cfg.Hosts {
		if ctx.Err() != nil {
			return false
		}
		err := p.pinger.Ping(ctx, host, p.cfg.PingTimeout)
		if err == nil {
			return true
		}
		p.log.Debug().Str("host", host).Err(err).Msg("ping sin respuesta")
	}
	if p.cfg.HTTPURL == "" {
		return false
	}
	return p.httpCheck(ctx)
}

func (p *Prober) httpCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.HTTPTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.HTTPURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug().Err(err).Msg("verificación HTTP fallida")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK
}

// ICMPPinger eco ICMP por socket udp4 (no requiere root si net.ipv4.ping_group_range lo permite).
type ICMPPinger struct{}

// Ping implementa Pinger.
func (ICMPPinger) Ping(ctx context.Context, host string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var resolver net.Resolver
	rctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	addrs, err := resolver.LookupIP(rctx, "ip4", host)
	if err != nil || len(addrs) == 0 {
		return fmt.Errorf("resolver %s: %w", host, err)
	}

	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return fmt.Errorf("socket icmp: %w", err)
	}
	defer conn.Close()

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: os.Getpid() & 0xffff, Seq: 1, Data: []byte("sifen-dte")},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return err
	}
	if _, err := conn.WriteTo(wb, &net.UDPAddr{IP: addrs[0]}); err != nil {
		return fmt.Errorf("enviar eco a %s: %w", host, err)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return err
	}

	rb := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(rb)
		if err != nil {
			return fmt.Errorf("esperar eco de %s: %w", host, err)
		}
		reply, err := icmp.ParseMessage(ipv4.ICMPTypeEcho.Protocol(), rb[:n])
		if err != nil {
			continue
		}
		if reply.Type == ipv4.ICMPTypeEchoReply {
			return nil
		}
	}
}
