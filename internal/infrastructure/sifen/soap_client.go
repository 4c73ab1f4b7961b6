package sifen

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
	"golang.org/x/time/rate"
)

// ── Rutas de los servicios web ────────────────────────────────────────────────

const (
	PathSendBatch     = "/de/ws/async/recibe-lote"
	PathSendDocument  = "/de/ws/sync/recibe-de"
	PathQueryBatch    = "/de/ws/consultas/consulta-lote"
	PathQueryDocument = "/de/ws/consultas/consulta-de"
	PathQueryRUC      = "/de/ws/consultas/consulta-ruc"
	PathEvent         = "/de/ws/eventos/evento"

	// MaxResponseBytes tope de lectura del cuerpo de respuesta.
	MaxResponseBytes = 2 << 20

	contentType = "application/soap+xml; charset=utf-8"
)

// ── Puerto (interfaz) ──────────────────────────────────────────────────────────

// Transmitter puerto de salida hacia los servicios web SIFEN. Para tests se puede inyectar un fake.
type Transmitter interface {
	SendBatch(ctx context.Context, cert tls.Certificate, docs []SignedDE) (*Result, error)
	SendDocument(ctx context.Context, cert tls.Certificate, doc SignedDE) (*Result, error)
	QueryBatch(ctx context.Context, cert tls.Certificate, batchID string) (*Result, error)
	QueryDocument(ctx context.Context, cert tls.Certificate, cdc string) (*Result, error)
	QueryRUC(ctx context.Context, cert tls.Certificate, ruc string) (*Result, error)
	SendEvent(ctx context.Context, cert tls.Certificate, eventID string, signedEvent []byte) (*Result, error)
}

// ClientConfig configuración del cliente SOAP.
type ClientConfig struct {
	Environment       sifen.Environment
	BaseURL           string        // vacío: la URL del ambiente
	Timeout           time.Duration // por llamada; 0 = 60 s
	RequestsPerSecond float64       // 0 = sin límite
	Burst             int
	TLSConfig         *tls.Config  // base para mTLS; se clona y se agrega el certificado
	HTTPClient        *http.Client // si se define, se usa tal cual (tests)
	Now               func() time.Time
}

// ── Implementación SOAP ────────────────────────────────────────────────────────

// SOAPClient implementa Transmitter con SOAP 1.2 sobre HTTPS con autenticación mutua.
type SOAPClient struct {
	cfg     ClientConfig
	baseURL string
	limiter *rate.Limiter

	mu      sync.Mutex
	lastDER []byte
	client  *http.Client

	seqMu sync.Mutex
	seq   int
}

// NewSOAPClient construye el cliente.
func NewSOAPClient(cfg ClientConfig) *SOAPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	base := cfg.BaseURL
	if base == "" {
		base = cfg.Environment.BaseURL()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &SOAPClient{cfg: cfg, baseURL: base, limiter: limiter}
}

var _ Transmitter = (*SOAPClient)(nil)

// SendBatch envía hasta 50 rDE firmados comprimidos en un lote asíncrono.
func (c *SOAPClient) SendBatch(ctx context.Context, cert tls.Certificate, docs []SignedDE) (*Result, error) {
	xde, err := EncodeBatch(docs)
	if err != nil {
		return nil, err
	}
	body := etree.NewElement("rEnvioLote")
	body.CreateAttr("xmlns", sifen.NamespaceSIFEN)
	add(body, "dId", c.nextID())
	add(body, "xDE", xde)
	return c.call(ctx, cert, "recibe-lote", PathSendBatch, body)
}

// SendDocument envía un rDE firmado por la vía síncrona.
func (c *SOAPClient) SendDocument(ctx context.Context, cert tls.Certificate, d SignedDE) (*Result, error) {
	rde := etree.NewDocument()
	if err := rde.ReadFromBytes(stripDeclaration(d.XML)); err != nil || rde.Root() == nil {
		return nil, fmt.Errorf("sifen recibe-de: rDE ilegible: %v", err)
	}
	body := etree.NewElement("rEnviDe")
	body.CreateAttr("xmlns", sifen.NamespaceSIFEN)
	add(body, "dId", c.nextID())
	body.CreateElement("xDE").AddChild(rde.Root())
	return c.call(ctx, cert, "recibe-de", PathSendDocument, body)
}

// QueryBatch consulta el resultado de un lote por su número de protocolo.
func (c *SOAPClient) QueryBatch(ctx context.Context, cert tls.Certificate, batchID string) (*Result, error) {
	body := etree.NewElement("rEnviConsLoteDe")
	body.CreateAttr("xmlns", sifen.NamespaceSIFEN)
	add(body, "dId", c.nextID())
	add(body, "dProtConsLote", batchID)
	return c.call(ctx, cert, "consulta-lote", PathQueryBatch, body)
}

// QueryDocument consulta un DE por CDC.
func (c *SOAPClient) QueryDocument(ctx context.Context, cert tls.Certificate, cdc string) (*Result, error) {
	body := etree.NewElement("rEnviConsDeRequest")
	body.CreateAttr("xmlns", sifen.NamespaceSIFEN)
	add(body, "dId", c.nextID())
	add(body, "dCDC", cdc)
	return c.call(ctx, cert, "consulta-de", PathQueryDocument, body)
}

// QueryRUC consulta los datos de un contribuyente. Acepta "80069563" o "80069563-1".
func (c *SOAPClient) QueryRUC(ctx context.Context, cert tls.Certificate, ruc string) (*Result, error) {
	digits := sifen.OnlyDigits(ruc)
	if strings.Contains(ruc, "-") {
		digits, _ = sifen.SplitRUC(ruc)
	}
	body := etree.NewElement("rEnviConsRUC")
	body.CreateAttr("xmlns", sifen.NamespaceSIFEN)
	add(body, "dId", c.nextID())
	add(body, "dRUCCons", digits)
	return c.call(ctx, cert, "consulta-ruc", PathQueryRUC, body)
}

// SendEvent envía un evento firmado (gGroupGesEve) dentro de dEvReg.
func (c *SOAPClient) SendEvent(ctx context.Context, cert tls.Certificate, eventID string, signedEvent []byte) (*Result, error) {
	ev := etree.NewDocument()
	if err := ev.ReadFromBytes(stripDeclaration(signedEvent)); err != nil || ev.Root() == nil {
		return nil, fmt.Errorf("sifen evento: XML de evento ilegible: %v", err)
	}
	body := etree.NewElement("rEnviEventoDe")
	body.CreateAttr("xmlns", sifen.NamespaceSIFEN)
	add(body, "dId", eventID)
	body.CreateElement("dEvReg").AddChild(ev.Root())
	return c.call(ctx, cert, "evento", PathEvent, body)
}

// call arma el sobre, respeta el limitador y clasifica la respuesta.
func (c *SOAPClient) call(ctx context.Context, cert tls.Certificate, op, path string, body *etree.Element) (*Result, error) {
	payload, err := envelope(body)
	if err != nil {
		return nil, fmt.Errorf("sifen %s: serializar sobre: %w", op, err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ConnectivityError{Op: op, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sifen %s: crear request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient(cert).Do(req)
	if err != nil {
		return nil, &ConnectivityError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, &ConnectivityError{Op: op, Err: err}
	}
	if len(raw) > MaxResponseBytes {
		return nil, &ProtocolError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("respuesta supera %d bytes", MaxResponseBytes)}
	}

	res, err := ParseResponse(op, resp.StatusCode, raw)
	if err != nil {
		return nil, err
	}
	res.Request = payload

	switch res.Code.Kind {
	case CodeBusinessRejection, CodeMalformed, CodeBatchNotQueued:
		return nil, &AuthorityRejected{Op: op, Code: res.Code, Message: res.Message, Raw: raw}
	case CodeUnknown:
		if len(res.Documents) == 0 {
			return nil, &ProtocolError{Op: op, Status: resp.StatusCode, Body: truncateBody(raw), Err: fmt.Errorf("dCodRes desconocido %q", res.Code.Value)}
		}
	}
	return res, nil
}

// httpClient devuelve un cliente con el certificado como credencial TLS de cliente.
// Se reutiliza mientras el certificado no cambie.
func (c *SOAPClient) httpClient(cert tls.Certificate) *http.Client {
	if c.cfg.HTTPClient != nil {
		return c.cfg.HTTPClient
	}
	var der []byte
	if len(cert.Certificate) > 0 {
		der = cert.Certificate[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && bytes.Equal(der, c.lastDER) {
		return c.client
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.cfg.TLSConfig != nil {
		tlsCfg = c.cfg.TLSConfig.Clone()
	}
	if der != nil {
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	c.client = &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:     tlsCfg,
			TLSHandshakeTimeout: 15 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}
	c.lastDER = der
	return c.client
}

// nextID dId: yyyyMMddHHmmss seguido de 2 dígitos secuenciales.
func (c *SOAPClient) nextID() string {
	c.seqMu.Lock()
	c.seq = (c.seq + 1) % 100
	n := c.seq
	c.seqMu.Unlock()
	return c.cfg.Now().Format("20060102150405") + sifen.PadLeft(strconv.Itoa(n), 2)
}

// envelope envuelve el cuerpo en un sobre SOAP 1.2.
func envelope(body *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := doc.CreateElement("soap:Envelope")
	env.CreateAttr("xmlns:soap", sifen.NamespaceSOAP12)
	env.CreateElement("soap:Header")
	env.CreateElement("soap:Body").AddChild(body)
	return doc.WriteToBytes()
}
