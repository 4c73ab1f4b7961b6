package billing

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/internal/domain/repository"
	"github.com/jhoicas/sifen-dte/internal/infrastructure/archive"
	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// PipelineConfig parámetros del armado que no dependen del documento.
type PipelineConfig struct {
	Environment sifen.Environment
	CSCID       string
	Sync        bool // recibe-de (un DE por llamada) en lugar de recibe-lote
}

// Pipeline arma, firma y transmite documentos y eventos:
//
//	emisor → rDE sin firma (CDC + QR provisorio) → firma XML-DSig → lote ZIP → SOAP
//
// No persiste estado: el llamador aplica el resultado y lo guarda.
type Pipeline struct {
	emitters    repository.EmitterRepository
	builder     Builder
	signer      sifen.Signer
	transmitter sifenxml.Transmitter
	archive     Archive
	metrics     Metrics
	clock       Clock
	cfg         PipelineConfig
	log         zerolog.Logger
}

// NewPipeline construye el pipeline. archive y metrics pueden ser nil.
func NewPipeline(
	emitters repository.EmitterRepository,
	builder Builder,
	signer sifen.Signer,
	transmitter sifenxml.Transmitter,
	arch Archive,
	metrics Metrics,
	clock Clock,
	cfg PipelineConfig,
	log zerolog.Logger,
) *Pipeline {
	if arch == nil {
		arch = archive.Nop{}
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Pipeline{
		emitters:    emitters,
		builder:     builder,
		signer:      signer,
		transmitter: transmitter,
		archive:     arch,
		metrics:     metrics,
		clock:       clock,
		cfg:         cfg,
		log:         log.With().Str("component", "pipeline").Logger(),
	}
}

// Prepared documento firmado con su huella C14N.
type Prepared struct {
	Signed      sifenxml.SignedDE
	Fingerprint string
}

// Prepare arma y firma el rDE. Deja en doc el CDC, los totales y el XML firmado.
func (p *Pipeline) Prepare(ctx context.Context, doc *entity.FiscalDocument, cert tls.Certificate) (*Prepared, error) {
	em, err := p.emitters.GetByID(ctx, doc.EmitterID)
	if err != nil {
		return nil, fmt.Errorf("obtener emisor: %w", err)
	}
	if em == nil {
		return nil, fmt.Errorf("%w: emisor %s no encontrado", domain.ErrMissingMasterData, doc.EmitterID)
	}

	res, err := p.builder.Build(&sifenxml.BuildContext{
		Document:    doc,
		Emitter:     em,
		Environment: p.cfg.Environment,
		CSCID:       p.cfg.CSCID,
		SigningTime: p.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if doc.CDC == "" {
		doc.CDC = res.CDC
		doc.SecurityCode = res.CDC[34:43]
	}
	doc.Totals = res.Totals

	signed, err := p.signer.Sign(res.Doc, res.CDC, cert)
	if err != nil {
		return nil, err
	}
	xml, err := signed.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializar rDE firmado: %w", err)
	}
	doc.SignedXML = string(xml)

	fp, err := sifenxml.Fingerprint(xml)
	if err != nil {
		p.log.Warn().Err(err).Str("cdc", doc.CDC).Msg("no se pudo calcular la huella C14N")
	}
	p.store(ctx, archive.DocumentKey(doc.CDC, "rde.xml"), xml)

	return &Prepared{
		Signed:      sifenxml.SignedDE{DocumentID: doc.ID, CDC: doc.CDC, XML: xml},
		Fingerprint: fp,
	}, nil
}

// Submit envía el documento como lote de un elemento, o por recibe-de en modo sincrónico.
func (p *Pipeline) Submit(ctx context.Context, cert tls.Certificate, d sifenxml.SignedDE) (*sifenxml.Result, error) {
	start := p.clock.Now()
	op := "recibe-lote"
	var (
		res *sifenxml.Result
		err error
	)
	if p.cfg.Sync {
		op = "recibe-de"
		res, err = p.transmitter.SendDocument(ctx, cert, d)
	} else {
		res, err = p.transmitter.SendBatch(ctx, cert, []sifenxml.SignedDE{d})
	}
	p.observe(op, start, res, err)
	if res != nil {
		p.store(ctx, archive.DocumentKey(d.CDC, op+".xml"), res.Raw)
	}
	return res, err
}

// Poll consulta el resultado del lote del documento.
func (p *Pipeline) Poll(ctx context.Context, cert tls.Certificate, doc *entity.FiscalDocument) (*sifenxml.Result, error) {
	start := p.clock.Now()
	res, err := p.transmitter.QueryBatch(ctx, cert, doc.BatchID)
	p.observe("consulta-lote", start, res, err)
	if res != nil {
		p.store(ctx, archive.DocumentKey(doc.CDC, "consulta-lote.xml"), res.Raw)
	}
	return res, err
}

// Consult consulta un DE por CDC.
func (p *Pipeline) Consult(ctx context.Context, cert tls.Certificate, cdc string) (*sifenxml.Result, error) {
	start := p.clock.Now()
	res, err := p.transmitter.QueryDocument(ctx, cert, cdc)
	p.observe("consulta-de", start, res, err)
	if res != nil {
		p.store(ctx, archive.DocumentKey(cdc, "consulta-de.xml"), res.Raw)
	}
	return res, err
}

// CheckRUC consulta el padrón de contribuyentes.
func (p *Pipeline) CheckRUC(ctx context.Context, cert tls.Certificate, ruc string) (*sifenxml.Result, error) {
	start := p.clock.Now()
	res, err := p.transmitter.QueryRUC(ctx, cert, ruc)
	p.observe("consulta-ruc", start, res, err)
	return res, err
}

// PrepareEvent arma y firma el evento de cancelación si todavía no tiene XML firmado.
func (p *Pipeline) PrepareEvent(ev *entity.CancellationEvent, cert tls.Certificate) error {
	if ev.SignedXML != "" {
		return nil
	}
	doc, id, err := sifenxml.BuildCancellationEvent(sifenxml.CancellationEventInput{
		EventID:     ev.ID,
		CDC:         ev.CDC,
		Reason:      ev.Reason,
		SigningTime: p.clock.Now(),
	})
	if err != nil {
		return err
	}
	signed, err := p.signer.Sign(doc, id, cert)
	if err != nil {
		return err
	}
	xml, err := signed.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serializar evento firmado: %w", err)
	}
	ev.SignedXML = string(xml)
	return nil
}

// SendEvent transmite el evento ya firmado.
func (p *Pipeline) SendEvent(ctx context.Context, cert tls.Certificate, ev *entity.CancellationEvent) (*sifenxml.Result, error) {
	start := p.clock.Now()
	res, err := p.transmitter.SendEvent(ctx, cert, strconv.FormatInt(ev.ID, 10), []byte(ev.SignedXML))
	p.observe("evento", start, res, err)
	if res != nil {
		p.store(ctx, archive.DocumentKey(ev.CDC, fmt.Sprintf("evento-%d.xml", ev.ID)), res.Raw)
	}
	return res, err
}

func (p *Pipeline) observe(op string, start time.Time, res *sifenxml.Result, err error) {
	outcome := "ok"
	switch {
	case res != nil:
		outcome = res.Code.Value
	case err != nil:
		outcome = string(ErrorKindOf(err))
	}
	p.metrics.ObserveTransmission(op, outcome, p.clock.Now().Sub(start))
}

// store copia de auditoría; un fallo del archivo no interrumpe la transmisión.
func (p *Pipeline) store(ctx context.Context, key string, body []byte) {
	if len(body) == 0 {
		return
	}
	if err := p.archive.Put(ctx, key, body, "application/xml"); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("no se pudo archivar")
	}
}

// ErrorKindOf clasifica errores de transporte y de dominio.
func ErrorKindOf(err error) domain.ErrorKind {
	var connErr *sifenxml.ConnectivityError
	var protoErr *sifenxml.ProtocolError
	var rejected *sifenxml.AuthorityRejected
	switch {
	case err == nil:
		return domain.KindNone
	case errors.As(err, &connErr), errors.Is(err, context.DeadlineExceeded):
		return domain.KindConnectivity
	case errors.As(err, &rejected):
		return domain.KindRejected
	case errors.As(err, &protoErr):
		return domain.KindProtocol
	default:
		return domain.KindOf(err)
	}
}
