package billing

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/dte"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/internal/domain/repository"
	"github.com/jhoicas/sifen-dte/internal/infrastructure/metrics"
	"github.com/jhoicas/sifen-dte/pkg/logger"
)

// ErrCycleInProgress otro ciclo del despachador está corriendo en este proceso.
var ErrCycleInProgress = fmt.Errorf("%w: ciclo del despachador en curso", domain.ErrConflict)

// DispatcherConfig tiempos y topes del ciclo de reintentos.
type DispatcherConfig struct {
	Interval        time.Duration // espera entre ciclos con conexión
	OfflineInterval time.Duration // espera sin conexión
	InitialDelay    time.Duration
	DelayBetween    time.Duration // pausa entre acciones
	MaxPerCycle     int
	MaxAttempts     int
}

// DefaultDispatcherConfig valores por defecto: 2 min, 30 s, 30 s, 1 s, 10 y 3 intentos.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Interval:        2 * time.Minute,
		OfflineInterval: 30 * time.Second,
		InitialDelay:    30 * time.Second,
		DelayBetween:    time.Second,
		MaxPerCycle:     10,
		MaxAttempts:     3,
	}
}

// CycleReport resumen de un ciclo.
type CycleReport struct {
	Result    string // metrics.Cycle*
	Connected bool
	Submitted int
	Accepted  int
	Rejected  int
	Failed    int
	Events    int
	Polled    int
	Aborted   bool
	Next      time.Duration // espera sugerida antes del próximo ciclo
}

// Dispatcher ciclo de reintentos consciente de la conectividad:
//
//	lock → sonda → (sin conexión: esperar) | (certificado → snapshot → Plan → acciones) → esperar
//
// El estado de cada documento se persiste después de cada acción completada.
type Dispatcher struct {
	cfg      DispatcherConfig
	clock    Clock
	prober   Prober
	docs     repository.DocumentRepository
	events   repository.EventRepository
	tx       TxRunner
	certs    CertificateSource
	pipeline *Pipeline
	locker   Locker
	metrics  Metrics
	log      zerolog.Logger

	running sync.Mutex
}

// NewDispatcher construye el despachador con todas sus dependencias.
func NewDispatcher(
	cfg DispatcherConfig,
	clock Clock,
	prober Prober,
	docs repository.DocumentRepository,
	events repository.EventRepository,
	tx TxRunner,
	certs CertificateSource,
	pipeline *Pipeline,
	locker Locker,
	m Metrics,
	log zerolog.Logger,
) *Dispatcher {
	if clock == nil {
		clock = SystemClock{}
	}
	if m == nil {
		m = NopMetrics{}
	}
	if cfg.MaxPerCycle <= 0 {
		cfg.MaxPerCycle = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Dispatcher{
		cfg: cfg, clock: clock, prober: prober, docs: docs, events: events, tx: tx,
		certs: certs, pipeline: pipeline, locker: locker, metrics: m,
		log: log.With().Str("component", "dispatcher").Logger(),
	}
}

// Run espera InitialDelay y ejecuta ciclos hasta que se cancele ctx.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info().Dur("initial_delay", d.cfg.InitialDelay).Msg("despachador iniciado")
	if err := d.clock.Sleep(ctx, d.cfg.InitialDelay); err != nil {
		return err
	}
	for {
		rep, err := d.RunOnce(ctx)
		if err != nil && !errors.Is(err, ErrCycleInProgress) {
			d.log.Error().Err(err).Msg("ciclo con error")
		}
		if ctx.Err() != nil {
			d.release()
			return ctx.Err()
		}
		next := rep.Next
		if next <= 0 {
			next = d.cfg.Interval
		}
		if err := d.clock.Sleep(ctx, next); err != nil {
			d.release()
			return err
		}
	}
}

// RunOnce ejecuta un ciclo completo. Se usa desde Run, desde el endpoint manual y en tests.
func (d *Dispatcher) RunOnce(ctx context.Context) (CycleReport, error) {
	if !d.running.TryLock() {
		return CycleReport{Result: metrics.CycleNoLock, Next: d.cfg.Interval}, ErrCycleInProgress
	}
	defer d.running.Unlock()

	rep, err := d.cycle(ctx)
	d.metrics.CycleCompleted(rep.Result)
	return rep, err
}

func (d *Dispatcher) cycle(ctx context.Context) (CycleReport, error) {
	rep := CycleReport{Next: d.cfg.Interval}

	// 1. Lock de instancia única
	if d.locker != nil {
		ok, err := d.locker.Acquire(ctx)
		if err != nil {
			rep.Result = metrics.CycleFailed
			return rep, fmt.Errorf("tomar lock del despachador: %w", err)
		}
		if !ok {
			d.log.Debug().Msg("otra instancia tiene el lock, se omite el ciclo")
			rep.Result = metrics.CycleNoLock
			return rep, nil
		}
	}

	// 2. Conectividad
	if !d.prober.Connected(ctx) {
		d.log.Info().Dur("retry_in", d.cfg.OfflineInterval).Msg("sin conexión a internet, no se envían documentos")
		rep.Result = metrics.CycleOffline
		rep.Next = d.cfg.OfflineInterval
		return rep, nil
	}
	rep.Connected = true

	// 3. Certificado
	if err := d.certs.Reload(); err != nil {
		d.log.Error().Err(err).Msg("certificado de firma no disponible")
		rep.Result = metrics.CycleNoCert
		return rep, nil
	}
	cert, err := d.certs.Certificate()
	if err != nil {
		d.log.Error().Err(err).Msg("certificado de firma no disponible")
		rep.Result = metrics.CycleNoCert
		return rep, nil
	}

	// 4. Snapshot y plan
	snap, err := d.snapshot(ctx)
	if err != nil {
		rep.Result = metrics.CycleFailed
		return rep, err
	}
	d.metrics.SetQueueDepth(len(snap.Dispatchable))
	actions := Plan(snap)

	// 5. Acciones en serie
	for i, a := range actions {
		if i > 0 {
			if err := d.clock.Sleep(ctx, d.cfg.DelayBetween); err != nil {
				rep.Result = metrics.CycleAborted
				rep.Aborted = true
				return rep, err
			}
		}
		abort, err := d.execute(ctx, cert, a, &rep)
		if err != nil {
			d.log.Error().Err(err).Str("action", a.Kind.String()).Msg("no se pudo persistir el resultado")
		}
		if abort {
			d.log.Warn().Str("action", a.Kind.String()).Msg("se perdió la conexión, se aborta el ciclo")
			rep.Result = metrics.CycleAborted
			rep.Aborted = true
			return rep, nil
		}
	}
	rep.Result = metrics.CycleDone
	if len(actions) > 0 {
		d.log.Info().Int("submitted", rep.Submitted).Int("accepted", rep.Accepted).Int("rejected", rep.Rejected).
			Int("failed", rep.Failed).Int("events", rep.Events).Int("polled", rep.Polled).Msg("ciclo completado")
	}
	return rep, nil
}

func (d *Dispatcher) snapshot(ctx context.Context) (Snapshot, error) {
	docs, err := d.docs.ListDispatchable(ctx, d.cfg.MaxAttempts, d.cfg.MaxPerCycle)
	if err != nil {
		return Snapshot{}, fmt.Errorf("listar pendientes: %w", err)
	}
	evs, err := d.events.ListPending(ctx, d.cfg.MaxAttempts, d.cfg.MaxPerCycle)
	if err != nil {
		return Snapshot{}, fmt.Errorf("listar eventos pendientes: %w", err)
	}
	awaiting, err := d.docs.ListAwaitingResult(ctx, d.cfg.MaxAttempts, d.cfg.MaxPerCycle)
	if err != nil {
		return Snapshot{}, fmt.Errorf("listar lotes enviados: %w", err)
	}
	return Snapshot{Dispatchable: docs, Events: evs, Awaiting: awaiting, Limit: d.cfg.MaxPerCycle}, nil
}

func (d *Dispatcher) execute(ctx context.Context, cert tls.Certificate, a Action, rep *CycleReport) (bool, error) {
	switch a.Kind {
	case ActionSubmit:
		return d.submit(ctx, cert, a.Document, rep)
	case ActionPoll:
		return d.poll(ctx, cert, a.Document, rep)
	case ActionCancel:
		rep.Events++
		return d.sendEvent(ctx, cert, a.Event)
	default:
		return false, nil
	}
}

func (d *Dispatcher) submit(ctx context.Context, cert tls.Certificate, doc *entity.FiscalDocument, rep *CycleReport) (bool, error) {
	from := doc.Status
	log := logger.Document(d.log, doc.ID, doc.CDC, "")

	prepared, err := d.pipeline.Prepare(ctx, doc, cert)
	if err != nil {
		applyFailure(doc, err, true)
		rep.Failed++
		log.Warn().Err(err).Str("kind", doc.LastErrorKind).Int("attempts", doc.Attempts).Msg("no se pudo armar o firmar")
		d.warnParked(log, doc)
		return false, d.persist(ctx, doc, from, newLog(doc, OpSubmit, from, d.clock.Now()))
	}

	res, err := d.pipeline.Submit(ctx, cert, prepared.Signed)
	entry := func() *entity.TransmissionLog {
		l := newLog(doc, OpSubmit, from, d.clock.Now())
		l.Fingerprint = prepared.Fingerprint
		l.Request = doc.SignedXML
		fillLog(l, res)
		return l
	}
	if err == nil {
		err = applySubmitResult(doc, res, d.clock.Now())
	}
	if err != nil {
		abort := applyFailure(doc, err, true)
		l := entry()
		l.ErrorKind, l.Message = doc.LastErrorKind, doc.LastError
		if doc.Status == entity.StatusRejected {
			rep.Rejected++
		} else if !abort {
			rep.Failed++
		}
		log.Warn().Err(err).Str("kind", doc.LastErrorKind).Msg("envío fallido")
		d.warnParked(log, doc)
		return abort, d.persist(ctx, doc, from, l)
	}

	switch doc.Status {
	case entity.StatusAccepted:
		rep.Accepted++
	case entity.StatusRejected:
		rep.Rejected++
	default:
		rep.Submitted++
	}
	log.Info().Str("code", res.Code.Value).Str("status", string(doc.Status)).Str("batch_id", doc.BatchID).Msg("documento enviado")
	return false, d.persist(ctx, doc, from, entry())
}

func (d *Dispatcher) poll(ctx context.Context, cert tls.Certificate, doc *entity.FiscalDocument, rep *CycleReport) (bool, error) {
	from := doc.Status
	log := logger.Document(d.log, doc.ID, doc.CDC, "").With().Str("batch_id", doc.BatchID).Logger()
	rep.Polled++

	res, err := d.pipeline.Poll(ctx, cert, doc)
	if err != nil {
		abort := applyFailure(doc, err, true)
		if abort {
			// sin conexión: el documento queda como estaba para la próxima consulta
			return true, nil
		}
		if doc.Status == entity.StatusRejected {
			rep.Rejected++
		} else {
			rep.Failed++
		}
		l := newLog(doc, OpPoll, from, d.clock.Now())
		l.ErrorKind, l.Message = doc.LastErrorKind, doc.LastError
		log.Warn().Err(err).Str("kind", doc.LastErrorKind).Int("attempts", doc.Attempts).Msg("consulta de lote fallida")
		d.warnParked(log, doc)
		return false, d.persist(ctx, doc, from, l)
	}

	applyPollResult(doc, res, d.clock.Now())
	if doc.Status == from {
		log.Debug().Str("code", res.Code.Value).Msg("lote aún en proceso")
		return false, nil
	}
	switch doc.Status {
	case entity.StatusAccepted:
		rep.Accepted++
	case entity.StatusRejected:
		rep.Rejected++
	}
	l := newLog(doc, OpPoll, from, d.clock.Now())
	fillLog(l, res)
	if doc.Status == entity.StatusRejected {
		l.ErrorKind, l.Message = doc.LastErrorKind, doc.LastError
	}
	log.Info().Str("code", doc.ResponseCode).Str("status", string(doc.Status)).Msg("resultado de lote")
	return false, d.persist(ctx, doc, from, l)
}

func (d *Dispatcher) sendEvent(ctx context.Context, cert tls.Certificate, ev *entity.CancellationEvent) (bool, error) {
	abort, err := deliverEvent(ctx, d.pipeline, d.docs, d.tx, d.clock, cert, ev)
	if err != nil {
		return abort, err
	}
	d.log.Info().Int64("event_id", ev.ID).Str("cdc", ev.CDC).Str("code", ev.ResponseCode).
		Str("status", string(ev.Status)).Msg("evento de cancelación procesado")
	return abort, nil
}

func (d *Dispatcher) persist(ctx context.Context, doc *entity.FiscalDocument, expected entity.DocumentStatus, l *entity.TransmissionLog) error {
	return persistGuarded(ctx, d.tx, doc, expected, l)
}

// persistGuarded guarda el documento y su bitácora si el estado no cambió desde que se leyó.
func persistGuarded(ctx context.Context, tx TxRunner, doc *entity.FiscalDocument, expected entity.DocumentStatus, l *entity.TransmissionLog) error {
	return tx.RunDocument(ctx, func(docs repository.DocumentRepository, _ repository.EventRepository) error {
		cur, err := docs.LockByID(ctx, doc.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: documento %s", domain.ErrNotFound, doc.ID)
		}
		if cur.Status != expected {
			return fmt.Errorf("%w: %s pasó a %s durante el envío", domain.ErrConflict, doc.ID, cur.Status)
		}
		if err := docs.Update(ctx, doc); err != nil {
			return err
		}
		return docs.AppendLog(ctx, l)
	})
}

func (d *Dispatcher) warnParked(log zerolog.Logger, doc *entity.FiscalDocument) {
	if !dte.IsTerminal(doc.Status) && doc.Attempts >= d.cfg.MaxAttempts {
		log.Warn().Int("attempts", doc.Attempts).Msg("máximo de intentos alcanzado, el documento queda estacionado")
	}
}

func (d *Dispatcher) release() {
	if d.locker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.locker.Release(ctx); err != nil {
		d.log.Warn().Err(err).Msg("no se pudo liberar el lock")
	}
}
