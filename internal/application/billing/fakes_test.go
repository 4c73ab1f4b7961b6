package billing_test

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/sifen-dte/internal/application/billing"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/internal/domain/repository"
	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

const officialCDC = "01800695631001001000000612021112917595714694"

var baseTime = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func testEmitter() *entity.Emitter {
	return &entity.Emitter{
		ID: "em-1", RUC: "80069563", DV: "1", Name: "DE generado en ambiente de prueba - sin valor comercial ni fiscal",
		Address: "Avda. España", HouseNumber: "1234", TaxpayerType: 1,
		DepartmentCode: 1, DepartmentName: "CAPITAL", DistrictCode: 1, DistrictName: "ASUNCION (DISTRITO)",
		CityCode: 1, CityName: "ASUNCION (DISTRITO)",
		Activities: []entity.EconomicActivity{{Code: "62010", Description: "Actividades de programación informática"}},
		Timbrado:   entity.Timbrado{Number: "12558946", StartDate: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
}

// pendingInvoice factura 2 × 50.000 al 10 % emitida offset minutos después de baseTime.
func pendingInvoice(id string, number int, offset time.Duration) *entity.FiscalDocument {
	return &entity.FiscalDocument{
		ID: id, Kind: entity.KindInvoice, EmitterID: "em-1", EmissionMode: entity.EmissionElectronic,
		Establishment: "001", ExpeditionPoint: "001", Number: fmt.Sprintf("%07d", number),
		IssuedAt: baseTime.Add(offset), Currency: "PYG",
		Receiver: entity.Receiver{Nature: 2, DocType: sifen.IDOtro, DocNumber: "0"},
		Lines: []entity.DocumentLine{{
			Code: "P-1", Description: "Servicio", Quantity: decimal.NewFromInt(2),
			UnitPrice: decimal.NewFromInt(50000), VATCategory: string(sifen.VAT10),
		}},
		Status: entity.StatusPending,
	}
}

func result(code string) *sifenxml.Result {
	return &sifenxml.Result{Code: sifenxml.ParseResponseCode(code), Raw: []byte("<r>" + code + "</r>")}
}

func connErr() error {
	return &sifenxml.ConnectivityError{Op: "recibe-lote", Err: errors.New("dial tcp: i/o timeout")}
}

// ──────────────────────────────────────────────────────────────────────────────
// Repositorios en memoria
// ──────────────────────────────────────────────────────────────────────────────

func clone(d *entity.FiscalDocument) *entity.FiscalDocument {
	if d == nil {
		return nil
	}
	c := *d
	c.Lines = append([]entity.DocumentLine(nil), d.Lines...)
	if d.Reference != nil {
		ref := *d.Reference
		c.Reference = &ref
	}
	return &c
}

type memDocs struct {
	mu   sync.Mutex
	docs map[string]*entity.FiscalDocument
	logs []*entity.TransmissionLog
	seq  map[string]int64
}

func newMemDocs(docs ...*entity.FiscalDocument) *memDocs {
	m := &memDocs{docs: map[string]*entity.FiscalDocument{}, seq: map[string]int64{}}
	for _, d := range docs {
		m.docs[d.ID] = clone(d)
	}
	return m
}

var _ repository.DocumentRepository = (*memDocs)(nil)

func (m *memDocs) Create(_ context.Context, doc *entity.FiscalDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID == "" {
		doc.ID = fmt.Sprintf("doc-%d", len(m.docs)+1)
	}
	m.docs[doc.ID] = clone(doc)
	return nil
}

func (m *memDocs) Update(_ context.Context, doc *entity.FiscalDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; !ok {
		return errors.New("no existe")
	}
	m.docs[doc.ID] = clone(doc)
	return nil
}

func (m *memDocs) GetByID(_ context.Context, id string) (*entity.FiscalDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.docs[id]), nil
}

func (m *memDocs) GetByCDC(_ context.Context, cdc string) (*entity.FiscalDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.CDC == cdc {
			return clone(d), nil
		}
	}
	return nil, nil
}

func (m *memDocs) LockByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	return m.GetByID(ctx, id)
}

func (m *memDocs) ListDispatchable(_ context.Context, maxAttempts, limit int) ([]*entity.FiscalDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.FiscalDocument
	for _, d := range m.docs {
		if d.EmissionMode != entity.EmissionElectronic || d.Attempts >= maxAttempts {
			continue
		}
		retry := d.Status == entity.StatusSubmitted && d.LastErrorKind == "connectivity" && d.BatchID == ""
		if d.Status != entity.StatusPending && !retry {
			continue
		}
		if d.IsCreditNote() && !m.cdcAccepted(d.Reference.CDC) {
			continue
		}
		out = append(out, clone(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memDocs) cdcAccepted(cdc string) bool {
	for _, d := range m.docs {
		if d.CDC == cdc && d.Status == entity.StatusAccepted {
			return true
		}
	}
	return false
}

func (m *memDocs) ListAwaitingResult(_ context.Context, maxAttempts, limit int) ([]*entity.FiscalDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.FiscalDocument
	for _, d := range m.docs {
		if d.Status == entity.StatusSubmitted && d.BatchID != "" && d.Attempts < maxAttempts {
			out = append(out, clone(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memDocs) NextNumber(_ context.Context, emitterID, est, pto string, kind entity.DocumentKind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := emitterID + "|" + est + "|" + pto + "|" + string(kind)
	m.seq[key]++
	return m.seq[key], nil
}

func (m *memDocs) AppendLog(_ context.Context, l *entity.TransmissionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *l
	m.logs = append(m.logs, &c)
	return nil
}

func (m *memDocs) ListLogs(_ context.Context, documentID string) ([]*entity.TransmissionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.TransmissionLog
	for _, l := range m.logs {
		if l.DocumentID == documentID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memDocs) get(id string) *entity.FiscalDocument {
	d, _ := m.GetByID(context.Background(), id)
	return d
}

func (m *memDocs) countStatus(s entity.DocumentStatus) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.docs {
		if d.Status == s {
			n++
		}
	}
	return n
}

type memEvents struct {
	mu     sync.Mutex
	nextID int64
	events map[int64]*entity.CancellationEvent
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[int64]*entity.CancellationEvent{}}
}

var _ repository.EventRepository = (*memEvents)(nil)

func (m *memEvents) NextEventID(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID, nil
}

func (m *memEvents) Create(_ context.Context, ev *entity.CancellationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *ev
	m.events[ev.ID] = &c
	return nil
}

func (m *memEvents) Update(ctx context.Context, ev *entity.CancellationEvent) error {
	return m.Create(ctx, ev)
}

func (m *memEvents) ListPending(_ context.Context, maxAttempts, limit int) ([]*entity.CancellationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.CancellationEvent
	for _, ev := range m.events {
		if ev.Status == entity.EventPending && ev.Attempts < maxAttempts {
			c := *ev
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memEvents) ListByDocument(_ context.Context, documentID string) ([]*entity.CancellationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.CancellationEvent
	for _, ev := range m.events {
		if ev.DocumentID == documentID {
			c := *ev
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memEvents) get(id int64) *entity.CancellationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[id]
}

type memEmitters struct{ em *entity.Emitter }

func (m memEmitters) GetByID(_ context.Context, id string) (*entity.Emitter, error) {
	if m.em == nil || m.em.ID != id {
		return nil, nil
	}
	return m.em, nil
}

type memTx struct {
	docs   *memDocs
	events *memEvents
}

func (t memTx) RunDocument(_ context.Context, fn func(repository.DocumentRepository, repository.EventRepository) error) error {
	return fn(t.docs, t.events)
}

// ──────────────────────────────────────────────────────────────────────────────
// Dobles de infraestructura
// ──────────────────────────────────────────────────────────────────────────────

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

// fakeProber devuelve los valores en orden; el último se repite.
type fakeProber struct {
	answers []bool
	calls   int
}

func (p *fakeProber) Connected(context.Context) bool {
	i := p.calls
	if i >= len(p.answers) {
		i = len(p.answers) - 1
	}
	p.calls++
	return p.answers[i]
}

type fakeCerts struct{ err error }

func (c fakeCerts) Certificate() (tls.Certificate, error) { return tls.Certificate{}, c.err }
func (c fakeCerts) Reload() error                         { return c.err }

// passSigner no firma: deja el árbol tal cual.
type passSigner struct{}

func (passSigner) Sign(doc *etree.Document, _ string, _ tls.Certificate) (*etree.Document, error) {
	return doc, nil
}

type fakeLocker struct{ deny bool }

func (l fakeLocker) Acquire(context.Context) (bool, error) { return !l.deny, nil }
func (l fakeLocker) Release(context.Context) error         { return nil }

// fakeTransmitter respuestas programadas por llamada.
type fakeTransmitter struct {
	mu      sync.Mutex
	batch   []func() (*sifenxml.Result, error)
	query   func(batchID string) (*sifenxml.Result, error)
	event   func(eventID string) (*sifenxml.Result, error)
	direct  func() (*sifenxml.Result, error)
	consult func(cdc string) (*sifenxml.Result, error)
	ruc     func(ruc string) (*sifenxml.Result, error)
	sent    []string // CDC enviados por lote
	synced  []string // CDC enviados por recibe-de
	queried []string
	events  []string
	rucs    []string
}

func (f *fakeTransmitter) SendBatch(_ context.Context, _ tls.Certificate, docs []sifenxml.SignedDE) (*sifenxml.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.sent)
	f.sent = append(f.sent, docs[0].CDC)
	if i < len(f.batch) {
		return f.batch[i]()
	}
	res := result("0300")
	res.BatchID = fmt.Sprintf("lote-%d", i+1)
	return res, nil
}

func (f *fakeTransmitter) SendDocument(_ context.Context, _ tls.Certificate, d sifenxml.SignedDE) (*sifenxml.Result, error) {
	f.mu.Lock()
	f.synced = append(f.synced, d.CDC)
	f.mu.Unlock()
	if f.direct == nil {
		return result("0260"), nil
	}
	return f.direct()
}

func (f *fakeTransmitter) QueryBatch(_ context.Context, _ tls.Certificate, batchID string) (*sifenxml.Result, error) {
	f.mu.Lock()
	f.queried = append(f.queried, batchID)
	f.mu.Unlock()
	if f.query == nil {
		return result("0361"), nil
	}
	return f.query(batchID)
}

func (f *fakeTransmitter) QueryDocument(_ context.Context, _ tls.Certificate, cdc string) (*sifenxml.Result, error) {
	f.mu.Lock()
	f.queried = append(f.queried, cdc)
	f.mu.Unlock()
	if f.consult == nil {
		return result("0422"), nil
	}
	return f.consult(cdc)
}

func (f *fakeTransmitter) QueryRUC(_ context.Context, _ tls.Certificate, ruc string) (*sifenxml.Result, error) {
	f.mu.Lock()
	f.rucs = append(f.rucs, ruc)
	f.mu.Unlock()
	if f.ruc == nil {
		return result("0502"), nil
	}
	return f.ruc(ruc)
}

func (f *fakeTransmitter) SendEvent(_ context.Context, _ tls.Certificate, eventID string, _ []byte) (*sifenxml.Result, error) {
	f.mu.Lock()
	f.events = append(f.events, eventID)
	f.mu.Unlock()
	if f.event == nil {
		return result("0600"), nil
	}
	return f.event(eventID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Armado del entorno
// ──────────────────────────────────────────────────────────────────────────────

type env struct {
	docs   *memDocs
	events *memEvents
	tx     memTx
	clock  *fakeClock
	trans  *fakeTransmitter
	pipe   *billing.Pipeline
}

func newEnv(docs ...*entity.FiscalDocument) *env {
	return newEnvWith(billing.PipelineConfig{Environment: sifen.EnvTest, CSCID: "1"}, docs...)
}

func newEnvWith(cfg billing.PipelineConfig, docs ...*entity.FiscalDocument) *env {
	e := &env{
		docs:   newMemDocs(docs...),
		events: newMemEvents(),
		clock:  &fakeClock{now: baseTime.Add(time.Hour)},
		trans:  &fakeTransmitter{},
	}
	e.tx = memTx{docs: e.docs, events: e.events}
	e.pipe = billing.NewPipeline(
		memEmitters{em: testEmitter()},
		sifenxml.NewXMLBuilderService(nil),
		passSigner{},
		e.trans,
		nil, nil, e.clock,
		cfg,
		zerolog.Nop(),
	)
	return e
}

func (e *env) dispatcher(prober billing.Prober, certs billing.CertificateSource, locker billing.Locker) *billing.Dispatcher {
	cfg := billing.DefaultDispatcherConfig()
	return billing.NewDispatcher(cfg, e.clock, prober, e.docs, e.events, e.tx, certs, e.pipe, locker, nil, zerolog.Nop())
}
