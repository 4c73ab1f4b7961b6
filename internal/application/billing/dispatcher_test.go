package billing_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sifen-dte/internal/application/billing"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	"github.com/jhoicas/sifen-dte/internal/infrastructure/metrics"
	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
)

func fivePending() []*entity.FiscalDocument {
	var docs []*entity.FiscalDocument
	for i := 1; i <= 5; i++ {
		docs = append(docs, pendingInvoice(fmt.Sprintf("doc-%d", i), i, time.Duration(i)*time.Minute))
	}
	return docs
}

// ── Conectividad ──

func TestDispatcher_SinConexionNoEnvia(t *testing.T) {
	e := newEnv(fivePending()...)
	prober := &fakeProber{answers: []bool{false, true}}
	d := e.dispatcher(prober, fakeCerts{}, nil)

	rep, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Connected)
	assert.Equal(t, metrics.CycleOffline, rep.Result)
	assert.Equal(t, billing.DefaultDispatcherConfig().OfflineInterval, rep.Next, "sin conexión se reintenta con el intervalo corto")
	assert.Empty(t, e.trans.sent, "sin conexión no debe haber transmisiones")
	assert.Equal(t, 5, e.docs.countStatus(entity.StatusPending))

	rep, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Connected)
	assert.Equal(t, metrics.CycleDone, rep.Result)
	assert.Equal(t, 5, rep.Submitted)
	assert.Equal(t, 5, e.docs.countStatus(entity.StatusSubmitted), "al volver la conexión se envía todo lo pendiente")
}

func TestDispatcher_CorteDeConexionAbortaElCiclo(t *testing.T) {
	e := newEnv(fivePending()...)
	e.trans.batch = []func() (*sifenxml.Result, error){
		func() (*sifenxml.Result, error) {
			r := result("0300")
			r.BatchID = "lote-1"
			return r, nil
		},
		func() (*sifenxml.Result, error) { return nil, connErr() },
	}
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	rep, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Aborted)
	assert.Equal(t, metrics.CycleAborted, rep.Result)
	assert.Len(t, e.trans.sent, 2, "se detiene en el segundo envío")

	first := e.docs.get("doc-1")
	assert.Equal(t, entity.StatusSubmitted, first.Status)
	assert.Equal(t, 1, first.Attempts)
	assert.Equal(t, "lote-1", first.BatchID)

	second := e.docs.get("doc-2")
	assert.Equal(t, entity.StatusPending, second.Status)
	assert.Equal(t, "connectivity", second.LastErrorKind)
	assert.Equal(t, 0, second.Attempts, "la falta de conexión no consume intentos")

	for _, id := range []string{"doc-3", "doc-4", "doc-5"} {
		d := e.docs.get(id)
		assert.Equal(t, entity.StatusPending, d.Status, id)
		assert.Empty(t, d.SignedXML, "%s no debe haberse tocado", id)
		assert.Empty(t, d.LastError, id)
	}
	assert.Equal(t, 1, e.docs.countStatus(entity.StatusSubmitted))
}

// ── Errores por documento ──

func TestDispatcher_ErrorDeProtocoloEstacionaAlMaximo(t *testing.T) {
	e := newEnv(pendingInvoice("doc-1", 1, 0))
	protoErr := func() (*sifenxml.Result, error) {
		return nil, &sifenxml.ProtocolError{Op: "recibe-lote", Status: 500, Body: "<html/>", Err: errors.New("respuesta no SOAP")}
	}
	e.trans.batch = []func() (*sifenxml.Result, error){protoErr, protoErr, protoErr, protoErr}
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	for i := 0; i < 4; i++ {
		_, err := d.RunOnce(context.Background())
		require.NoError(t, err)
	}

	doc := e.docs.get("doc-1")
	assert.Equal(t, entity.StatusPending, doc.Status)
	assert.Equal(t, 3, doc.Attempts)
	assert.Equal(t, "protocol", doc.LastErrorKind)
	assert.Len(t, e.trans.sent, 3, "al llegar a 3 intentos el documento deja de enviarse")
}

func TestDispatcher_LoteRecibidoSinProtocoloNoQuedaVarado(t *testing.T) {
	e := newEnv(pendingInvoice("doc-1", 1, 0))
	sinLote := func() (*sifenxml.Result, error) { return result("0300"), nil }
	e.trans.batch = []func() (*sifenxml.Result, error){sinLote, sinLote, sinLote, sinLote}
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	rep, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	assert.Zero(t, rep.Submitted)

	doc := e.docs.get("doc-1")
	assert.Equal(t, entity.StatusPending, doc.Status, "sin dProtConsLote el documento no pasa a Submitted")
	assert.Empty(t, doc.BatchID)
	assert.Equal(t, 1, doc.Attempts)
	assert.Equal(t, "protocol", doc.LastErrorKind)
	assert.Contains(t, doc.LastError, "dProtConsLote")

	logs, _ := e.docs.ListLogs(context.Background(), "doc-1")
	require.Len(t, logs, 1)
	assert.Equal(t, "protocol", logs[0].ErrorKind)

	for i := 0; i < 3; i++ {
		_, err := d.RunOnce(context.Background())
		require.NoError(t, err)
	}
	doc = e.docs.get("doc-1")
	assert.Equal(t, entity.StatusPending, doc.Status)
	assert.Equal(t, 3, doc.Attempts)
	assert.Len(t, e.trans.sent, 3, "al llegar a 3 intentos el documento deja de enviarse")
	assert.Empty(t, e.trans.queried, "nunca se consulta un lote vacío")
}

func TestDispatcher_RechazoDeSIFEN(t *testing.T) {
	e := newEnv(pendingInvoice("doc-1", 1, 0))
	e.trans.batch = []func() (*sifenxml.Result, error){
		func() (*sifenxml.Result, error) {
			return nil, &sifenxml.AuthorityRejected{Op: "recibe-lote", Code: sifenxml.ParseResponseCode("1001"), Message: "CDC duplicado"}
		},
	}
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	rep, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Rejected)

	doc := e.docs.get("doc-1")
	assert.Equal(t, entity.StatusRejected, doc.Status)
	assert.Equal(t, "1001", doc.ResponseCode)
	assert.Equal(t, "rejected", doc.LastErrorKind)

	logs, _ := e.docs.ListLogs(context.Background(), "doc-1")
	require.Len(t, logs, 1)
	assert.Equal(t, entity.StatusPending, logs[0].FromStatus)
	assert.Equal(t, entity.StatusRejected, logs[0].ToStatus)
}

func TestDispatcher_EnvioGuardaXMLFirmadoYBitacora(t *testing.T) {
	e := newEnv(pendingInvoice("doc-1", 1, 0))
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	_, err := d.RunOnce(context.Background())
	require.NoError(t, err)

	doc := e.docs.get("doc-1")
	assert.Len(t, doc.CDC, 44)
	assert.Contains(t, doc.SignedXML, doc.CDC)
	assert.Equal(t, "100000", doc.Totals.GrandTotal.String())
	require.NotNil(t, doc.SubmittedAt)

	logs, _ := e.docs.ListLogs(context.Background(), "doc-1")
	require.Len(t, logs, 1)
	assert.Equal(t, billing.OpSubmit, logs[0].Operation)
	assert.Equal(t, "0300", logs[0].ResponseCode)
	assert.NotEmpty(t, logs[0].Fingerprint)
}

// ── Consulta de lote ──

func TestDispatcher_ConsultaAprobada(t *testing.T) {
	doc := pendingInvoice("doc-1", 6, 0)
	doc.CDC, doc.Status, doc.BatchID, doc.Attempts = officialCDC, entity.StatusSubmitted, "lote-9", 1
	e := newEnv(doc)
	e.trans.query = func(string) (*sifenxml.Result, error) {
		r := result("0362")
		r.Documents = []sifenxml.DocumentResult{{CDC: officialCDC, Status: "Aprobado", Code: sifenxml.ParseResponseCode("0260")}}
		return r, nil
	}
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	rep, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Polled)
	assert.Equal(t, 1, rep.Accepted)
	assert.Equal(t, []string{"lote-9"}, e.trans.queried)

	got := e.docs.get("doc-1")
	assert.Equal(t, entity.StatusAccepted, got.Status)
	assert.Equal(t, "0260", got.ResponseCode)
	require.NotNil(t, got.AcceptedAt)
	assert.Equal(t, 1, got.Attempts, "las consultas no cuentan intentos")
}

func TestDispatcher_LoteEnProcesoNoCambiaEstado(t *testing.T) {
	doc := pendingInvoice("doc-1", 6, 0)
	doc.CDC, doc.Status, doc.BatchID = officialCDC, entity.StatusSubmitted, "lote-9"
	e := newEnv(doc)
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	_, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmitted, e.docs.get("doc-1").Status)
	logs, _ := e.docs.ListLogs(context.Background(), "doc-1")
	assert.Empty(t, logs, "sin cambio de estado no se escribe bitácora")
}

func TestDispatcher_LoteNoEncoladoVuelveAPendiente(t *testing.T) {
	doc := pendingInvoice("doc-1", 6, 0)
	doc.CDC, doc.Status, doc.BatchID = officialCDC, entity.StatusSubmitted, "lote-9"
	e := newEnv(doc)
	e.trans.query = func(string) (*sifenxml.Result, error) {
		return nil, &sifenxml.AuthorityRejected{Op: "consulta-lote", Code: sifenxml.ParseResponseCode("0301")}
	}
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	_, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	got := e.docs.get("doc-1")
	assert.Equal(t, entity.StatusPending, got.Status)
	assert.Empty(t, got.BatchID)
}

func TestDispatcher_ConsultaConErrorDeProtocoloEstaciona(t *testing.T) {
	doc := pendingInvoice("doc-1", 6, 0)
	doc.CDC, doc.Status, doc.BatchID, doc.Attempts = officialCDC, entity.StatusSubmitted, "lote-1", 1
	e := newEnv(doc)
	e.trans.query = func(string) (*sifenxml.Result, error) {
		return nil, &sifenxml.ProtocolError{Op: "consulta-lote", Status: 200, Body: "<x/>", Err: errors.New("sin rRetEnviConsLoteDe")}
	}
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	rep, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Polled)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 2, e.docs.get("doc-1").Attempts, "cada consulta fallida cuenta un intento")

	for i := 0; i < 9; i++ {
		_, err := d.RunOnce(context.Background())
		require.NoError(t, err)
	}

	got := e.docs.get("doc-1")
	assert.Equal(t, entity.StatusSubmitted, got.Status)
	assert.Equal(t, "lote-1", got.BatchID)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, "protocol", got.LastErrorKind)
	assert.Len(t, e.trans.queried, 2, "al llegar a 3 intentos el lote deja de consultarse")

	logs, _ := e.docs.ListLogs(context.Background(), "doc-1")
	require.Len(t, logs, 2)
	assert.Equal(t, billing.OpPoll, logs[1].Operation)
}

// ── Precondiciones del ciclo ──

func TestDispatcher_SinCertificado(t *testing.T) {
	e := newEnv(pendingInvoice("doc-1", 1, 0))
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{err: errors.New("archivo .p12 inexistente")}, nil)

	rep, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, metrics.CycleNoCert, rep.Result)
	assert.Empty(t, e.trans.sent)
	assert.Equal(t, entity.StatusPending, e.docs.get("doc-1").Status)
}

func TestDispatcher_SinLock(t *testing.T) {
	e := newEnv(pendingInvoice("doc-1", 1, 0))
	prober := &fakeProber{answers: []bool{true}}
	d := e.dispatcher(prober, fakeCerts{}, fakeLocker{deny: true})

	rep, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, metrics.CycleNoLock, rep.Result)
	assert.Zero(t, prober.calls, "sin lock ni siquiera se sondea la red")
	assert.Empty(t, e.trans.sent)
}

func TestDispatcher_PausaEntreAcciones(t *testing.T) {
	e := newEnv(pendingInvoice("a", 1, 0), pendingInvoice("b", 2, time.Minute), pendingInvoice("c", 3, 2*time.Minute))
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	_, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, e.clock.sleeps, "una pausa entre cada par de acciones")
	require.Len(t, e.trans.sent, 3)
}

func TestDispatcher_NotaDeCreditoEsperaSuFactura(t *testing.T) {
	nc := pendingInvoice("nc-1", 1, 0)
	nc.Kind = entity.KindCreditNote
	nc.Reference = &entity.CreditNoteReference{CDC: officialCDC, Reason: "devolución"}
	e := newEnv(nc)
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	_, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, e.trans.sent, "sin la factura referenciada la nota no se envía")
}

func TestDispatcher_NotaDeCreditoEsperaFacturaAprobada(t *testing.T) {
	inv := pendingInvoice("doc-1", 6, 0)
	inv.CDC, inv.Status, inv.BatchID = officialCDC, entity.StatusSubmitted, "lote-9"
	nc := pendingInvoice("nc-1", 1, time.Minute)
	nc.Kind = entity.KindCreditNote
	nc.Reference = &entity.CreditNoteReference{CDC: officialCDC, Reason: "devolución"}
	e := newEnv(inv, nc)
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	_, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, e.trans.sent, "con la factura aún en proceso la nota no se envía")
	assert.Equal(t, entity.StatusPending, e.docs.get("nc-1").Status)

	e.trans.query = func(string) (*sifenxml.Result, error) {
		r := result("0362")
		r.Documents = []sifenxml.DocumentResult{{CDC: officialCDC, Status: "Aprobado", Code: sifenxml.ParseResponseCode("0260")}}
		return r, nil
	}
	_, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, entity.StatusAccepted, e.docs.get("doc-1").Status)

	_, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, e.trans.sent, 1, "aprobada la factura, la nota sale")
}

func TestDispatcher_RunTerminaConElContexto(t *testing.T) {
	e := newEnv()
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorKindOf(t *testing.T) {
	assert.Equal(t, "connectivity", string(billing.ErrorKindOf(connErr())))
	assert.Equal(t, "connectivity", string(billing.ErrorKindOf(context.DeadlineExceeded)))
	assert.Equal(t, "rejected", string(billing.ErrorKindOf(&sifenxml.AuthorityRejected{Code: sifenxml.ParseResponseCode("1001")})))
	assert.Equal(t, "protocol", string(billing.ErrorKindOf(&sifenxml.ProtocolError{Op: "x", Err: errors.New("y")})))
	assert.Empty(t, string(billing.ErrorKindOf(nil)))
}

// ── Métricas ──

type mockMetrics struct{ mock.Mock }

func (m *mockMetrics) CycleCompleted(result string) { m.Called(result) }
func (m *mockMetrics) ObserveTransmission(op, outcome string, d time.Duration) {
	m.Called(op, outcome, d)
}
func (m *mockMetrics) DocumentIssued(kind string) { m.Called(kind) }
func (m *mockMetrics) SetQueueDepth(n int)        { m.Called(n) }

func TestDispatcher_ReportaMetricasDelCiclo(t *testing.T) {
	e := newEnv(fivePending()...)
	m := &mockMetrics{}
	m.On("CycleCompleted", metrics.CycleOffline).Once()
	m.On("SetQueueDepth", 5).Once()
	m.On("CycleCompleted", metrics.CycleDone).Once()

	d := billing.NewDispatcher(billing.DefaultDispatcherConfig(), e.clock, &fakeProber{answers: []bool{false, true}},
		e.docs, e.events, e.tx, fakeCerts{}, e.pipe, nil, m, zerolog.Nop())

	_, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	m.AssertNotCalled(t, "SetQueueDepth", mock.Anything)

	_, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	m.AssertExpectations(t)
}
