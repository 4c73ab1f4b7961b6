package billing_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sifen-dte/internal/application/billing"
	"github.com/jhoicas/sifen-dte/internal/domain"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
	"github.com/jhoicas/sifen-dte/pkg/sifen"
)

func submittedInvoice() *entity.FiscalDocument {
	doc := pendingInvoice("doc-1", 6, 0)
	doc.CDC, doc.Status, doc.BatchID, doc.Attempts = officialCDC, entity.StatusSubmitted, "lote-1", 1
	return doc
}

func newQueryEnv(docs ...*entity.FiscalDocument) (*env, *billing.QueryUseCase) {
	e := newEnv(docs...)
	return e, billing.NewQueryUseCase(e.docs, e.tx, e.pipe, fakeCerts{}, e.clock, zerolog.Nop())
}

// ── Consulta de DE ──

func TestConsult_SubmittedAprobadoPasaAAccepted(t *testing.T) {
	e, uc := newQueryEnv(submittedInvoice())

	out, err := uc.Consult(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.True(t, out.Updated)
	assert.Equal(t, "0422", out.ResponseCode)
	assert.Equal(t, string(entity.StatusAccepted), out.Status)
	assert.Equal(t, []string{officialCDC}, e.trans.queried, "se consulta por CDC")

	doc := e.docs.get("doc-1")
	assert.Equal(t, entity.StatusAccepted, doc.Status)
	require.NotNil(t, doc.AcceptedAt)

	logs, err := e.docs.ListLogs(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, billing.OpConsult, logs[0].Operation)
	assert.Equal(t, entity.StatusSubmitted, logs[0].FromStatus)
	assert.Equal(t, entity.StatusAccepted, logs[0].ToStatus)
}

func TestConsult_PendingSoloInforma(t *testing.T) {
	doc := pendingInvoice("doc-1", 6, 0)
	doc.CDC = officialCDC
	e, uc := newQueryEnv(doc)

	out, err := uc.Consult(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.False(t, out.Updated)
	assert.Equal(t, string(entity.StatusPending), out.Status)
	assert.Equal(t, entity.StatusPending, e.docs.get("doc-1").Status, "solo un Submitted se reconcilia")
}

func TestConsult_RechazoDeSIFENSeInforma(t *testing.T) {
	e, uc := newQueryEnv(submittedInvoice())
	e.trans.consult = func(string) (*sifenxml.Result, error) {
		return nil, &sifenxml.AuthorityRejected{Op: "consulta-de", Code: sifenxml.ParseResponseCode("0420"), Message: "CDC inexistente"}
	}

	out, err := uc.Consult(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.False(t, out.Updated)
	assert.Equal(t, "0420", out.ResponseCode)
	assert.Equal(t, "CDC inexistente", out.Message)
	assert.Equal(t, entity.StatusSubmitted, e.docs.get("doc-1").Status)
}

func TestConsult_SinConexion(t *testing.T) {
	e, uc := newQueryEnv(submittedInvoice())
	e.trans.consult = func(string) (*sifenxml.Result, error) { return nil, connErr() }

	_, err := uc.Consult(context.Background(), "doc-1")
	var connectivity *sifenxml.ConnectivityError
	assert.ErrorAs(t, err, &connectivity)
	assert.Equal(t, entity.StatusSubmitted, e.docs.get("doc-1").Status)
}

func TestConsult_SinCDCEsConflicto(t *testing.T) {
	_, uc := newQueryEnv(pendingInvoice("doc-1", 6, 0))
	_, err := uc.Consult(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestConsult_NoEncontrado(t *testing.T) {
	_, uc := newQueryEnv()
	_, err := uc.Consult(context.Background(), "nada")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConsult_SinCertificado(t *testing.T) {
	e := newEnv(submittedInvoice())
	uc := billing.NewQueryUseCase(e.docs, e.tx, e.pipe, fakeCerts{err: domain.ErrSigningKeyUnavailable}, e.clock, zerolog.Nop())
	_, err := uc.Consult(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrSigningKeyUnavailable)
	assert.Empty(t, e.trans.queried)
}

// ── Consulta de RUC ──

func TestCheckRUC_ConDV(t *testing.T) {
	e, uc := newQueryEnv()
	e.trans.ruc = func(string) (*sifenxml.Result, error) {
		r := result("0502")
		r.RUC = &sifenxml.RUCInfo{RUC: "80069563", Name: "EMPRESA DE PRUEBA S.A.", Status: "ACTIVO", ElectronicIssuer: true}
		return r, nil
	}

	out, err := uc.CheckRUC(context.Background(), "80069563-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"80069563"}, e.trans.rucs, "se consulta sin DV")
	assert.True(t, out.Found)
	assert.Equal(t, "EMPRESA DE PRUEBA S.A.", out.Name)
	assert.True(t, out.ElectronicIssuer)
	assert.Equal(t, "0502", out.ResponseCode)
}

func TestCheckRUC_SinDVNoSeValida(t *testing.T) {
	e, uc := newQueryEnv()
	_, err := uc.CheckRUC(context.Background(), "80069563")
	require.NoError(t, err)
	assert.Equal(t, []string{"80069563"}, e.trans.rucs)
}

func TestCheckRUC_DVInvalido(t *testing.T) {
	e, uc := newQueryEnv()
	_, err := uc.CheckRUC(context.Background(), "80069563-2")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, e.trans.rucs, "no se consulta con un DV inválido")
}

func TestCheckRUC_Inexistente(t *testing.T) {
	e, uc := newQueryEnv()
	e.trans.ruc = func(string) (*sifenxml.Result, error) {
		return nil, &sifenxml.AuthorityRejected{Op: "consulta-ruc", Code: sifenxml.ParseResponseCode("0500"), Message: "RUC inexistente"}
	}
	out, err := uc.CheckRUC(context.Background(), "80069563")
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, "0500", out.ResponseCode)
}

// ── Modo sincrónico ──

func TestDispatcher_ModoSincronicoUsaRecibeDE(t *testing.T) {
	e := newEnvWith(billing.PipelineConfig{Environment: sifen.EnvTest, CSCID: "1", Sync: true}, pendingInvoice("doc-1", 6, 0))
	d := e.dispatcher(&fakeProber{answers: []bool{true}}, fakeCerts{}, nil)

	_, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, e.trans.sent, "no se arma lote")
	require.Len(t, e.trans.synced, 1)

	doc := e.docs.get("doc-1")
	assert.Equal(t, e.trans.synced[0], doc.CDC)
	assert.Equal(t, entity.StatusAccepted, doc.Status, "0260 aprueba en la misma llamada")
	assert.Equal(t, 1, doc.Attempts)
}
