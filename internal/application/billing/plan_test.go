package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sifen-dte/internal/application/billing"
	"github.com/jhoicas/sifen-dte/internal/domain/entity"
)

func TestPlan_OrdenEnviosEventosConsultas(t *testing.T) {
	late := pendingInvoice("b", 2, 10*time.Minute)
	early := pendingInvoice("a", 1, 0)
	awaiting := pendingInvoice("c", 3, 0)
	awaiting.Status, awaiting.BatchID = entity.StatusSubmitted, "lote-1"
	ev := &entity.CancellationEvent{ID: 1, CreatedAt: baseTime}

	actions := billing.Plan(billing.Snapshot{
		Dispatchable: []*entity.FiscalDocument{late, early},
		Events:       []*entity.CancellationEvent{ev},
		Awaiting:     []*entity.FiscalDocument{awaiting},
	})

	require.Len(t, actions, 4)
	assert.Equal(t, billing.ActionSubmit, actions[0].Kind)
	assert.Equal(t, "a", actions[0].Document.ID, "el documento más antiguo se envía primero")
	assert.Equal(t, "b", actions[1].Document.ID)
	assert.Equal(t, billing.ActionCancel, actions[2].Kind)
	assert.Equal(t, billing.ActionPoll, actions[3].Kind)
}

func TestPlan_NoModificaElSnapshot(t *testing.T) {
	docs := []*entity.FiscalDocument{pendingInvoice("b", 2, time.Hour), pendingInvoice("a", 1, 0)}
	billing.Plan(billing.Snapshot{Dispatchable: docs})
	assert.Equal(t, "b", docs[0].ID, "el orden del slice original se conserva")
}

func TestPlan_Tope(t *testing.T) {
	var docs []*entity.FiscalDocument
	for i := 0; i < 5; i++ {
		docs = append(docs, pendingInvoice(string(rune('a'+i)), i+1, time.Duration(i)*time.Minute))
	}
	actions := billing.Plan(billing.Snapshot{Dispatchable: docs, Limit: 2})
	require.Len(t, actions, 2)
	assert.Equal(t, "a", actions[0].Document.ID)
	assert.Equal(t, "b", actions[1].Document.ID)
}

func TestPlan_ConsultaSinLoteSeOmite(t *testing.T) {
	d := pendingInvoice("a", 1, 0)
	d.Status = entity.StatusSubmitted
	assert.Empty(t, billing.Plan(billing.Snapshot{Awaiting: []*entity.FiscalDocument{d}}))
}

func TestPlan_Vacio(t *testing.T) {
	assert.Empty(t, billing.Plan(billing.Snapshot{}))
}

func TestActionKind_String(t *testing.T) {
	assert.Equal(t, "submit", billing.ActionSubmit.String())
	assert.Equal(t, "cancel", billing.ActionCancel.String())
	assert.Equal(t, "poll", billing.ActionPoll.String())
}
