package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/gridflow/gridflow/pkg/eventbus"
	"github.com/gridflow/gridflow/pkg/events"
	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	published []eventbus.Event
	err       error
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	if p.err != nil {
		return p.err
	}

	p.published = append(p.published, event)

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func sampleRule() *models.Rule {
	return &models.Rule{
		ID:            "rule1",
		SheetID:       "s1",
		TriggerColumn: "status",
		TriggerValue:  "Selected",
		ActionType:    models.ActionTypeEmail,
		ActionConfig:  map[string]any{"subject": "hi"},
		Enabled:       true,
	}
}

func TestDispatcher_Enqueue_PublishesEvent(t *testing.T) {
	publisher := &capturingPublisher{}
	d := NewDispatcher(publisher, testLogger())

	row := &models.Row{ID: "r1", SheetID: "s1"}

	err := d.Enqueue(context.Background(), sampleRule(), row)
	require.NoError(t, err)
	require.Len(t, publisher.published, 1)

	trigger, ok := publisher.published[0].(events.AutomationTriggered)
	require.True(t, ok)
	assert.Equal(t, "rule1", trigger.RuleID)
	assert.Equal(t, "r1", trigger.RowID)
	assert.Equal(t, "s1", trigger.SheetID)
	assert.NotEmpty(t, trigger.ID)
}

func TestDispatcher_Enqueue_PublishErrorReturned(t *testing.T) {
	publisher := &capturingPublisher{err: errors.New("broker down")}
	d := NewDispatcher(publisher, testLogger())

	err := d.Enqueue(context.Background(), sampleRule(), &models.Row{ID: "r1", SheetID: "s1"})
	require.Error(t, err)
}

func TestDispatcher_Enqueue_SuccessCheckSkips(t *testing.T) {
	ctx := context.Background()
	p := memory.NewPersistence()

	rowID := "r1"
	require.NoError(t, p.ExecutionLog().Append(ctx, &models.LogEntry{
		ID:        "log1",
		RuleID:    "rule1",
		RowID:     &rowID,
		Status:    models.RunStatusSuccess,
		CreatedAt: time.Now().UTC(),
	}))

	publisher := &capturingPublisher{}
	d := NewDispatcher(publisher, testLogger()).WithSuccessCheck(p.ExecutionLog())

	err := d.Enqueue(ctx, sampleRule(), &models.Row{ID: rowID, SheetID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, publisher.published)

	// A different row still enqueues.
	err = d.Enqueue(ctx, sampleRule(), &models.Row{ID: "r2", SheetID: "s1"})
	require.NoError(t, err)
	assert.Len(t, publisher.published, 1)
}
