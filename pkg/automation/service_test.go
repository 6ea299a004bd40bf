package automation

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence/memory"
	"github.com/gridflow/gridflow/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	enqueued []string
	err      error
}

func (d *recordingDispatcher) Enqueue(_ context.Context, rule *models.Rule, _ *models.Row) error {
	if d.err != nil {
		return d.err
	}

	d.enqueued = append(d.enqueued, rule.ID)

	return nil
}

func newTestService(t *testing.T) (*Service, *memory.Persistence, *recordingDispatcher) {
	t.Helper()

	p := memory.NewPersistence()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	dispatcher := &recordingDispatcher{}
	service := NewService(rules.NewMatcher(p, logger), dispatcher, logger)

	return service, p, dispatcher
}

func createRule(t *testing.T, p *memory.Persistence, id, column, value string) {
	t.Helper()

	require.NoError(t, p.Rules().Create(context.Background(), &models.Rule{
		ID:            id,
		SheetID:       "s1",
		TriggerColumn: column,
		TriggerValue:  value,
		ActionType:    models.ActionTypeEmail,
		ActionConfig:  map[string]any{"subject": "hi"},
		Enabled:       true,
		CreatedAt:     time.Now().UTC(),
	}))
}

func TestService_OnRowUpdated_EnqueuesEachMatch(t *testing.T) {
	service, p, dispatcher := newTestService(t)

	createRule(t, p, "rule1", "status", "Selected")
	createRule(t, p, "rule2", "status", "Selected")
	createRule(t, p, "rule3", "score", "100")

	row := &models.Row{
		ID:      "r1",
		SheetID: "s1",
		Data:    map[string]any{"status": "Selected", "score": "50"},
	}
	touched := rules.TouchedColumns(map[string]any{"status": "Selected"})

	err := service.OnRowUpdated(context.Background(), row, touched)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rule1", "rule2"}, dispatcher.enqueued)
}

func TestService_OnRowUpdated_NoMatchesNoEnqueue(t *testing.T) {
	service, p, dispatcher := newTestService(t)

	createRule(t, p, "rule1", "status", "Selected")

	row := &models.Row{ID: "r1", SheetID: "s1", Data: map[string]any{"note": "x"}}

	err := service.OnRowUpdated(context.Background(), row, rules.TouchedColumns(map[string]any{"note": "x"}))
	require.NoError(t, err)
	assert.Empty(t, dispatcher.enqueued)
}

func TestService_OnRowUpdated_EnqueueErrorReturned(t *testing.T) {
	service, p, dispatcher := newTestService(t)
	dispatcher.err = errors.New("broker unavailable")

	createRule(t, p, "rule1", "status", "Selected")

	row := &models.Row{ID: "r1", SheetID: "s1", Data: map[string]any{"status": "Selected"}}

	err := service.OnRowUpdated(context.Background(), row, rules.TouchedColumns(map[string]any{"status": "Selected"}))
	require.Error(t, err)
}
