package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/gridflow/gridflow/pkg/automation"
	"github.com/gridflow/gridflow/pkg/config"
	"github.com/gridflow/gridflow/pkg/events"
	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence/memory"
	"github.com/gridflow/gridflow/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	err   error
	calls int
}

func (s *stubProvider) ID() string { return "email" }

func (s *stubProvider) Execute(_ context.Context, _ map[string]any, _ map[string]any, _ *slog.Logger) (*providers.Result, error) {
	s.calls++

	return &providers.Result{}, s.err
}

func newTestWorker(t *testing.T, provider providers.Provider) (*Worker, *memory.Persistence) {
	t.Helper()

	p := memory.NewPersistence()
	registry := providers.NewRegistry(config.ProviderConfigFile{})
	registry.Register(models.ActionTypeEmail, provider)

	engine := automation.NewEngine(registry, testLogger())
	worker := NewWorker("test-worker", p, engine, nil, testLogger())

	return worker, p
}

func seedRuleAndRow(t *testing.T, p *memory.Persistence) (*models.Rule, *models.Row) {
	t.Helper()

	ctx := context.Background()
	rule := sampleRule()
	require.NoError(t, p.Rules().Create(ctx, rule))

	row := &models.Row{
		ID:        "r1",
		SheetID:   "s1",
		Data:      map[string]any{"status": "Selected", "email": "ada@example.com"},
		Position:  1,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, p.Rows().Create(ctx, row))

	return rule, row
}

func triggerEvent(rule *models.Rule, rowID string) *events.AutomationTriggered {
	return &events.AutomationTriggered{
		BaseEvent: events.NewBaseEvent(events.AutomationTriggeredEvent),
		SheetID:   rule.SheetID,
		RuleID:    rule.ID,
		RowID:     rowID,
	}
}

func TestWorker_SuccessWritesOneEntry(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{}
	worker, p := newTestWorker(t, provider)
	rule, row := seedRuleAndRow(t, p)

	err := worker.handleAutomationTriggered(ctx, triggerEvent(rule, row.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)

	entries, err := p.ExecutionLog().ListByRule(ctx, rule.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.RunStatusSuccess, entries[0].Status)
	require.NotNil(t, entries[0].RowID)
	assert.Equal(t, row.ID, *entries[0].RowID)
}

func TestWorker_ProviderErrorWritesFailedEntry(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{err: errors.New("gateway unreachable")}
	worker, p := newTestWorker(t, provider)
	rule, row := seedRuleAndRow(t, p)

	err := worker.handleAutomationTriggered(ctx, triggerEvent(rule, row.ID))
	require.NoError(t, err)

	entries, err := p.ExecutionLog().ListByRule(ctx, rule.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.RunStatusFailed, entries[0].Status)
	assert.Contains(t, entries[0].Message, "gateway unreachable")
}

type blockingProvider struct{}

func (b *blockingProvider) ID() string { return "email" }

func (b *blockingProvider) Execute(ctx context.Context, _ map[string]any, _ map[string]any, _ *slog.Logger) (*providers.Result, error) {
	<-ctx.Done()

	return nil, ctx.Err()
}

func TestWorker_HardTimeoutWritesFailedEntry(t *testing.T) {
	ctx := context.Background()
	worker, p := newTestWorker(t, &blockingProvider{})
	worker = worker.WithTimeLimits(time.Millisecond, 20*time.Millisecond)
	rule, row := seedRuleAndRow(t, p)

	err := worker.handleAutomationTriggered(ctx, triggerEvent(rule, row.ID))
	require.NoError(t, err)

	entries, err := p.ExecutionLog().ListByRule(ctx, rule.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.RunStatusFailed, entries[0].Status)
	assert.Contains(t, entries[0].Message, "hard time limit")
}

func TestWorker_StaleConditionWritesSkippedEntry(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{}
	worker, p := newTestWorker(t, provider)
	rule, row := seedRuleAndRow(t, p)

	_, err := p.Rows().MergeData(ctx, row.ID, map[string]any{"status": "Rejected"})
	require.NoError(t, err)

	err = worker.handleAutomationTriggered(ctx, triggerEvent(rule, row.ID))
	require.NoError(t, err)
	assert.Zero(t, provider.calls)

	entries, err := p.ExecutionLog().ListByRule(ctx, rule.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.RunStatusSkipped, entries[0].Status)
}

func TestWorker_RowDeletedWritesSkippedEntryWithoutRowID(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{}
	worker, p := newTestWorker(t, provider)
	rule, row := seedRuleAndRow(t, p)

	require.NoError(t, p.Rows().Delete(ctx, row.ID))

	err := worker.handleAutomationTriggered(ctx, triggerEvent(rule, row.ID))
	require.NoError(t, err)
	assert.Zero(t, provider.calls)

	entries, err := p.ExecutionLog().ListByRule(ctx, rule.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.RunStatusSkipped, entries[0].Status)
	assert.Nil(t, entries[0].RowID)
}

func TestWorker_RuleDeletedAcksWithoutEntry(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{}
	worker, p := newTestWorker(t, provider)
	rule, row := seedRuleAndRow(t, p)

	require.NoError(t, p.Rules().Delete(ctx, rule.ID))

	err := worker.handleAutomationTriggered(ctx, triggerEvent(rule, row.ID))
	require.NoError(t, err)
	assert.Zero(t, provider.calls)

	entries, err := p.ExecutionLog().ListByRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWorker_UnexpectedEventTypeErrors(t *testing.T) {
	worker, _ := newTestWorker(t, &stubProvider{})

	err := worker.handleAutomationTriggered(context.Background(), "not an event")
	require.ErrorIs(t, err, errUnexpectedEventType)
}
