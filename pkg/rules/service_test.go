package rules

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
	"github.com/gridflow/gridflow/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuleService(t *testing.T) *Service {
	t.Helper()

	p := memory.NewPersistence()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return NewService(p, logger)
}

func TestService_CreateValidatesConfig(t *testing.T) {
	ctx := context.Background()
	service := newTestRuleService(t)

	created, err := service.Create(ctx, "s1", NewRuleInput{
		TriggerColumn: "status",
		TriggerValue:  "Selected",
		ActionType:    models.ActionTypeMessage,
		ActionConfig:  map[string]any{"template": "Welcome_Msg"},
		Enabled:       true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	// Missing required config key.
	_, err = service.Create(ctx, "s1", NewRuleInput{
		TriggerColumn: "status",
		TriggerValue:  "Selected",
		ActionType:    models.ActionTypeMessage,
		ActionConfig:  map[string]any{},
	})
	assert.Error(t, err)

	// Unknown action type.
	_, err = service.Create(ctx, "s1", NewRuleInput{
		TriggerColumn: "status",
		TriggerValue:  "Selected",
		ActionType:    models.ActionType("whatsapp"),
	})
	assert.Error(t, err)
}

func TestService_UpdatePartial(t *testing.T) {
	ctx := context.Background()
	service := newTestRuleService(t)

	created, err := service.Create(ctx, "s1", NewRuleInput{
		TriggerColumn: "status",
		TriggerValue:  "Selected",
		ActionType:    models.ActionTypeEmail,
		ActionConfig:  map[string]any{"subject": "hi"},
		Enabled:       true,
	})
	require.NoError(t, err)

	enabled := false
	updated, err := service.Update(ctx, created.ID, UpdateRuleInput{Enabled: &enabled})
	require.NoError(t, err)
	assert.False(t, updated.Enabled)
	assert.Equal(t, "status", updated.TriggerColumn)
	assert.Equal(t, models.ActionTypeEmail, updated.ActionType)
}

func TestService_UpdateRevalidatesConfigAgainstNewType(t *testing.T) {
	ctx := context.Background()
	service := newTestRuleService(t)

	created, err := service.Create(ctx, "s1", NewRuleInput{
		TriggerColumn: "status",
		TriggerValue:  "Selected",
		ActionType:    models.ActionTypeEmail,
		ActionConfig:  map[string]any{"subject": "hi"},
		Enabled:       true,
	})
	require.NoError(t, err)

	// Switching the action type without a matching config must fail.
	messageType := models.ActionTypeMessage

	_, err = service.Update(ctx, created.ID, UpdateRuleInput{ActionType: &messageType})
	require.Error(t, err)

	// With a matching config the switch succeeds.
	updated, err := service.Update(ctx, created.ID, UpdateRuleInput{
		ActionType:   &messageType,
		ActionConfig: map[string]any{"template": "Welcome_Msg"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ActionTypeMessage, updated.ActionType)
}

func TestService_UpdateMissingRule(t *testing.T) {
	service := newTestRuleService(t)

	enabled := true

	_, err := service.Update(context.Background(), "missing", UpdateRuleInput{Enabled: &enabled})
	assert.True(t, persistence.IsNotFound(err))
}
