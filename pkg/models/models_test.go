package models

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_Validation(t *testing.T) {
	validate := validator.New()

	rule := &Rule{
		ID:            "rule-1",
		SheetID:       "sheet-1",
		TriggerColumn: "status",
		TriggerValue:  "Selected",
		ActionType:    ActionTypeEmail,
		Enabled:       true,
	}
	require.NoError(t, validate.Struct(rule))

	rule.TriggerColumn = ""
	assert.Error(t, validate.Struct(rule))
}

func TestActionType_Valid(t *testing.T) {
	assert.True(t, ActionTypeMessage.Valid())
	assert.True(t, ActionTypeEmail.Valid())
	assert.True(t, ActionTypeGroupInvite.Valid())
	assert.False(t, ActionType("whatsapp").Valid())
	assert.False(t, ActionType("").Valid())
}

func TestRunStatus_Terminal(t *testing.T) {
	assert.True(t, RunStatusSuccess.Terminal())
	assert.True(t, RunStatusFailed.Terminal())
	assert.True(t, RunStatusSkipped.Terminal())
	assert.False(t, RunStatusPending.Terminal())
	assert.False(t, RunStatusRetrying.Terminal())
}
