package rules

import (
	"testing"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestValidateActionConfig(t *testing.T) {
	testCases := []struct {
		name       string
		actionType models.ActionType
		config     map[string]any
		wantErr    bool
	}{
		{
			name:       "valid message config",
			actionType: models.ActionTypeMessage,
			config:     map[string]any{"template": "Welcome_Msg", "phone_column": "phone"},
		},
		{
			name:       "message config missing template",
			actionType: models.ActionTypeMessage,
			config:     map[string]any{"phone_column": "phone"},
			wantErr:    true,
		},
		{
			name:       "valid email config",
			actionType: models.ActionTypeEmail,
			config:     map[string]any{"subject": "You're in!"},
		},
		{
			name:       "email subject wrong type",
			actionType: models.ActionTypeEmail,
			config:     map[string]any{"subject": 42},
			wantErr:    true,
		},
		{
			name:       "valid group invite config",
			actionType: models.ActionTypeGroupInvite,
			config:     map[string]any{"group_name": "Dance Team 2026"},
		},
		{
			name:       "unknown action type",
			actionType: models.ActionType("whatsapp"),
			config:     map[string]any{},
			wantErr:    true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateActionConfig(tc.actionType, tc.config)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
