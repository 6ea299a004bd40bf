package models

import "time"

// ActionType identifies which provider an automation rule fires.
type ActionType string

const (
	ActionTypeMessage     ActionType = "message"
	ActionTypeEmail       ActionType = "email"
	ActionTypeGroupInvite ActionType = "group_invite"
)

// ActionTypes is the closed set of supported action types.
var ActionTypes = []ActionType{ActionTypeMessage, ActionTypeEmail, ActionTypeGroupInvite}

// Valid reports whether the action type is one of the supported variants.
func (t ActionType) Valid() bool {
	for _, known := range ActionTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Rule is an automation rule scoped to a sheet. It watches one column for an
// exact string value; when a row update makes the condition true, the rule's
// action is dispatched asynchronously.
//
// ActionConfig is opaque provider-specific configuration, validated against a
// per-action-type JSON schema at create/update time.
type Rule struct {
	ID            string         `json:"id"             validate:"required"`
	SheetID       string         `json:"sheet_id"       validate:"required"`
	TriggerColumn string         `json:"trigger_column" validate:"required"`
	TriggerValue  string         `json:"trigger_value"  validate:"required"`
	ActionType    ActionType     `json:"action_type"    validate:"required"`
	ActionConfig  map[string]any `json:"action_config"`
	Enabled       bool           `json:"enabled"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
