// Package web provides HTTP request and response types for the sheet API.
package web

import "github.com/gridflow/gridflow/pkg/models"

// CreateSheetRequest represents the request body for creating a new sheet.
type CreateSheetRequest struct {
	Name    string             `json:"name"    validate:"required,min=1"`
	Columns []models.ColumnDef `json:"columns" validate:"omitempty,dive"`
}

// UpdateSheetRequest represents the request body for updating a sheet.
// All fields are optional to support partial updates.
type UpdateSheetRequest struct {
	Name    *string            `json:"name,omitempty"    validate:"omitempty,min=1"`
	Columns []models.ColumnDef `json:"columns,omitempty" validate:"omitempty,dive"`
}

// CreateRowRequest represents the request body for inserting a row. A nil
// position appends the row after the current last row.
type CreateRowRequest struct {
	Data     map[string]any `json:"data"`
	Position *float64       `json:"position,omitempty"`
}

// UpdateRowRequest carries the partial cell update merged into the row.
type UpdateRowRequest struct {
	Data map[string]any `json:"data" validate:"required"`
}

// RepositionRowRequest moves a row to a new fractional position. The field
// is a pointer so a reposition to 0 survives the required check.
type RepositionRowRequest struct {
	Position *float64 `json:"position" validate:"required"`
}

// CreateRuleRequest represents the request body for creating an automation rule.
type CreateRuleRequest struct {
	TriggerColumn string         `json:"trigger_column" validate:"required"`
	TriggerValue  string         `json:"trigger_value"  validate:"required"`
	ActionType    string         `json:"action_type"    validate:"required"`
	ActionConfig  map[string]any `json:"action_config"`
	Enabled       *bool          `json:"enabled,omitempty"`
}

// UpdateRuleRequest represents the request body for updating a rule.
// All fields are optional to support partial updates.
type UpdateRuleRequest struct {
	TriggerColumn *string        `json:"trigger_column,omitempty"`
	TriggerValue  *string        `json:"trigger_value,omitempty"`
	ActionType    *string        `json:"action_type,omitempty"`
	ActionConfig  map[string]any `json:"action_config,omitempty"`
	Enabled       *bool          `json:"enabled,omitempty"`
}
