// Package models defines the core domain models for the tabular automation engine.
package models

import "time"

// ColumnDef describes one user-defined column of a sheet. Column schemas are
// stored as JSON so users can add and reorder columns without migrations.
type ColumnDef struct {
	Key     string   `json:"key"               validate:"required"`
	Label   string   `json:"label"             validate:"required"`
	Type    string   `json:"type"              validate:"required"`
	Order   int      `json:"order"`
	Options []string `json:"options,omitempty"`
}

// Sheet is a named collection of rows sharing a column schema. Deleting a
// sheet cascades to its rows, rules and execution log entries.
type Sheet struct {
	ID        string      `json:"id"         validate:"required"`
	Name      string      `json:"name"       validate:"required,min=1"`
	Columns   []ColumnDef `json:"columns"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
