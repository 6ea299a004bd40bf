package models

import "time"

// Row is a single data row of a sheet. Cell values are stored as a mapping of
// column key to scalar/JSON value.
//
// Ordering uses fractional positions: inserting between positions a and b
// assigns any value strictly between them (the midpoint), so no other row is
// ever renumbered. Rows are returned ascending by Position, ties broken by
// CreatedAt.
type Row struct {
	ID        string         `json:"id"         validate:"required"`
	SheetID   string         `json:"sheet_id"   validate:"required"`
	Data      map[string]any `json:"data"`
	Position  float64        `json:"position"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
