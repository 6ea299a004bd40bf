package events

import "github.com/gridflow/gridflow/pkg/models"

// Row event names pushed to live observers of a sheet.
const (
	RowCreated = "row_created"
	RowUpdated = "row_updated"
	RowDeleted = "row_deleted"
)

// RowEvent is the JSON message broadcast to every observer of a sheet when a
// row mutates. Row is present for created/updated; RowID alone for deleted.
type RowEvent struct {
	Event string      `json:"event"`
	Row   *models.Row `json:"row,omitempty"`
	RowID string      `json:"row_id,omitempty"`
}

// NewRowCreated builds the broadcast message for a row insert.
func NewRowCreated(row *models.Row) RowEvent {
	return RowEvent{Event: RowCreated, Row: row}
}

// NewRowUpdated builds the broadcast message for a row mutation.
func NewRowUpdated(row *models.Row) RowEvent {
	return RowEvent{Event: RowUpdated, Row: row}
}

// NewRowDeleted builds the broadcast message for a row delete. Only the ID
// survives the delete, so only the ID is carried.
func NewRowDeleted(rowID string) RowEvent {
	return RowEvent{Event: RowDeleted, RowID: rowID}
}
