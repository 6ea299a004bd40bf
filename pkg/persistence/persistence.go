// Package persistence provides the data storage abstraction for sheets, rows,
// rules and the execution log.
package persistence

import (
	"context"

	"github.com/gridflow/gridflow/pkg/models"
)

// Persistence bundles the repositories backed by one transactional store.
type Persistence interface {
	Sheets() SheetRepository
	Rows() RowRepository
	Rules() RuleRepository
	ExecutionLog() ExecutionLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// SheetRepository stores sheets. Deleting a sheet cascades to its rows and
// rules (and, through rules, to log entries).
type SheetRepository interface {
	Create(ctx context.Context, sheet *models.Sheet) error
	GetByID(ctx context.Context, id string) (*models.Sheet, error)
	List(ctx context.Context) ([]*models.Sheet, error)
	Update(ctx context.Context, sheet *models.Sheet) error
	Delete(ctx context.Context, id string) error
}

// RowRepository stores ordered rows.
type RowRepository interface {
	Create(ctx context.Context, row *models.Row) error
	CreateBatch(ctx context.Context, rows []*models.Row) error
	GetByID(ctx context.Context, id string) (*models.Row, error)
	// ListBySheet returns rows ascending by position, ties broken by
	// creation time.
	ListBySheet(ctx context.Context, sheetID string) ([]*models.Row, error)
	// MaxPosition returns the highest position in the sheet, or 0 for an
	// empty sheet.
	MaxPosition(ctx context.Context, sheetID string) (float64, error)
	// MergeData applies a shallow merge of partial into the row's cell data
	// as a single atomic read-modify-write. Keys absent from partial are
	// preserved; present keys are replaced wholesale.
	MergeData(ctx context.Context, id string, partial map[string]any) (*models.Row, error)
	// SetPosition replaces the row's position. No other row is touched.
	SetPosition(ctx context.Context, id string, position float64) error
	// SetPositions reassigns positions for many rows of one sheet in a
	// single transaction. Used by rebalancing.
	SetPositions(ctx context.Context, sheetID string, positions map[string]float64) error
	Delete(ctx context.Context, id string) error
}

// RuleRepository stores automation rules.
type RuleRepository interface {
	Create(ctx context.Context, rule *models.Rule) error
	GetByID(ctx context.Context, id string) (*models.Rule, error)
	ListBySheet(ctx context.Context, sheetID string) ([]*models.Rule, error)
	// ListEnabledBySheet returns only rules that participate in matching.
	ListEnabledBySheet(ctx context.Context, sheetID string) ([]*models.Rule, error)
	Update(ctx context.Context, rule *models.Rule) error
	Delete(ctx context.Context, id string) error
}

// ExecutionLogRepository is the append-only record of automation firings.
type ExecutionLogRepository interface {
	Append(ctx context.Context, entry *models.LogEntry) error
	// ListByRule returns entries newest first.
	ListByRule(ctx context.Context, ruleID string) ([]*models.LogEntry, error)
	// HasSuccess reports whether a success entry exists for the rule and
	// row. Best-effort idempotency check only; there is a window between
	// check and append.
	HasSuccess(ctx context.Context, ruleID, rowID string) (bool, error)
}
