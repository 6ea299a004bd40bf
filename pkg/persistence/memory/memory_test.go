package memory

import (
	"context"
	"testing"
	"time"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRow(id, sheetID string, position float64, data map[string]any) *models.Row {
	return &models.Row{
		ID:        id,
		SheetID:   sheetID,
		Data:      data,
		Position:  position,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestRowRepository_ListBySheet_OrdersByPosition(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	require.NoError(t, p.Rows().Create(ctx, newTestRow("r1", "s1", 2.0, nil)))
	require.NoError(t, p.Rows().Create(ctx, newTestRow("r2", "s1", 1.0, nil)))
	require.NoError(t, p.Rows().Create(ctx, newTestRow("r3", "s2", 0.5, nil)))

	rows, err := p.Rows().ListBySheet(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "r2", rows[0].ID)
	assert.Equal(t, "r1", rows[1].ID)
}

func TestRowRepository_ListBySheet_TiesBrokenByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	require.NoError(t, p.Rows().Create(ctx, newTestRow("first", "s1", 1.0, nil)))
	require.NoError(t, p.Rows().Create(ctx, newTestRow("second", "s1", 1.0, nil)))

	rows, err := p.Rows().ListBySheet(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "first", rows[0].ID)
	assert.Equal(t, "second", rows[1].ID)
}

func TestRowRepository_MergeData_PreservesAbsentKeys(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	require.NoError(t, p.Rows().Create(ctx, newTestRow("r1", "s1", 1.0, map[string]any{
		"name":   "Ada",
		"status": "Pending",
	})))

	row, err := p.Rows().MergeData(ctx, "r1", map[string]any{"status": "Selected"})
	require.NoError(t, err)
	assert.Equal(t, "Selected", row.Data["status"])
	assert.Equal(t, "Ada", row.Data["name"])
}

func TestRowRepository_MergeData_BumpsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	row := newTestRow("r1", "s1", 1.0, map[string]any{"status": "Pending"})
	row.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, p.Rows().Create(ctx, row))

	merged, err := p.Rows().MergeData(ctx, "r1", map[string]any{"status": "Selected"})
	require.NoError(t, err)
	assert.True(t, merged.UpdatedAt.After(row.UpdatedAt))
}

func TestRowRepository_MergeData_NotFound(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	_, err := p.Rows().MergeData(ctx, "missing", map[string]any{"a": 1})
	assert.ErrorIs(t, err, persistence.ErrRowNotFound)
}

func TestRowRepository_MaxPosition_EmptySheet(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	maxPos, err := p.Rows().MaxPosition(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, 0.0, maxPos)
}

func TestRowRepository_Delete_NullsLogEntryRowID(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	require.NoError(t, p.Rows().Create(ctx, newTestRow("r1", "s1", 1.0, nil)))

	rowID := "r1"
	require.NoError(t, p.ExecutionLog().Append(ctx, &models.LogEntry{
		ID:     "log1",
		RuleID: "rule1",
		RowID:  &rowID,
		Status: models.RunStatusSuccess,
	}))

	require.NoError(t, p.Rows().Delete(ctx, "r1"))

	entries, err := p.ExecutionLog().ListByRule(ctx, "rule1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].RowID)

	ok, err := p.ExecutionLog().HasSuccess(ctx, "rule1", "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSheetRepository_Delete_Cascades(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	require.NoError(t, p.Sheets().Create(ctx, &models.Sheet{ID: "s1", Name: "Roster"}))
	require.NoError(t, p.Rows().Create(ctx, newTestRow("r1", "s1", 1.0, nil)))
	require.NoError(t, p.Rules().Create(ctx, &models.Rule{
		ID:            "rule1",
		SheetID:       "s1",
		TriggerColumn: "status",
		TriggerValue:  "Selected",
		ActionType:    models.ActionTypeEmail,
		Enabled:       true,
	}))

	rowID := "r1"
	require.NoError(t, p.ExecutionLog().Append(ctx, &models.LogEntry{
		ID:     "log1",
		RuleID: "rule1",
		RowID:  &rowID,
		Status: models.RunStatusSuccess,
	}))

	require.NoError(t, p.Sheets().Delete(ctx, "s1"))

	_, err := p.Rows().GetByID(ctx, "r1")
	assert.ErrorIs(t, err, persistence.ErrRowNotFound)

	_, err = p.Rules().GetByID(ctx, "rule1")
	assert.ErrorIs(t, err, persistence.ErrRuleNotFound)

	entries, err := p.ExecutionLog().ListByRule(ctx, "rule1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLogRepository_ListByRule_NewestFirst(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, p.ExecutionLog().Append(ctx, &models.LogEntry{
			ID:     id,
			RuleID: "rule1",
			Status: models.RunStatusSuccess,
		}))
	}

	entries, err := p.ExecutionLog().ListByRule(ctx, "rule1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "a", entries[2].ID)
}

func TestLogRepository_HasSuccess(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	rowID := "r1"
	require.NoError(t, p.ExecutionLog().Append(ctx, &models.LogEntry{
		ID:     "log1",
		RuleID: "rule1",
		RowID:  &rowID,
		Status: models.RunStatusFailed,
	}))

	ok, err := p.ExecutionLog().HasSuccess(ctx, "rule1", "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.ExecutionLog().Append(ctx, &models.LogEntry{
		ID:     "log2",
		RuleID: "rule1",
		RowID:  &rowID,
		Status: models.RunStatusSuccess,
	}))

	ok, err = p.ExecutionLog().HasSuccess(ctx, "rule1", "r1")
	require.NoError(t, err)
	assert.True(t, ok)
}
