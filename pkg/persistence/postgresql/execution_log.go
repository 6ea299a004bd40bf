package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
)

// ExecutionLogRepository handles the append-only execution log.
type ExecutionLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *ExecutionLogRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	query := `
		INSERT INTO execution_log (id, rule_id, row_id, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.RuleID, entry.RowID, string(entry.Status), entry.Message, entry.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("Append", "log_entry", entry.ID, err)
	}

	return nil
}

func (r *ExecutionLogRepository) ListByRule(ctx context.Context, ruleID string) ([]*models.LogEntry, error) {
	query := `
		SELECT
			id
		  , rule_id
		  , row_id
		  , status
		  , message
		  , created_at
		FROM execution_log
		WHERE rule_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution log: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]*models.LogEntry, 0)

	for rows.Next() {
		var (
			entry   models.LogEntry
			rowID   sql.NullString
			message sql.NullString
			status  string
		)

		err := rows.Scan(&entry.ID, &entry.RuleID, &rowID, &status, &message, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}

		entry.Status = models.RunStatus(status)

		if rowID.Valid {
			entry.RowID = &rowID.String
		}

		if message.Valid {
			entry.Message = message.String
		}

		entries = append(entries, &entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating log entries: %w", err)
	}

	return entries, nil
}

func (r *ExecutionLogRepository) HasSuccess(ctx context.Context, ruleID, rowID string) (bool, error) {
	var exists bool

	query := `
		SELECT EXISTS (
			SELECT 1 FROM execution_log
			WHERE rule_id = $1 AND row_id = $2 AND status = 'success'
		)
	`

	err := r.db.QueryRowContext(ctx, query, ruleID, rowID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query execution log: %w", err)
	}

	return exists, nil
}
