package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
)

// RowRepository handles row-related database operations.
type RowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *RowRepository) Create(ctx context.Context, row *models.Row) error {
	data, err := json.Marshal(row.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal row data: %w", err)
	}

	query := `
		INSERT INTO rows (id, sheet_id, data, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query, row.ID, row.SheetID, data, row.Position, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Create", "row", row.ID, err)
	}

	return nil
}

func (r *RowRepository) CreateBatch(ctx context.Context, rows []*models.Row) error {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
		INSERT INTO rows (id, sheet_id, data, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, row := range rows {
		data, err := json.Marshal(row.Data)
		if err != nil {
			_ = transaction.Rollback()

			return fmt.Errorf("failed to marshal row data: %w", err)
		}

		_, err = transaction.ExecContext(ctx, query, row.ID, row.SheetID, data, row.Position, row.CreatedAt, row.UpdatedAt)
		if err != nil {
			_ = transaction.Rollback()

			return persistence.NewStoreError("CreateBatch", "row", row.ID, err)
		}
	}

	return transaction.Commit()
}

func (r *RowRepository) GetByID(ctx context.Context, id string) (*models.Row, error) {
	query := `
		SELECT
			id
		  , sheet_id
		  , data
		  , position
		  , created_at
		  , updated_at
		FROM rows
		WHERE id = $1
	`

	row, err := scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "row", id, persistence.ErrRowNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "row", id, err)
	}

	return row, nil
}

func (r *RowRepository) ListBySheet(ctx context.Context, sheetID string) ([]*models.Row, error) {
	query := `
		SELECT
			id
		  , sheet_id
		  , data
		  , position
		  , created_at
		  , updated_at
		FROM rows
		WHERE sheet_id = $1
		ORDER BY position ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	result := make([]*models.Row, 0)

	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		result = append(result, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

func (r *RowRepository) MaxPosition(ctx context.Context, sheetID string) (float64, error) {
	var maxPos float64

	query := `SELECT COALESCE(MAX(position), 0) FROM rows WHERE sheet_id = $1`

	err := r.db.QueryRowContext(ctx, query, sheetID).Scan(&maxPos)
	if err != nil {
		return 0, fmt.Errorf("failed to query max position: %w", err)
	}

	return maxPos, nil
}

// MergeData performs the shallow merge inside a transaction with the row
// locked, so concurrent cell edits on the same row cannot lose updates.
func (r *RowRepository) MergeData(ctx context.Context, id string, partial map[string]any) (*models.Row, error) {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	selectQuery := `
		SELECT
			id
		  , sheet_id
		  , data
		  , position
		  , created_at
		  , updated_at
		FROM rows
		WHERE id = $1
		FOR UPDATE
	`

	row, err := scanRow(transaction.QueryRowContext(ctx, selectQuery, id))
	if err != nil {
		_ = transaction.Rollback()

		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("MergeData", "row", id, persistence.ErrRowNotFound)
		}

		return nil, persistence.NewStoreError("MergeData", "row", id, err)
	}

	if row.Data == nil {
		row.Data = make(map[string]any)
	}

	for key, value := range partial {
		row.Data[key] = value
	}

	row.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(row.Data)
	if err != nil {
		_ = transaction.Rollback()

		return nil, fmt.Errorf("failed to marshal row data: %w", err)
	}

	_, err = transaction.ExecContext(ctx,
		`UPDATE rows SET data = $2, updated_at = $3 WHERE id = $1`,
		id, data, row.UpdatedAt)
	if err != nil {
		_ = transaction.Rollback()

		return nil, persistence.NewStoreError("MergeData", "row", id, err)
	}

	err = transaction.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit row merge: %w", err)
	}

	return row, nil
}

func (r *RowRepository) SetPosition(ctx context.Context, id string, position float64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE rows SET position = $2, updated_at = $3 WHERE id = $1`,
		id, position, time.Now().UTC())
	if err != nil {
		return persistence.NewStoreError("SetPosition", "row", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("SetPosition", "row", id, persistence.ErrRowNotFound)
	}

	return nil
}

func (r *RowRepository) SetPositions(ctx context.Context, sheetID string, positions map[string]float64) error {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	now := time.Now().UTC()

	for id, position := range positions {
		result, err := transaction.ExecContext(ctx,
			`UPDATE rows SET position = $3, updated_at = $4 WHERE id = $1 AND sheet_id = $2`,
			id, sheetID, position, now)
		if err != nil {
			_ = transaction.Rollback()

			return persistence.NewStoreError("SetPositions", "row", id, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			_ = transaction.Rollback()

			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		if affected == 0 {
			_ = transaction.Rollback()

			return persistence.NewStoreError("SetPositions", "row", id, persistence.ErrRowNotFound)
		}
	}

	return transaction.Commit()
}

func (r *RowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rows WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStoreError("Delete", "row", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Delete", "row", id, persistence.ErrRowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(scanner rowScanner) (*models.Row, error) {
	var (
		row  models.Row
		data []byte
	)

	err := scanner.Scan(&row.ID, &row.SheetID, &data, &row.Position, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		err = json.Unmarshal(data, &row.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal row data: %w", err)
		}
	}

	if row.Data == nil {
		row.Data = make(map[string]any)
	}

	return &row, nil
}
