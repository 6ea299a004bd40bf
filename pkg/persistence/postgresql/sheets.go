package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
)

// SheetRepository handles sheet-related database operations.
type SheetRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *SheetRepository) Create(ctx context.Context, sheet *models.Sheet) error {
	columns, err := json.Marshal(sheet.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal column schema: %w", err)
	}

	query := `
		INSERT INTO sheets (id, name, columns, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.db.ExecContext(ctx, query, sheet.ID, sheet.Name, columns, sheet.CreatedAt, sheet.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Create", "sheet", sheet.ID, err)
	}

	return nil
}

func (r *SheetRepository) GetByID(ctx context.Context, id string) (*models.Sheet, error) {
	query := `
		SELECT
			id
		  , name
		  , columns
		  , created_at
		  , updated_at
		FROM sheets
		WHERE id = $1
	`

	sheet, err := scanSheet(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "sheet", id, persistence.ErrSheetNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "sheet", id, err)
	}

	return sheet, nil
}

func (r *SheetRepository) List(ctx context.Context) ([]*models.Sheet, error) {
	query := `
		SELECT
			id
		  , name
		  , columns
		  , created_at
		  , updated_at
		FROM sheets
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sheets: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	sheets := make([]*models.Sheet, 0)

	for rows.Next() {
		sheet, err := scanSheet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sheet: %w", err)
		}

		sheets = append(sheets, sheet)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating sheets: %w", err)
	}

	return sheets, nil
}

func (r *SheetRepository) Update(ctx context.Context, sheet *models.Sheet) error {
	columns, err := json.Marshal(sheet.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal column schema: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE sheets SET name = $2, columns = $3, updated_at = $4 WHERE id = $1`,
		sheet.ID, sheet.Name, columns, sheet.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Update", "sheet", sheet.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Update", "sheet", sheet.ID, persistence.ErrSheetNotFound)
	}

	return nil
}

// Delete removes the sheet; rows, rules and log entries go with it via
// ON DELETE CASCADE.
func (r *SheetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sheets WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStoreError("Delete", "sheet", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Delete", "sheet", id, persistence.ErrSheetNotFound)
	}

	return nil
}

func scanSheet(scanner rowScanner) (*models.Sheet, error) {
	var (
		sheet   models.Sheet
		columns []byte
	)

	err := scanner.Scan(&sheet.ID, &sheet.Name, &columns, &sheet.CreatedAt, &sheet.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(columns) > 0 {
		err = json.Unmarshal(columns, &sheet.Columns)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal column schema: %w", err)
		}
	}

	return &sheet, nil
}
