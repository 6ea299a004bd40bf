// Package sheets manages sheet metadata and column schemas.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
)

// Service owns sheet CRUD.
type Service struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewService(p persistence.Persistence, logger *slog.Logger) *Service {
	return &Service{
		persistence: p,
		logger:      logger.With("module", "sheets"),
	}
}

// Create stores a new sheet with its column schema.
func (s *Service) Create(ctx context.Context, name string, columns []models.ColumnDef) (*models.Sheet, error) {
	if columns == nil {
		columns = []models.ColumnDef{}
	}

	now := time.Now().UTC()
	sheet := &models.Sheet{
		ID:        uuid.New().String(),
		Name:      name,
		Columns:   columns,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.persistence.Sheets().Create(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	return sheet, nil
}

// Get loads a sheet by ID.
func (s *Service) Get(ctx context.Context, sheetID string) (*models.Sheet, error) {
	return s.persistence.Sheets().GetByID(ctx, sheetID)
}

// List returns all sheets.
func (s *Service) List(ctx context.Context) ([]*models.Sheet, error) {
	return s.persistence.Sheets().List(ctx)
}

// UpdateSheetInput carries the mutable sheet fields. Nil leaves the stored
// value unchanged.
type UpdateSheetInput struct {
	Name    *string
	Columns []models.ColumnDef
}

// Update applies a partial edit. Replacing the column schema does not touch
// row data; cells keyed by removed columns simply stop being rendered.
func (s *Service) Update(ctx context.Context, sheetID string, input UpdateSheetInput) (*models.Sheet, error) {
	sheet, err := s.persistence.Sheets().GetByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		sheet.Name = *input.Name
	}

	if input.Columns != nil {
		sheet.Columns = input.Columns
	}

	sheet.UpdatedAt = time.Now().UTC()

	err = s.persistence.Sheets().Update(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to update sheet: %w", err)
	}

	return sheet, nil
}

// Delete removes the sheet and, by cascade, its rows, rules and log entries.
func (s *Service) Delete(ctx context.Context, sheetID string) error {
	return s.persistence.Sheets().Delete(ctx, sheetID)
}
