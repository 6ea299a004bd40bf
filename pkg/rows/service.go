// Package rows implements the ordered row store. Sort order uses fractional
// positions: inserting between two rows assigns the midpoint of their
// positions, so an insert never renumbers its neighbors.
package rows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
)

// Service owns row mutations and the fractional-ordering invariant.
type Service struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewService(p persistence.Persistence, logger *slog.Logger) *Service {
	return &Service{
		persistence: p,
		logger:      logger.With("module", "rows"),
	}
}

// Insert creates a row. With a nil position the row is appended after the
// current maximum (max+1), not squeezed between existing rows.
func (s *Service) Insert(ctx context.Context, sheetID string, data map[string]any, position *float64) (*models.Row, error) {
	pos, err := s.resolvePosition(ctx, sheetID, position)
	if err != nil {
		return nil, err
	}

	if data == nil {
		data = map[string]any{}
	}

	now := time.Now().UTC()
	row := &models.Row{
		ID:        uuid.New().String(),
		SheetID:   sheetID,
		Data:      data,
		Position:  pos,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.persistence.Rows().Create(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert row: %w", err)
	}

	return row, nil
}

// NewRowInput is one row of a bulk insert. Position nil means "assign the
// next consecutive integer".
type NewRowInput struct {
	Data     map[string]any
	Position *float64
}

// BulkInsert creates many rows at once (the CSV import path). Rows without an
// explicit position get consecutive integers starting at the current max+1.
func (s *Service) BulkInsert(ctx context.Context, sheetID string, inputs []NewRowInput) ([]*models.Row, error) {
	basePos, err := s.persistence.Rows().MaxPosition(ctx, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base position: %w", err)
	}

	now := time.Now().UTC()
	rows := make([]*models.Row, 0, len(inputs))

	for i, input := range inputs {
		pos := basePos + float64(i) + 1
		if input.Position != nil {
			pos = *input.Position
		}

		data := input.Data
		if data == nil {
			data = map[string]any{}
		}

		rows = append(rows, &models.Row{
			ID:        uuid.New().String(),
			SheetID:   sheetID,
			Data:      data,
			Position:  pos,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err = s.persistence.Rows().CreateBatch(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert rows: %w", err)
	}

	return rows, nil
}

// Update merges partial cell data into the row. Only supplied keys are
// overwritten; nested values are replaced wholesale, not deep-merged. The
// merge is atomic in the backing store.
func (s *Service) Update(ctx context.Context, rowID string, partial map[string]any) (*models.Row, error) {
	return s.persistence.Rows().MergeData(ctx, rowID, partial)
}

// Reposition replaces the row's position only. No other row is touched.
func (s *Service) Reposition(ctx context.Context, rowID string, position float64) error {
	return s.persistence.Rows().SetPosition(ctx, rowID, position)
}

// Get loads a row by ID.
func (s *Service) Get(ctx context.Context, rowID string) (*models.Row, error) {
	return s.persistence.Rows().GetByID(ctx, rowID)
}

// List returns the sheet's rows ascending by position, ties broken by
// creation order.
func (s *Service) List(ctx context.Context, sheetID string) ([]*models.Row, error) {
	return s.persistence.Rows().ListBySheet(ctx, sheetID)
}

// Delete removes a row.
func (s *Service) Delete(ctx context.Context, rowID string) error {
	return s.persistence.Rows().Delete(ctx, rowID)
}

func (s *Service) resolvePosition(ctx context.Context, sheetID string, position *float64) (float64, error) {
	if position != nil {
		return *position, nil
	}

	maxPos, err := s.persistence.Rows().MaxPosition(ctx, sheetID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve append position: %w", err)
	}

	return maxPos + 1, nil
}

// PositionBetween returns the midpoint between two positions, the value a
// caller assigns to insert a row between two neighbors in O(1). Repeated
// halving between the same neighbors eventually exhausts float precision;
// Rebalance is the explicit recovery from that.
func PositionBetween(before, after float64) float64 {
	return before + (after-before)/2
}
