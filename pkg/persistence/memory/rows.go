package memory

import (
	"context"
	"sort"
	"time"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
)

type rowRepository struct {
	p *Persistence
}

func (r *rowRepository) Create(ctx context.Context, row *models.Row) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.create(row)
}

func (r *rowRepository) CreateBatch(ctx context.Context, rows []*models.Row) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	for _, row := range rows {
		if err := r.create(row); err != nil {
			return err
		}
	}

	return nil
}

// create assumes the caller holds the lock.
func (r *rowRepository) create(row *models.Row) error {
	if _, exists := r.p.rows[row.ID]; exists {
		return persistence.NewStoreError("Create", "row", row.ID, persistence.ErrAlreadyExists)
	}

	r.p.nextSeq++
	r.p.rowSeq[row.ID] = r.p.nextSeq
	r.p.rows[row.ID] = cloneRow(row)

	return nil
}

func (r *rowRepository) GetByID(ctx context.Context, id string) (*models.Row, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	row, ok := r.p.rows[id]
	if !ok {
		return nil, persistence.NewStoreError("GetByID", "row", id, persistence.ErrRowNotFound)
	}

	return cloneRow(row), nil
}

func (r *rowRepository) ListBySheet(ctx context.Context, sheetID string) ([]*models.Row, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	rows := make([]*models.Row, 0)

	for _, row := range r.p.rows {
		if row.SheetID == sheetID {
			rows = append(rows, cloneRow(row))
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Position != rows[j].Position {
			return rows[i].Position < rows[j].Position
		}

		return r.p.rowSeq[rows[i].ID] < r.p.rowSeq[rows[j].ID]
	})

	return rows, nil
}

func (r *rowRepository) MaxPosition(ctx context.Context, sheetID string) (float64, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	maxPos := 0.0

	for _, row := range r.p.rows {
		if row.SheetID == sheetID && row.Position > maxPos {
			maxPos = row.Position
		}
	}

	return maxPos, nil
}

func (r *rowRepository) MergeData(ctx context.Context, id string, partial map[string]any) (*models.Row, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	row, ok := r.p.rows[id]
	if !ok {
		return nil, persistence.NewStoreError("MergeData", "row", id, persistence.ErrRowNotFound)
	}

	for key, value := range partial {
		row.Data[key] = value
	}

	row.UpdatedAt = time.Now().UTC()

	return cloneRow(row), nil
}

func (r *rowRepository) SetPosition(ctx context.Context, id string, position float64) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	row, ok := r.p.rows[id]
	if !ok {
		return persistence.NewStoreError("SetPosition", "row", id, persistence.ErrRowNotFound)
	}

	row.Position = position

	return nil
}

func (r *rowRepository) SetPositions(ctx context.Context, sheetID string, positions map[string]float64) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	for id, position := range positions {
		row, ok := r.p.rows[id]
		if !ok || row.SheetID != sheetID {
			return persistence.NewStoreError("SetPositions", "row", id, persistence.ErrRowNotFound)
		}

		row.Position = position
	}

	return nil
}

func (r *rowRepository) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.rows[id]; !ok {
		return persistence.NewStoreError("Delete", "row", id, persistence.ErrRowNotFound)
	}

	delete(r.p.rows, id)
	delete(r.p.rowSeq, id)

	// Log entries outlive their row; the row reference is nulled, matching
	// the SQL backend's ON DELETE SET NULL.
	for _, entry := range r.p.entries {
		if entry.RowID != nil && *entry.RowID == id {
			entry.RowID = nil
		}
	}

	return nil
}
