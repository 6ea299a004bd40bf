package memory

import (
	"context"
	"sort"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
)

type sheetRepository struct {
	p *Persistence
}

func (r *sheetRepository) Create(ctx context.Context, sheet *models.Sheet) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, exists := r.p.sheets[sheet.ID]; exists {
		return persistence.NewStoreError("Create", "sheet", sheet.ID, persistence.ErrAlreadyExists)
	}

	clone := *sheet
	r.p.sheets[sheet.ID] = &clone

	return nil
}

func (r *sheetRepository) GetByID(ctx context.Context, id string) (*models.Sheet, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	sheet, ok := r.p.sheets[id]
	if !ok {
		return nil, persistence.NewStoreError("GetByID", "sheet", id, persistence.ErrSheetNotFound)
	}

	clone := *sheet

	return &clone, nil
}

func (r *sheetRepository) List(ctx context.Context) ([]*models.Sheet, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	sheets := make([]*models.Sheet, 0, len(r.p.sheets))
	for _, sheet := range r.p.sheets {
		clone := *sheet
		sheets = append(sheets, &clone)
	}

	sort.Slice(sheets, func(i, j int) bool {
		return sheets[i].CreatedAt.After(sheets[j].CreatedAt)
	})

	return sheets, nil
}

func (r *sheetRepository) Update(ctx context.Context, sheet *models.Sheet) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.sheets[sheet.ID]; !ok {
		return persistence.NewStoreError("Update", "sheet", sheet.ID, persistence.ErrSheetNotFound)
	}

	clone := *sheet
	r.p.sheets[sheet.ID] = &clone

	return nil
}

// Delete removes the sheet and cascades to its rows, rules and, through the
// rules, their log entries.
func (r *sheetRepository) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.sheets[id]; !ok {
		return persistence.NewStoreError("Delete", "sheet", id, persistence.ErrSheetNotFound)
	}

	delete(r.p.sheets, id)

	for rowID, row := range r.p.rows {
		if row.SheetID == id {
			delete(r.p.rows, rowID)
			delete(r.p.rowSeq, rowID)
		}
	}

	deletedRules := make(map[string]struct{})

	for ruleID, rule := range r.p.rules {
		if rule.SheetID == id {
			delete(r.p.rules, ruleID)
			deletedRules[ruleID] = struct{}{}
		}
	}

	kept := r.p.entries[:0]

	for _, entry := range r.p.entries {
		if _, gone := deletedRules[entry.RuleID]; !gone {
			kept = append(kept, entry)
		}
	}

	r.p.entries = kept

	return nil
}
