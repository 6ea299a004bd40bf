package memory

import (
	"context"

	"github.com/gridflow/gridflow/pkg/models"
)

type logRepository struct {
	p *Persistence
}

func (r *logRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *entry
	r.p.entries = append(r.p.entries, &clone)

	return nil
}

func (r *logRepository) ListByRule(ctx context.Context, ruleID string) ([]*models.LogEntry, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	entries := make([]*models.LogEntry, 0)

	// Newest first: entries are appended in order, so walk backwards.
	for i := len(r.p.entries) - 1; i >= 0; i-- {
		if r.p.entries[i].RuleID == ruleID {
			clone := *r.p.entries[i]
			entries = append(entries, &clone)
		}
	}

	return entries, nil
}

func (r *logRepository) HasSuccess(ctx context.Context, ruleID, rowID string) (bool, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	for _, entry := range r.p.entries {
		if entry.RuleID == ruleID && entry.RowID != nil && *entry.RowID == rowID &&
			entry.Status == models.RunStatusSuccess {
			return true, nil
		}
	}

	return false, nil
}
