package memory

import (
	"context"
	"sort"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
)

type ruleRepository struct {
	p *Persistence
}

func (r *ruleRepository) Create(ctx context.Context, rule *models.Rule) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, exists := r.p.rules[rule.ID]; exists {
		return persistence.NewStoreError("Create", "rule", rule.ID, persistence.ErrAlreadyExists)
	}

	r.p.rules[rule.ID] = cloneRule(rule)

	return nil
}

func (r *ruleRepository) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	rule, ok := r.p.rules[id]
	if !ok {
		return nil, persistence.NewStoreError("GetByID", "rule", id, persistence.ErrRuleNotFound)
	}

	return cloneRule(rule), nil
}

func (r *ruleRepository) ListBySheet(ctx context.Context, sheetID string) ([]*models.Rule, error) {
	return r.list(sheetID, false)
}

func (r *ruleRepository) ListEnabledBySheet(ctx context.Context, sheetID string) ([]*models.Rule, error) {
	return r.list(sheetID, true)
}

func (r *ruleRepository) list(sheetID string, enabledOnly bool) ([]*models.Rule, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	rules := make([]*models.Rule, 0)

	for _, rule := range r.p.rules {
		if rule.SheetID != sheetID {
			continue
		}

		if enabledOnly && !rule.Enabled {
			continue
		}

		rules = append(rules, cloneRule(rule))
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].CreatedAt.After(rules[j].CreatedAt)
	})

	return rules, nil
}

func (r *ruleRepository) Update(ctx context.Context, rule *models.Rule) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.rules[rule.ID]; !ok {
		return persistence.NewStoreError("Update", "rule", rule.ID, persistence.ErrRuleNotFound)
	}

	r.p.rules[rule.ID] = cloneRule(rule)

	return nil
}

// Delete removes the rule and cascades to its log entries.
func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.rules[id]; !ok {
		return persistence.NewStoreError("Delete", "rule", id, persistence.ErrRuleNotFound)
	}

	delete(r.p.rules, id)

	kept := r.p.entries[:0]

	for _, entry := range r.p.entries {
		if entry.RuleID != id {
			kept = append(kept, entry)
		}
	}

	r.p.entries = kept

	return nil
}
