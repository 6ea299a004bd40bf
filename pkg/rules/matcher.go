// Package rules implements automation rule storage and trigger matching.
package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
)

// Matcher decides which rules fire for a row update.
type Matcher struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewMatcher(p persistence.Persistence, logger *slog.Logger) *Matcher {
	return &Matcher{
		persistence: p,
		logger:      logger.With("module", "rule_matcher"),
	}
}

// FindMatching returns every enabled rule of the sheet whose trigger column
// is in touchedColumns and whose trigger value string-equals the post-update
// cell value. touchedColumns is the key set of the incoming partial update,
// so an unrelated edit on an already-matching row does not re-fire a rule.
// All matches are returned; there is no priority or short-circuiting.
func (m *Matcher) FindMatching(ctx context.Context, sheetID string, mergedData map[string]any, touchedColumns map[string]struct{}) ([]*models.Rule, error) {
	enabled, err := m.persistence.Rules().ListEnabledBySheet(ctx, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enabled rules: %w", err)
	}

	matched := make([]*models.Rule, 0)

	for _, rule := range enabled {
		if _, touched := touchedColumns[rule.TriggerColumn]; !touched {
			continue
		}

		value, present := mergedData[rule.TriggerColumn]
		if !present {
			continue
		}

		if fmt.Sprintf("%v", value) == rule.TriggerValue {
			matched = append(matched, rule)
		}
	}

	m.logger.DebugContext(ctx, "Completed rule matching",
		"sheet_id", sheetID,
		"rules_checked", len(enabled),
		"matches_found", len(matched))

	return matched, nil
}

// TouchedColumns converts an update payload into the touched-column set
// FindMatching expects.
func TouchedColumns(partial map[string]any) map[string]struct{} {
	touched := make(map[string]struct{}, len(partial))
	for key := range partial {
		touched[key] = struct{}{}
	}

	return touched
}
