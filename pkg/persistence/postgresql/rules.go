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

// RuleRepository handles rule-related database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const ruleColumns = `
	id
  , sheet_id
  , trigger_column
  , trigger_value
  , action_type
  , action_config
  , enabled
  , created_at
  , updated_at
`

func (r *RuleRepository) Create(ctx context.Context, rule *models.Rule) error {
	config, err := json.Marshal(rule.ActionConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal action config: %w", err)
	}

	query := `
		INSERT INTO rules (id, sheet_id, trigger_column, trigger_value, action_type, action_config, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.SheetID, rule.TriggerColumn, rule.TriggerValue,
		string(rule.ActionType), config, rule.Enabled, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Create", "rule", rule.ID, err)
	}

	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = $1`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "rule", id, persistence.ErrRuleNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "rule", id, err)
	}

	return rule, nil
}

func (r *RuleRepository) ListBySheet(ctx context.Context, sheetID string) ([]*models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE sheet_id = $1 ORDER BY created_at DESC`

	return r.queryRules(ctx, query, sheetID)
}

func (r *RuleRepository) ListEnabledBySheet(ctx context.Context, sheetID string) ([]*models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE sheet_id = $1 AND enabled ORDER BY created_at DESC`

	return r.queryRules(ctx, query, sheetID)
}

func (r *RuleRepository) queryRules(ctx context.Context, query string, args ...any) ([]*models.Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	rules := make([]*models.Rule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rules = append(rules, rule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) Update(ctx context.Context, rule *models.Rule) error {
	config, err := json.Marshal(rule.ActionConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal action config: %w", err)
	}

	query := `
		UPDATE rules
		SET trigger_column = $2
		  , trigger_value = $3
		  , action_type = $4
		  , action_config = $5
		  , enabled = $6
		  , updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.TriggerColumn, rule.TriggerValue,
		string(rule.ActionType), config, rule.Enabled, rule.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Update", "rule", rule.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Update", "rule", rule.ID, persistence.ErrRuleNotFound)
	}

	return nil
}

// Delete removes the rule; its log entries go with it via ON DELETE CASCADE.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStoreError("Delete", "rule", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Delete", "rule", id, persistence.ErrRuleNotFound)
	}

	return nil
}

func scanRule(scanner rowScanner) (*models.Rule, error) {
	var (
		rule       models.Rule
		actionType string
		config     []byte
	)

	err := scanner.Scan(&rule.ID, &rule.SheetID, &rule.TriggerColumn, &rule.TriggerValue,
		&actionType, &config, &rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rule.ActionType = models.ActionType(actionType)

	if len(config) > 0 {
		err = json.Unmarshal(config, &rule.ActionConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal action config: %w", err)
		}
	}

	return &rule, nil
}
