package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
)

// Service owns rule CRUD for the API layer.
type Service struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewService(p persistence.Persistence, logger *slog.Logger) *Service {
	return &Service{
		persistence: p,
		logger:      logger.With("module", "rules"),
	}
}

// NewRuleInput carries the caller-supplied fields of a new rule.
type NewRuleInput struct {
	TriggerColumn string
	TriggerValue  string
	ActionType    models.ActionType
	ActionConfig  map[string]any
	Enabled       bool
}

// Create validates the action type and config, then stores the rule.
func (s *Service) Create(ctx context.Context, sheetID string, input NewRuleInput) (*models.Rule, error) {
	if !input.ActionType.Valid() {
		return nil, fmt.Errorf("unsupported action type %q", input.ActionType)
	}

	err := ValidateActionConfig(input.ActionType, input.ActionConfig)
	if err != nil {
		return nil, err
	}

	if input.ActionConfig == nil {
		input.ActionConfig = map[string]any{}
	}

	now := time.Now().UTC()
	rule := &models.Rule{
		ID:            uuid.New().String(),
		SheetID:       sheetID,
		TriggerColumn: input.TriggerColumn,
		TriggerValue:  input.TriggerValue,
		ActionType:    input.ActionType,
		ActionConfig:  input.ActionConfig,
		Enabled:       input.Enabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.persistence.Rules().Create(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	return rule, nil
}

// Get loads a rule by ID.
func (s *Service) Get(ctx context.Context, ruleID string) (*models.Rule, error) {
	return s.persistence.Rules().GetByID(ctx, ruleID)
}

// List returns all rules of the sheet, newest first.
func (s *Service) List(ctx context.Context, sheetID string) ([]*models.Rule, error) {
	return s.persistence.Rules().ListBySheet(ctx, sheetID)
}

// UpdateRuleInput carries the mutable fields of a rule. Nil pointers leave
// the stored value unchanged.
type UpdateRuleInput struct {
	TriggerColumn *string
	TriggerValue  *string
	ActionType    *models.ActionType
	ActionConfig  map[string]any
	Enabled       *bool
}

// Update applies a partial edit, re-validating the action config against the
// effective action type.
func (s *Service) Update(ctx context.Context, ruleID string, input UpdateRuleInput) (*models.Rule, error) {
	rule, err := s.persistence.Rules().GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	if input.TriggerColumn != nil {
		rule.TriggerColumn = *input.TriggerColumn
	}

	if input.TriggerValue != nil {
		rule.TriggerValue = *input.TriggerValue
	}

	if input.ActionType != nil {
		if !input.ActionType.Valid() {
			return nil, fmt.Errorf("unsupported action type %q", *input.ActionType)
		}

		rule.ActionType = *input.ActionType
	}

	if input.ActionConfig != nil {
		rule.ActionConfig = input.ActionConfig
	}

	if input.Enabled != nil {
		rule.Enabled = *input.Enabled
	}

	err = ValidateActionConfig(rule.ActionType, rule.ActionConfig)
	if err != nil {
		return nil, err
	}

	rule.UpdatedAt = time.Now().UTC()

	err = s.persistence.Rules().Update(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	return rule, nil
}

// Delete removes the rule and, by cascade, its log entries.
func (s *Service) Delete(ctx context.Context, ruleID string) error {
	return s.persistence.Rules().Delete(ctx, ruleID)
}

// Logs returns the rule's execution log entries, newest first.
func (s *Service) Logs(ctx context.Context, ruleID string) ([]*models.LogEntry, error) {
	return s.persistence.ExecutionLog().ListByRule(ctx, ruleID)
}
