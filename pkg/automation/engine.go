// Package automation runs matched rules against rows and records the outcome.
package automation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/providers"
)

// Outcome is the terminal result of one rule execution.
type Outcome struct {
	Status models.RunStatus
	Detail string
}

// Engine executes one rule against one row. Execution is a small state
// machine: the trigger condition is re-checked against the row's current
// data first, because the row may have changed between enqueue and pickup.
// A stale condition skips the action instead of firing it.
type Engine struct {
	registry *providers.Registry
	logger   *slog.Logger
}

func NewEngine(registry *providers.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		registry: registry,
		logger:   logger.With("module", "automation_engine"),
	}
}

// Run re-checks the condition and, if it still holds, executes the rule's
// action. The returned outcome is always terminal.
func (e *Engine) Run(ctx context.Context, rule *models.Rule, row *models.Row) Outcome {
	if !e.conditionHolds(rule, row) {
		e.logger.InfoContext(ctx, "Condition no longer holds, skipping action",
			"rule_id", rule.ID, "row_id", row.ID, "trigger_column", rule.TriggerColumn)

		return Outcome{
			Status: models.RunStatusSkipped,
			Detail: fmt.Sprintf("column %q no longer equals %q", rule.TriggerColumn, rule.TriggerValue),
		}
	}

	provider, err := e.registry.Get(rule.ActionType)
	if err != nil {
		return Outcome{
			Status: models.RunStatusFailed,
			Detail: err.Error(),
		}
	}

	result, err := provider.Execute(ctx, rule.ActionConfig, row.Data, e.logger)
	if err != nil {
		e.logger.ErrorContext(ctx, "Action execution failed",
			"rule_id", rule.ID, "row_id", row.ID, "action_type", rule.ActionType, "error", err)

		return Outcome{
			Status: models.RunStatusFailed,
			Detail: err.Error(),
		}
	}

	e.logger.InfoContext(ctx, "Action executed",
		"rule_id", rule.ID, "row_id", row.ID, "action_type", rule.ActionType)

	return Outcome{
		Status: models.RunStatusSuccess,
		Detail: formatResult(rule.ActionType, result),
	}
}

func (e *Engine) conditionHolds(rule *models.Rule, row *models.Row) bool {
	value, present := row.Data[rule.TriggerColumn]
	if !present {
		return false
	}

	return fmt.Sprintf("%v", value) == rule.TriggerValue
}

func formatResult(actionType models.ActionType, result *providers.Result) string {
	if result == nil || len(result.Detail) == 0 {
		return fmt.Sprintf("%s action completed", actionType)
	}

	if link, ok := result.Detail["invite_link"].(string); ok && link != "" {
		return fmt.Sprintf("%s action completed: %s", actionType, link)
	}

	if to, ok := result.Detail["to"].(string); ok && to != "" {
		return fmt.Sprintf("%s action completed for %s", actionType, to)
	}

	return fmt.Sprintf("%s action completed", actionType)
}
