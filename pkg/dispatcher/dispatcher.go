// Package dispatcher moves matched automations onto the event bus and runs
// them in worker processes.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gridflow/gridflow/pkg/eventbus"
	"github.com/gridflow/gridflow/pkg/events"
	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
)

// Dispatcher publishes one AutomationTriggered event per matched rule.
// Delivery is at-most-once from the caller's perspective: a publish failure
// is reported but never retried on the update path.
type Dispatcher struct {
	eventBus eventbus.EventPublisher
	logger   *slog.Logger

	// executionLog, when set, enables a best-effort pre-enqueue check that
	// skips rules which already succeeded for the row. There is a window
	// between check and execution, so the worker cannot rely on it.
	executionLog persistence.ExecutionLogRepository
}

func NewDispatcher(eventBus eventbus.EventPublisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		eventBus: eventBus,
		logger:   logger.With("module", "dispatcher"),
	}
}

// WithSuccessCheck enables the pre-enqueue idempotency check.
func (d *Dispatcher) WithSuccessCheck(executionLog persistence.ExecutionLogRepository) *Dispatcher {
	d.executionLog = executionLog

	return d
}

// Enqueue publishes the rule/row pair for asynchronous execution.
func (d *Dispatcher) Enqueue(ctx context.Context, rule *models.Rule, row *models.Row) error {
	if d.executionLog != nil {
		succeeded, err := d.executionLog.HasSuccess(ctx, rule.ID, row.ID)
		if err != nil {
			d.logger.WarnContext(ctx, "Success check failed, enqueueing anyway",
				"rule_id", rule.ID, "row_id", row.ID, "error", err)
		} else if succeeded {
			d.logger.InfoContext(ctx, "Rule already succeeded for row, not enqueueing",
				"rule_id", rule.ID, "row_id", row.ID)

			return nil
		}
	}

	event := events.AutomationTriggered{
		BaseEvent: events.NewBaseEvent(events.AutomationTriggeredEvent),
		SheetID:   rule.SheetID,
		RuleID:    rule.ID,
		RowID:     row.ID,
	}

	err := d.eventBus.Publish(ctx, rule.SheetID, event)
	if err != nil {
		return fmt.Errorf("failed to publish automation event: %w", err)
	}

	return nil
}
