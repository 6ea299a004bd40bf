package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/pkg/automation"
	"github.com/gridflow/gridflow/pkg/eventbus"
	"github.com/gridflow/gridflow/pkg/events"
	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/otelhelper"
	"github.com/gridflow/gridflow/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// defaultSoftTimeLimit triggers a warning for jobs still running past it.
	defaultSoftTimeLimit = 30 * time.Second
	// defaultHardTimeLimit cancels the job's context. The job then terminates
	// with a failed entry.
	defaultHardTimeLimit = 2 * time.Minute
)

var errUnexpectedEventType = errors.New("unexpected event type")

// Worker consumes AutomationTriggered events and runs them through the
// engine. Every consumed job ends with exactly one terminal log entry,
// whichever path it takes: success, provider failure, timeout, or a rule or
// row that vanished since enqueue. Only a transient store error short of the
// entry write causes a redelivery.
type Worker struct {
	workerID      string
	persistence   persistence.Persistence
	engine        *automation.Engine
	eventBus      eventbus.EventBus
	logger        *slog.Logger
	tracer        trace.Tracer
	softTimeLimit time.Duration
	hardTimeLimit time.Duration
}

func NewWorker(workerID string, p persistence.Persistence, engine *automation.Engine, eventBus eventbus.EventBus, logger *slog.Logger) *Worker {
	return &Worker{
		workerID:      workerID,
		persistence:   p,
		engine:        engine,
		eventBus:      eventBus,
		logger:        logger.With("module", "worker", "worker_id", workerID),
		softTimeLimit: defaultSoftTimeLimit,
		hardTimeLimit: defaultHardTimeLimit,
	}
}

// WithTracer enables a span per consumed job.
func (w *Worker) WithTracer(tracer trace.Tracer) *Worker {
	w.tracer = tracer

	return w
}

// WithTimeLimits overrides the soft warning and hard cancellation limits.
func (w *Worker) WithTimeLimits(soft, hard time.Duration) *Worker {
	w.softTimeLimit = soft
	w.hardTimeLimit = hard

	return w
}

// Start registers the event handler and blocks consuming the bus until the
// context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	err := w.eventBus.Handle(events.AutomationTriggeredEvent, w.handleAutomationTriggered)
	if err != nil {
		return fmt.Errorf("failed to register handler: %w", err)
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	w.logger.InfoContext(ctx, "Worker started, consuming automation events")

	<-ctx.Done()

	return ctx.Err()
}

func (w *Worker) handleAutomationTriggered(ctx context.Context, event any) error {
	trigger, ok := event.(*events.AutomationTriggered)
	if !ok {
		return fmt.Errorf("%w: %T", errUnexpectedEventType, event)
	}

	logger := w.logger.With("rule_id", trigger.RuleID, "row_id", trigger.RowID)
	logger.InfoContext(ctx, "Processing automation job")

	if w.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, w.tracer, "automation.job",
			attribute.String(otelhelper.SheetIDKey, trigger.SheetID),
			attribute.String(otelhelper.RuleIDKey, trigger.RuleID),
			attribute.String(otelhelper.RowIDKey, trigger.RowID),
			attribute.String(otelhelper.EventIDKey, trigger.ID),
			attribute.String(otelhelper.WorkerIDKey, w.workerID))
		defer span.End()
	}

	rule, err := w.persistence.Rules().GetByID(ctx, trigger.RuleID)
	if err != nil {
		if persistence.IsNotFound(err) {
			logger.InfoContext(ctx, "Rule deleted since enqueue, skipping")

			// The rule is gone, so there is no log to append to either.
			return nil
		}

		return fmt.Errorf("failed to load rule: %w", err)
	}

	row, err := w.persistence.Rows().GetByID(ctx, trigger.RowID)
	if err != nil {
		if persistence.IsNotFound(err) {
			logger.InfoContext(ctx, "Row deleted since enqueue, skipping")

			return w.appendEntry(ctx, rule.ID, nil, models.RunStatusSkipped,
				fmt.Sprintf("row %s deleted before execution", trigger.RowID))
		}

		return fmt.Errorf("failed to load row: %w", err)
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.hardTimeLimit)
	defer cancel()

	softTimer := time.AfterFunc(w.softTimeLimit, func() {
		logger.Warn("Automation job exceeded soft time limit", "limit", w.softTimeLimit)
	})
	defer softTimer.Stop()

	outcome := w.engine.Run(jobCtx, rule, row)
	if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		outcome = automation.Outcome{
			Status: models.RunStatusFailed,
			Detail: fmt.Sprintf("job exceeded hard time limit of %s", w.hardTimeLimit),
		}
	}

	logger.InfoContext(ctx, "Automation job finished", "status", outcome.Status)

	// The entry is written even when the job context timed out.
	return w.appendEntry(context.WithoutCancel(ctx), rule.ID, &row.ID, outcome.Status, outcome.Detail)
}

func (w *Worker) appendEntry(ctx context.Context, ruleID string, rowID *string, status models.RunStatus, message string) error {
	entry := &models.LogEntry{
		ID:        uuid.New().String(),
		RuleID:    ruleID,
		RowID:     rowID,
		Status:    status,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	err := w.persistence.ExecutionLog().Append(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	return nil
}
