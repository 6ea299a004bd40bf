package automation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/rules"
)

// Dispatcher hands a matched rule off for asynchronous execution.
type Dispatcher interface {
	Enqueue(ctx context.Context, rule *models.Rule, row *models.Row) error
}

// Service reacts to row updates: it matches rules against the update and
// enqueues one job per match. Matching and enqueueing are the only work done
// on the update path; execution happens in the worker.
type Service struct {
	matcher    *rules.Matcher
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewService(matcher *rules.Matcher, dispatcher Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		matcher:    matcher,
		dispatcher: dispatcher,
		logger:     logger.With("module", "automation"),
	}
}

// OnRowUpdated finds rules fired by the update and enqueues them. A failed
// enqueue for one rule does not block the others; the joined error is
// returned so callers can log it, but the row update itself has already
// succeeded by the time this runs.
func (s *Service) OnRowUpdated(ctx context.Context, row *models.Row, touchedColumns map[string]struct{}) error {
	matched, err := s.matcher.FindMatching(ctx, row.SheetID, row.Data, touchedColumns)
	if err != nil {
		return err
	}

	var errs []error

	for _, rule := range matched {
		err := s.dispatcher.Enqueue(ctx, rule, row)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to enqueue automation",
				"rule_id", rule.ID, "row_id", row.ID, "error", err)
			errs = append(errs, err)

			continue
		}

		s.logger.InfoContext(ctx, "Automation enqueued",
			"rule_id", rule.ID, "row_id", row.ID, "action_type", rule.ActionType)
	}

	return errors.Join(errs...)
}
