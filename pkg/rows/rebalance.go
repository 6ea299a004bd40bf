package rows

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Rebalance reassigns every row of the sheet to evenly spaced integers
// (1, 2, 3, ...) preserving the current order. This is an explicit
// maintenance operation, never an implicit side effect of insert: repeated
// midpoint insertion between the same neighbors shrinks the gap toward the
// float64 precision limit, and rebalancing restores full headroom.
func (s *Service) Rebalance(ctx context.Context, sheetID string) error {
	rows, err := s.persistence.Rows().ListBySheet(ctx, sheetID)
	if err != nil {
		return fmt.Errorf("failed to list rows for rebalance: %w", err)
	}

	if len(rows) == 0 {
		return nil
	}

	positions := make(map[string]float64, len(rows))
	for i, row := range rows {
		positions[row.ID] = float64(i) + 1
	}

	err = s.persistence.Rows().SetPositions(ctx, sheetID, positions)
	if err != nil {
		return fmt.Errorf("failed to apply rebalanced positions: %w", err)
	}

	s.logger.InfoContext(ctx, "Rebalanced sheet rows", "sheet_id", sheetID, "rows", len(rows))

	return nil
}

// RebalanceAll rebalances every sheet. Used by the maintenance schedule.
func (s *Service) RebalanceAll(ctx context.Context) error {
	sheets, err := s.persistence.Sheets().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sheets for rebalance: %w", err)
	}

	for _, sheet := range sheets {
		err := s.Rebalance(ctx, sheet.ID)
		if err != nil {
			return err
		}
	}

	return nil
}

// ScheduleRebalancing registers RebalanceAll on the given cron schedule and
// starts the scheduler. The returned cron must be stopped by the caller on
// shutdown.
func (s *Service) ScheduleRebalancing(ctx context.Context, spec string) (*cron.Cron, error) {
	scheduler := cron.New()

	_, err := scheduler.AddFunc(spec, func() {
		err := s.RebalanceAll(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "Scheduled rebalance failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid rebalance schedule %q: %w", spec, err)
	}

	scheduler.Start()

	return scheduler, nil
}
