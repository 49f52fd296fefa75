package order

import (
	"context"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// saga collects undo steps while a placement progresses and replays them in
// reverse when a later step fails.
type saga struct {
	steps []compensation
}

func (s *saga) add(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// rollback runs every compensation even when some fail; the caller's context
// may already be cancelled, so the undo steps are detached from it.
func (s *saga) rollback(ctx context.Context, logger observability.Logger) int {
	ctx = context.WithoutCancel(ctx)
	failed := 0
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			failed++
			logger.Error("compensation_failed",
				observability.F("step", step.name),
				observability.F("error", err.Error()),
			)
		}
	}
	s.steps = nil
	return failed
}
