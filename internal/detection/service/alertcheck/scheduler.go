package alertcheck

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/logward/logward/internal/detection/model"
)

// Notifier is the downstream the scheduler hands trigger jobs to.
type Notifier interface {
	Dispatch(ctx context.Context, jobs []model.NotificationJob)
}

type Deps struct {
	Evaluator *Evaluator
	Notifier  Notifier
	Interval  time.Duration
}

// StartScheduler runs the alert rule scan on a fixed tick until the context
// is cancelled. Scan failures are logged and the loop keeps going.
func StartScheduler(ctx context.Context, deps Deps) {
	if deps.Interval <= 0 {
		deps.Interval = time.Minute
	}
	t := time.NewTicker(deps.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := runOnce(ctx, deps); err != nil {
				log.Error().Err(err).Msg("alert rule scan failed")
			}
		}
	}
}

func runOnce(ctx context.Context, deps Deps) error {
	triggers, err := deps.Evaluator.CheckAlertRules(ctx)
	if len(triggers) > 0 && deps.Notifier != nil {
		deps.Notifier.Dispatch(ctx, Jobs(triggers))
	}
	return err
}
