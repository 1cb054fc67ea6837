package service

import (
	"context"
	"errors"
	"time"
)

// Run drives RunCycle with a fixed delay between the end of one cycle and the start
// of the next, until ctx is canceled. The first cycle runs immediately.
func (g *GatewayService) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := g.RunCycle(ctx); err != nil && !errors.Is(err, ErrConfiguration) {
				g.log.Debugw("poll_cycle_error", "err", err)
			}
			timer.Reset(g.cfg.PollInterval)
		}
	}
}
