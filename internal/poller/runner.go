// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run starts the ticker loop and emits PollResult on the provided channel.
// One goroutine per unit. No overlap. No retries.
// The connection is closed when ctx ends.
func (p *Poller) Run(ctx context.Context, out chan<- PollResult) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	defer p.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res := p.PollOnce(ctx)
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}
