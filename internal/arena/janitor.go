package arena

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartJanitor sweeps expired and long-finished runtimes until ctx ends.
func (c *Coordinator) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

func (c *Coordinator) sweep() {
	now := c.now()

	c.mu.Lock()
	var stale []*sessionRuntime
	for _, rt := range c.sessions {
		if rt.expired(now) {
			stale = append(stale, rt)
		}
	}
	c.mu.Unlock()

	for _, rt := range stale {
		rt.abandon()
		c.remove(rt)
		log.Info().Str("session_id", rt.id).Str("user_id", rt.user.ID).Msg("session evicted")
	}
}
