package call

import (
	"context"
	"time"
)

// RunTicker drives the live duration display: while a call is active
// it emits the elapsed time once a second. Ringing calls get no ticks;
// the overlay shows a static indicator instead. Blocks until ctx ends.
func (c *Controller) RunTicker(ctx context.Context, fn func(elapsed time.Duration)) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := c.Current()
			if cur == nil || cur.Status != StatusActive {
				continue
			}
			fn(c.Elapsed())
		}
	}
}
