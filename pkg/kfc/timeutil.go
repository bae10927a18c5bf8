package kfc

import (
	"context"
	"time"
)

// sleepCtx blocks for seconds, returning early if ctx is canceled.
func sleepCtx(ctx context.Context, seconds float64) {
	if seconds <= 0 {
		return
	}
	t := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
