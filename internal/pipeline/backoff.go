package pipeline

import (
	"context"
	"time"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// backoff doubles its delay after every wait, capped at maxBackoff.
type backoff struct {
	delay time.Duration
}

func newBackoff() *backoff {
	return &backoff{delay: initialBackoff}
}

func (b *backoff) reset() {
	b.delay = initialBackoff
}

// wait sleeps for the current delay and advances it. It returns false if ctx
// ends first.
func (b *backoff) wait(ctx context.Context) bool {
	timer := time.NewTimer(b.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	b.delay = min(b.delay*2, maxBackoff)
	return true
}
