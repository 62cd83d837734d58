package client

import (
	"context"
	"time"
)

// RetryPolicy controls how many times a failed request is repeated and how
// long to wait before each retry. The wait before retry n (1-based) is
// BaseDelay × n.
type RetryPolicy struct {
	Retries   int
	BaseDelay time.Duration
	// Sleep waits for d or until ctx is done. Nil uses a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetry is one retry after 250ms.
var DefaultRetry = RetryPolicy{Retries: 1, BaseDelay: 250 * time.Millisecond}

// NoRetry issues a single attempt.
var NoRetry = RetryPolicy{}

// Delay returns the wait before retry n.
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	return p.BaseDelay * time.Duration(n)
}

func (p RetryPolicy) wait(ctx context.Context, n int) error {
	d := p.Delay(n)
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
