package executor

import (
	"context"
	"time"
)

// Clock decides how waiting for a scheduled event is done. Tests use a
// virtual clock so deliveries complete instantly.
type Clock interface {
	Now() time.Time
	WaitUntil(ctx context.Context, t time.Time) error
}

type realClock struct{}

// RealClock waits with timers.
var RealClock Clock = realClock{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) WaitUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// VirtualClock jumps straight to every deadline it is asked to wait for.
// It is safe for use by a single delivery at a time.
type VirtualClock struct {
	now   time.Time
	waits []time.Time
}

func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (c *VirtualClock) Now() time.Time {
	return c.now
}

func (c *VirtualClock) WaitUntil(ctx context.Context, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.waits = append(c.waits, t)
	if t.After(c.now) {
		c.now = t
	}
	return nil
}

// Waits returns every deadline waited for, in order.
func (c *VirtualClock) Waits() []time.Time {
	return append([]time.Time(nil), c.waits...)
}
