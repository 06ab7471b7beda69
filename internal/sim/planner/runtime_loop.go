package planner

import (
	"context"
	"errors"
	"time"
)

var errStopped = errors.New("planner stopped")

type call struct {
	fn   func() error
	resp chan error
}

// Run drives Step at the tuned tick rate and serves Call requests between
// ticks. It returns when ctx is done or Stop is called.
func (p *Planner) Run(ctx context.Context) error {
	hz := p.tune.TickRateHz
	if hz <= 0 {
		hz = 1
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stop:
			return nil
		case c := <-p.calls:
			err := c.fn()
			select {
			case c.resp <- err:
			default:
				// Caller gave up; don't block the loop.
			}
		case <-ticker.C:
			p.Step(p.tick.Load())
		}
	}
}

func (p *Planner) Stop() { p.stopOnce.Do(func() { close(p.stop) }) }

// Call runs fn on the planner goroutine and waits for its result. It is safe
// to call from other goroutines (e.g. HTTP handlers).
func (p *Planner) Call(ctx context.Context, fn func() error) error {
	if p == nil || fn == nil {
		return errors.New("planner not available")
	}
	select {
	case <-p.stop:
		return errStopped
	default:
	}
	c := call{fn: fn, resp: make(chan error, 1)}
	select {
	case p.calls <- c:
	case <-p.stop:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.resp:
		return err
	case <-p.stop:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestSnapshot asks the loop to hand the last completed tick's snapshot to
// the sink.
func (p *Planner) RequestSnapshot(ctx context.Context) (uint64, error) {
	var tick uint64
	err := p.Call(ctx, func() error {
		if cur := p.tick.Load(); cur > 0 {
			tick = cur - 1
		}
		return p.pushSnapshot(tick)
	})
	return tick, err
}
