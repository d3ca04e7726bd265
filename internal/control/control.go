package control

import (
	"context"
	"os"

	"github.com/nrebound/trader/internal/observ"
)

// Controller is the cooperative stop mechanism for the polling loops. A loop
// calls Stopped once per cycle; there is no mid-cycle preemption, so an
// in-flight fetch always completes before shutdown is honored.
//
// Two stop paths feed it: context cancellation (signals, parent shutdown) and
// an optional sentinel file another process drops next to the data. When the
// sentinel is observed it is removed, matching the contract that a stop
// directive is consumed by the loop it stops.
type Controller struct {
	ctx      context.Context
	stopFile string
}

func New(ctx context.Context, stopFile string) *Controller {
	c := &Controller{ctx: ctx, stopFile: stopFile}
	// A sentinel left over from a previous run must not kill this one.
	if stopFile != "" {
		if err := os.Remove(stopFile); err == nil {
			observ.Log("stale_stop_file_removed", map[string]any{"path": stopFile})
		}
	}
	return c
}

// Stopped reports whether the loop should terminate after the current cycle.
func (c *Controller) Stopped() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
	}
	if c.stopFile == "" {
		return false
	}
	if _, err := os.Stat(c.stopFile); err == nil {
		os.Remove(c.stopFile)
		observ.Log("stop_directive_observed", map[string]any{"path": c.stopFile})
		return true
	}
	return false
}

// Context exposes the underlying context for blocking calls inside a cycle.
func (c *Controller) Context() context.Context { return c.ctx }
