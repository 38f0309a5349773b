// Decides on which frames the model is invoked
package trigger

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects when inference runs.
type Mode int

const (
	// Continuous invokes the model every frame; the loop blocks for each pass.
	Continuous Mode = iota
	// OnDemand invokes the model once per explicit request.
	OnDemand
)

func (m Mode) String() string {
	switch m {
	case Continuous:
		return "continuous"
	case OnDemand:
		return "on_demand"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "continuous" or "on_demand" (also "on-demand", "ondemand").
func ParseMode(s string) (Mode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "continuous":
		return Continuous, nil
	case "on_demand", "ondemand":
		return OnDemand, nil
	default:
		return Continuous, fmt.Errorf("unknown trigger mode %q", s)
	}
}

// Policy tracks pending requests. It is used from the frame loop only.
type Policy struct {
	mode    Mode
	pending bool
	budget  time.Duration
}

// New returns a policy. budget is the latency each Continuous pass should stay
// under; zero disables the check.
func New(mode Mode, budget time.Duration) *Policy {
	return &Policy{mode: mode, budget: budget}
}

func (p *Policy) Mode() Mode { return p.mode }

// Request asks for one firing. Requests made before the next Fire collapse
// into one. It has no effect in Continuous mode.
func (p *Policy) Request() {
	if p.mode == OnDemand {
		p.pending = true
	}
}

// Pending reports whether a request is waiting.
func (p *Policy) Pending() bool { return p.pending }

// Fire reports whether inference runs this frame and consumes the pending request.
func (p *Policy) Fire() bool {
	switch p.mode {
	case Continuous:
		return true
	case OnDemand:
		fired := p.pending
		p.pending = false
		return fired
	}
	return false
}

// OverBudget reports whether an invocation that took d exceeded the budget.
func (p *Policy) OverBudget(d time.Duration) bool {
	return p.mode == Continuous && p.budget > 0 && d > p.budget
}

func (p *Policy) Budget() time.Duration { return p.budget }
