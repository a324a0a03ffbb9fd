package synchronizer

import (
	"time"

	"github.com/roach88/artisync/internal/artifact"
)

// RunContext is the state shared by every Synchronizer within one run.
//
// It is created fresh for every run and passed explicitly; nothing survives
// into the next run except what the Runner publishes as its report.
type RunContext struct {
	RunID     string
	StartedAt time.Time
	Callback  *Callback

	// blocked holds, per providing kind, the references that cannot be
	// satisfied for the rest of the run.
	blocked map[string]map[artifact.Reference]bool
}

// NewRunContext creates the context for one run.
func NewRunContext(runID string, clock Clock) *RunContext {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RunContext{
		RunID:     runID,
		StartedAt: clock.Now(),
		Callback:  NewCallback(clock),
		blocked:   make(map[string]map[artifact.Reference]bool),
	}
}

// Block marks references provided by kind as unsatisfiable for the rest of
// the run.
func (rc *RunContext) Block(kind string, refs ...artifact.Reference) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if rc.blocked[kind] == nil {
			rc.blocked[kind] = make(map[artifact.Reference]bool)
		}
		rc.blocked[kind][ref] = true
	}
}

// IsBlocked reports whether kind's ref was blocked earlier in the run.
func (rc *RunContext) IsBlocked(kind string, ref artifact.Reference) bool {
	return rc.blocked[kind][ref]
}

// Blocked returns a snapshot of the references blocked for the given kinds.
// No kinds selects every kind.
func (rc *RunContext) Blocked(kinds ...string) map[artifact.Reference]bool {
	out := make(map[artifact.Reference]bool)
	add := func(refs map[artifact.Reference]bool) {
		for ref := range refs {
			out[ref] = true
		}
	}
	if len(kinds) == 0 {
		for _, refs := range rc.blocked {
			add(refs)
		}
		return out
	}
	for _, k := range kinds {
		add(rc.blocked[k])
	}
	return out
}
