package synchronizer

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/artisync/internal/artifact"
	"github.com/roach88/artisync/internal/topology"
)

// StateKey identifies one recorded state.
type StateKey struct {
	Kind     string
	Location string
}

// State is the last lifecycle transition recorded for one artifact.
type State struct {
	Kind       string             `json:"kind"`
	Location   string             `json:"location"`
	Name       string             `json:"name,omitempty"`
	Flow       topology.Flow      `json:"flow"`
	Lifecycle  artifact.Lifecycle `json:"lifecycle"`
	Message    string             `json:"message,omitempty"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// Callback accumulates per-artifact states and run-level errors for one run.
//
// Recording is last-write-wins per (kind, location). Callback has no side
// effects beyond memory; status surfaces read it after the run completes.
//
// Thread-safety: all methods are safe for concurrent use.
type Callback struct {
	clock Clock

	mu     sync.Mutex
	states map[StateKey]State
	errors []string
}

// NewCallback creates an empty Callback stamping states with clock.
func NewCallback(clock Clock) *Callback {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Callback{
		clock:  clock,
		states: make(map[StateKey]State),
	}
}

// RegisterState records the outcome of one lifecycle transition.
func (c *Callback) RegisterState(a artifact.Artifact, flow topology.Flow, lifecycle artifact.Lifecycle, message string) {
	st := State{
		Kind:       a.Kind,
		Location:   a.Location,
		Name:       a.Name,
		Flow:       flow,
		Lifecycle:  lifecycle,
		Message:    message,
		RecordedAt: c.clock.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[StateKey{Kind: st.Kind, Location: st.Location}] = st
}

// RegisterErrors bulk-records a batch's unresolved wrappers with lifecycle.
// Each wrapper's processing error, when present, becomes its message.
func (c *Callback) RegisterErrors(ws []*topology.Wrapper, flow topology.Flow, lifecycle artifact.Lifecycle) {
	for _, w := range ws {
		c.RegisterState(w.Artifact(), flow, lifecycle, wrapperMessage(w))
	}
}

// AddError appends a run-level error message.
func (c *Callback) AddError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, message)
}

// States returns every recorded state sorted by kind, then location.
func (c *Callback) States() []State {
	c.mu.Lock()
	out := make([]State, 0, len(c.states))
	for _, st := range c.states {
		out = append(out, st)
	}
	c.mu.Unlock()

	sortStates(out)
	return out
}

// State returns the recorded state for (kind, location).
func (c *Callback) State(kind, location string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[StateKey{Kind: kind, Location: location}]
	return st, ok
}

// Errors returns a copy of the run-level error messages in record order.
func (c *Callback) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.errors...)
}

// overlay returns prev with every state of c written over it.
func (c *Callback) overlay(prev []State) []State {
	merged := make(map[StateKey]State, len(prev))
	for _, st := range prev {
		merged[StateKey{Kind: st.Kind, Location: st.Location}] = st
	}

	c.mu.Lock()
	for k, st := range c.states {
		merged[k] = st
	}
	c.mu.Unlock()

	out := make([]State, 0, len(merged))
	for _, st := range merged {
		out = append(out, st)
	}
	sortStates(out)
	return out
}

func sortStates(states []State) {
	sort.Slice(states, func(i, j int) bool {
		if states[i].Kind != states[j].Kind {
			return states[i].Kind < states[j].Kind
		}
		return states[i].Location < states[j].Location
	})
}

// wrapperMessage describes why a wrapper did not succeed.
func wrapperMessage(w *topology.Wrapper) string {
	if err := w.Err(); err != nil {
		return err.Error()
	}
	if !w.Attempted() {
		return "unresolved dependencies: " + joinRefs(w.DependsOn())
	}
	return ""
}

func joinRefs(refs []artifact.Reference) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
