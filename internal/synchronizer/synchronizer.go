package synchronizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/artisync/internal/artifact"
	"github.com/roach88/artisync/internal/repository"
	"github.com/roach88/artisync/internal/topology"
)

// DefaultCreatedBy is stamped on artifacts when no creator is configured.
const DefaultCreatedBy = "artisync"

// StateRecorder updates the lifecycle metadata of a persisted artifact
// without touching its content. *store.Store satisfies it.
type StateRecorder interface {
	SetState(ctx context.Context, kind, key string, lifecycle artifact.Lifecycle, message string, at time.Time) (bool, error)
}

// Synchronizer reconciles one artifact kind against the repository.
//
// Thread-safety: a Synchronizer holds only configuration; the Runner
// guarantees that at most one run uses it at a time.
type Synchronizer struct {
	kind      artifact.Kind
	repo      repository.Repository
	root      string
	depleter  *topology.Depleter
	clock     Clock
	createdBy string
	metrics   *Metrics
	states    StateRecorder
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithRoot limits the repository scan to the given path prefix.
func WithRoot(root string) Option {
	return func(s *Synchronizer) {
		s.root = root
	}
}

// WithDepleter replaces the default serial depleter.
func WithDepleter(d *topology.Depleter) Option {
	return func(s *Synchronizer) {
		s.depleter = d
	}
}

// WithClock sets the clock used for lifecycle timestamps.
func WithClock(c Clock) Option {
	return func(s *Synchronizer) {
		s.clock = c
	}
}

// WithCreatedBy sets the creator stamped on newly persisted artifacts.
func WithCreatedBy(createdBy string) Option {
	return func(s *Synchronizer) {
		s.createdBy = createdBy
	}
}

// WithMetrics records outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Synchronizer) {
		s.metrics = m
	}
}

// WithStateRecorder persists FAILED and STALLED lifecycles of existing rows.
func WithStateRecorder(r StateRecorder) Option {
	return func(s *Synchronizer) {
		s.states = r
	}
}

// New creates a Synchronizer for kind reading from repo.
func New(kind artifact.Kind, repo repository.Repository, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		kind:      kind,
		repo:      repo,
		root:      "/",
		depleter:  topology.NewDepleter(),
		clock:     SystemClock{},
		createdBy: DefaultCreatedBy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind returns the kind this Synchronizer reconciles.
func (s *Synchronizer) Kind() artifact.Kind {
	return s.kind
}

// Synchronize runs the CREATED and REMOVED flows of the kind, recording
// outcomes on rc.
//
// Parse, persist and remove failures are recorded and never returned. The
// returned error reports infrastructure failure (repository unreachable,
// store unreadable, context cancelled) and aborts the run.
func (s *Synchronizer) Synchronize(ctx context.Context, rc *RunContext) error {
	name := s.kind.Name()
	log := slog.With("kind", name, "run_id", rc.RunID)

	resources, err := s.repo.List(ctx, s.root, s.kind.IsAccepted)
	if err != nil {
		return fmt.Errorf("synchronize %s: list %s: %w", name, s.root, err)
	}

	declared, malformed := s.load(rc, resources)

	persisted, err := s.kind.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("synchronize %s: find persisted: %w", name, err)
	}

	// Artifacts of a malformed source keep their last-good row, but nothing
	// may depend on them this run.
	for _, p := range persisted {
		if malformed[p.Source] {
			rc.Block(name, p.Refs()...)
		}
	}

	if err := s.create(ctx, rc, declared); err != nil {
		return err
	}

	stale := staleArtifacts(persisted, declared, malformed)
	if err := s.removeStale(ctx, rc, stale); err != nil {
		return err
	}

	log.Debug("kind synchronized",
		"declared", len(declared),
		"malformed", len(malformed),
		"stale", len(stale))
	return nil
}

// Validate parses every accepted declaration without touching the store.
// Returns the parsed artifacts and one *MalformedArtifactError per bad
// declaration.
func (s *Synchronizer) Validate(ctx context.Context) ([]artifact.Artifact, []*artifact.MalformedArtifactError, error) {
	resources, err := s.repo.List(ctx, s.root, s.kind.IsAccepted)
	if err != nil {
		return nil, nil, fmt.Errorf("validate %s: list %s: %w", s.kind.Name(), s.root, err)
	}

	var (
		declared []artifact.Artifact
		problems []*artifact.MalformedArtifactError
	)
	seen := make(map[string]string)
	for _, res := range resources {
		if !s.kind.IsAccepted(res.Path) {
			continue
		}
		arts, err := s.parse(res, seen)
		if err != nil {
			problems = append(problems, artifact.AsMalformed(s.kind.Name(), res.Path, err))
			continue
		}
		declared = append(declared, arts...)
	}
	return declared, problems, nil
}

// ValidateResource parses a single declaration without touching the store.
func (s *Synchronizer) ValidateResource(res repository.Resource) ([]artifact.Artifact, *artifact.MalformedArtifactError) {
	arts, err := s.parse(res, make(map[string]string))
	if err != nil {
		return nil, artifact.AsMalformed(s.kind.Name(), res.Path, err)
	}
	return arts, nil
}

// load parses every accepted resource. Malformed sources are recorded on rc,
// blocked, and returned by path.
func (s *Synchronizer) load(rc *RunContext, resources []repository.Resource) ([]artifact.Artifact, map[string]bool) {
	var declared []artifact.Artifact
	malformed := make(map[string]bool)
	seen := make(map[string]string)

	for _, res := range resources {
		if !s.kind.IsAccepted(res.Path) {
			continue
		}
		arts, err := s.parse(res, seen)
		if err != nil {
			s.recordMalformed(rc, res, err)
			malformed[res.Path] = true
			continue
		}
		declared = append(declared, arts...)
	}
	return declared, malformed
}

// parse decodes one resource and rejects locations already produced by this
// kind. seen maps produced locations to their source and is updated on
// success. A panicking decoder is reported as a malformed declaration.
func (s *Synchronizer) parse(res repository.Resource, seen map[string]string) (arts []artifact.Artifact, err error) {
	name := s.kind.Name()
	defer func() {
		if r := recover(); r != nil {
			arts = nil
			err = artifact.NewMalformedError(name, res.Path, fmt.Sprintf("decoder panicked: %v", r), nil)
		}
	}()

	arts, err = s.kind.Parse(res.Path, res.Content)
	if err != nil {
		return nil, artifact.AsMalformed(name, res.Path, err)
	}

	local := make(map[string]bool, len(arts))
	for i := range arts {
		a := &arts[i]
		if a.Source == "" {
			a.Source = res.Path
		}
		if prev, ok := seen[a.Location]; ok || local[a.Location] {
			if !ok {
				prev = res.Path
			}
			return nil, artifact.NewMalformedError(name, res.Path,
				fmt.Sprintf("duplicate location %s (also declared by %s)", a.Location, prev), nil)
		}
		local[a.Location] = true
	}
	for _, a := range arts {
		seen[a.Location] = res.Path
	}
	return arts, nil
}

// recordMalformed records a declaration that failed to parse and blocks
// everything it would have provided: its path and whatever references the
// kind can still recover from the content.
func (s *Synchronizer) recordMalformed(rc *RunContext, res repository.Resource, err error) {
	name := s.kind.Name()
	path := res.Path
	me := artifact.AsMalformed(name, path, err)

	rc.Callback.AddError(me.Error())
	rc.Callback.RegisterState(
		artifact.Artifact{Kind: name, Location: path, Source: path},
		topology.FlowCreated, artifact.LifecycleFailed, me.Error())
	rc.Block(name, artifact.Reference(path))
	rc.Block(name, s.providedRefs(res)...)
	s.metrics.RecordMalformed(name)

	slog.Warn("malformed declaration",
		"kind", name,
		"location", path,
		"run_id", rc.RunID,
		"error", me)
}

// providedRefs asks the kind for the references a malformed declaration
// still names. A panicking kind provides nothing.
func (s *Synchronizer) providedRefs(res repository.Resource) (out []artifact.Reference) {
	rp, ok := s.kind.(artifact.RefProvider)
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("provided refs panicked", "kind", s.kind.Name(), "location", res.Path, "panic", r)
			out = nil
		}
	}()
	return rp.ProvidedRefs(res.Path, res.Content)
}

// blocked returns the blocked references the kind's dependencies can resolve
// to: those of the kinds it names, or every kind.
func (s *Synchronizer) blocked(rc *RunContext) map[artifact.Reference]bool {
	if ds, ok := s.kind.(artifact.DependencyScoper); ok {
		kinds := ds.DependencyKinds()
		if len(kinds) == 0 {
			return nil
		}
		return rc.Blocked(kinds...)
	}
	return rc.Blocked()
}

// create drives the CREATED flow over the declared artifacts.
func (s *Synchronizer) create(ctx context.Context, rc *RunContext, declared []artifact.Artifact) error {
	ws := topology.Wrap(declared, topology.FlowCreated, s.kind.Dependencies)
	batch := topology.Batch{
		Kind:     s.kind.Name(),
		Flow:     topology.FlowCreated,
		Wrappers: ws,
		Blocked:  s.blocked(rc),
	}
	return s.deplete(ctx, rc, batch, s.persist)
}

// removeStale drives the REMOVED flow over persisted artifacts whose
// declaration disappeared. Dependents are removed before their dependencies
// unless the kind orders removal itself.
func (s *Synchronizer) removeStale(ctx context.Context, rc *RunContext, stale []artifact.Artifact) error {
	ws := make([]*topology.Wrapper, len(stale))
	if ro, ok := s.kind.(artifact.RemovalOrderer); ok {
		for i, a := range stale {
			ws[i] = topology.NewWrapper(a, topology.FlowRemoved, ro.RemovalDependencies(a, stale))
		}
	} else {
		reversed := topology.ReverseDependencies(stale, s.kind.Dependencies)
		for i, a := range stale {
			ws[i] = topology.NewWrapper(a, topology.FlowRemoved, reversed[a.Location])
		}
	}

	batch := topology.Batch{
		Kind:     s.kind.Name(),
		Flow:     topology.FlowRemoved,
		Wrappers: ws,
	}
	return s.deplete(ctx, rc, batch, s.remove)
}

func (s *Synchronizer) deplete(ctx context.Context, rc *RunContext, batch topology.Batch, process topology.ProcessFunc) error {
	for _, w := range batch.Wrappers {
		rc.Callback.RegisterState(w.Artifact(), batch.Flow, artifact.LifecycleProcessing, "")
	}

	res, err := s.depleter.Deplete(ctx, batch, process)
	if res != nil {
		if err != nil {
			// The remainder was never attempted; leave it PROCESSING.
			res.Stalled = nil
		}
		s.record(ctx, rc, res)
	}
	if err != nil {
		return fmt.Errorf("synchronize %s: %w", batch.Kind, err)
	}
	return nil
}

// persist is the CREATED process function.
func (s *Synchronizer) persist(ctx context.Context, w *topology.Wrapper) (bool, error) {
	now := s.clock.Now()
	a := w.Artifact()
	a.Lifecycle = artifact.LifecycleSucceeded
	a.Message = ""
	a.CreatedBy = s.createdBy
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := s.kind.Persist(ctx, a); err != nil {
		return false, err
	}
	return true, nil
}

// remove is the REMOVED process function.
func (s *Synchronizer) remove(ctx context.Context, w *topology.Wrapper) (bool, error) {
	if err := s.kind.Remove(ctx, w.Artifact()); err != nil {
		return false, err
	}
	return true, nil
}

// record reports a depletion result on rc.
func (s *Synchronizer) record(ctx context.Context, rc *RunContext, res *topology.Result) {
	name := s.kind.Name()
	flow := string(res.Flow)

	done := artifact.LifecycleSucceeded
	if res.Flow == topology.FlowRemoved {
		done = artifact.LifecycleRemoved
	}
	for _, w := range res.Succeeded {
		rc.Callback.RegisterState(w.Artifact(), res.Flow, done, "")
		s.metrics.RecordArtifact(name, flow, string(topology.OutcomeSuccess))
	}

	rc.Callback.RegisterErrors(res.Failed, res.Flow, artifact.LifecycleFailed)
	for _, w := range res.Failed {
		msg := wrapperMessage(w)
		rc.Callback.AddError(fmt.Sprintf("%s %s %s: %s", name, res.Flow, w.ID(), msg))
		s.unresolved(ctx, rc, w, artifact.LifecycleFailed, msg)
		s.metrics.RecordArtifact(name, flow, string(topology.OutcomeFailure))
		slog.Warn("artifact failed",
			"kind", name,
			"flow", res.Flow,
			"location", w.ID(),
			"run_id", rc.RunID,
			"error", w.Err())
	}

	rc.Callback.RegisterErrors(res.Stalled, res.Flow, artifact.LifecycleStalled)
	for _, w := range res.Stalled {
		s.unresolved(ctx, rc, w, artifact.LifecycleStalled, wrapperMessage(w))
		s.metrics.RecordArtifact(name, flow, string(artifact.LifecycleStalled))
	}
	if stall := res.StallError(); stall != nil {
		rc.Callback.AddError(stall.Error())
		slog.Warn("batch stalled",
			"kind", name,
			"flow", res.Flow,
			"run_id", rc.RunID,
			"stalled", topology.IDs(res.Stalled))
	}
	s.metrics.SetStalled(name, flow, len(res.Stalled))
}

// unresolved blocks a failed or stalled CREATED artifact for the rest of the
// run and records the lifecycle on its persisted row, if any.
func (s *Synchronizer) unresolved(ctx context.Context, rc *RunContext, w *topology.Wrapper, lifecycle artifact.Lifecycle, msg string) {
	a := w.Artifact()
	if w.Flow() == topology.FlowCreated {
		rc.Block(s.kind.Name(), a.Refs()...)
	}
	if s.states == nil {
		return
	}
	if _, err := s.states.SetState(ctx, a.Kind, a.Key, lifecycle, msg, s.clock.Now()); err != nil {
		rc.Callback.AddError(fmt.Sprintf("%s %s: record %s: %v", a.Kind, a.Location, lifecycle, err))
	}
}

// staleArtifacts returns the persisted artifacts no longer declared. Artifacts
// of malformed sources are kept: their declaration still exists.
func staleArtifacts(persisted, declared []artifact.Artifact, malformed map[string]bool) []artifact.Artifact {
	produced := make(map[string]bool, len(declared))
	for _, a := range declared {
		produced[a.Location] = true
	}

	var stale []artifact.Artifact
	for _, p := range persisted {
		if produced[p.Location] || malformed[p.Source] {
			continue
		}
		stale = append(stale, p)
	}
	return stale
}
