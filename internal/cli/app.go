package cli

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/artisync/internal/artifact"
	"github.com/roach88/artisync/internal/config"
	"github.com/roach88/artisync/internal/kinds"
	"github.com/roach88/artisync/internal/repository"
	"github.com/roach88/artisync/internal/store"
	"github.com/roach88/artisync/internal/synchronizer"
	"github.com/roach88/artisync/internal/topology"
)

// App is the wired application shared by the commands.
type App struct {
	Config  config.Config
	Store   *store.Store
	Repo    *repository.FileSystem
	Kinds   *artifact.Registry // enabled kinds only
	Runner  *synchronizer.Runner
	Metrics *synchronizer.Metrics
}

// loadConfig resolves the settings and applies the global flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Repository != "" {
		cfg.Repository = opts.Repository
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, cfg.Validate()
}

// openApp loads the settings, opens the store and repository, and registers
// one synchronizer per enabled kind. Metrics are registered with reg when it
// is not nil. The caller must Close the app.
func openApp(opts *RootOptions, reg prometheus.Registerer) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	repo, err := repository.NewFileSystem(cfg.Repository)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open repository", err)
	}

	slog.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	registry, err := managedKinds(cfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}

	var metrics *synchronizer.Metrics
	if reg != nil {
		metrics = synchronizer.NewMetrics(reg)
	}

	depleter := topology.NewDepleter(
		topology.WithParallelism(cfg.Parallelism),
		topology.WithTimeout(cfg.Timeout),
	)
	runner := synchronizer.NewRunner(synchronizer.WithRunMetrics(metrics))
	for _, k := range registry.Kinds() {
		runner.Register(synchronizer.New(k, repo,
			synchronizer.WithRoot(cfg.Root),
			synchronizer.WithDepleter(depleter),
			synchronizer.WithCreatedBy(cfg.CreatedBy),
			synchronizer.WithMetrics(metrics),
			synchronizer.WithStateRecorder(st),
		))
	}

	return &App{
		Config:  cfg,
		Store:   st,
		Repo:    repo,
		Kinds:   registry,
		Runner:  runner,
		Metrics: metrics,
	}, nil
}

// Close releases the store.
func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// managedKinds returns a registry holding only the enabled kinds, in run
// order, backed by st.
func managedKinds(cfg config.Config, st *store.Store) (*artifact.Registry, error) {
	all := artifact.NewRegistry()
	if err := kinds.RegisterDefaults(all, st); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to register kinds", err)
	}
	enabled, err := enabledKinds(all, cfg.Kinds)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid kinds", err)
	}
	registry := artifact.NewRegistry()
	for _, k := range enabled {
		if err := registry.Register(k); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid kinds", err)
		}
	}
	return registry, nil
}

// enabledKinds returns the kinds named in names, in that order. No names
// selects every registered kind in registration order.
func enabledKinds(registry *artifact.Registry, names []string) ([]artifact.Kind, error) {
	if len(names) == 0 {
		return registry.Kinds(), nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]artifact.Kind, 0, len(names))
	for _, name := range names {
		k, ok := registry.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown kind %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("kind %q listed twice", name)
		}
		seen[name] = true
		out = append(out, k)
	}
	return out, nil
}
