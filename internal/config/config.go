// Package config loads artisync settings.
//
// Settings are resolved in three layers, later layers winning: built-in
// defaults, the YAML config file, then ARTISYNC_* environment variables.
// Command-line flags are applied on top by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the working directory when no
// path is given.
const DefaultFile = "artisync.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARTISYNC_"

const defaultConfigYAML = `# artisync configuration

# Directory holding the declaration files.
repository: .

# Repository path prefix to scan. "/" scans everything.
root: /

# SQLite database holding the persisted artifacts.
database: artisync.db

# Concurrent persist/remove calls within one depletion pass. 1 is serial.
parallelism: 1

# Per-artifact processing timeout.
timeout: 1m

# Delay between runs in serve mode.
interval: 30s

# Address of the status and metrics server in serve mode.
listen: 127.0.0.1:8080

# Recorded as created_by on newly persisted artifacts.
created_by: artisync

# Kinds to reconcile, in run order. Empty enables every built-in kind.
kinds: []
`

// Config holds the runtime settings.
type Config struct {
	Repository  string        `yaml:"repository"`
	Root        string        `yaml:"root"`
	Database    string        `yaml:"database"`
	Parallelism int           `yaml:"parallelism"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
	Listen      string        `yaml:"listen"`
	CreatedBy   string        `yaml:"created_by"`
	Kinds       []string      `yaml:"kinds"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Repository:  ".",
		Root:        "/",
		Database:    "artisync.db",
		Parallelism: 1,
		Timeout:     time.Minute,
		Interval:    30 * time.Second,
		Listen:      "127.0.0.1:8080",
		CreatedBy:   "artisync",
	}
}

// Load resolves the settings from path and the process environment.
//
// An empty path falls back to DefaultFile when it exists; an explicit path
// must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file; defaults apply.
	default:
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML settings over the defaults without consulting the
// environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from ARTISYNC_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"REPOSITORY": &c.Repository,
		"ROOT":       &c.Root,
		"DATABASE":   &c.Database,
		"LISTEN":     &c.Listen,
		"CREATED_BY": &c.CreatedBy,
	}
	for name, dst := range str {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "PARALLELISM"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPARALLELISM: %w", EnvPrefix, err)
		}
		c.Parallelism = n
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":  &c.Timeout,
		"INTERVAL": &c.Interval,
	}
	for name, dst := range durations {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := lookup(EnvPrefix + "KINDS"); ok {
		c.Kinds = splitList(v)
	}
	return nil
}

// Validate checks the settings for values no component can run with.
func (c Config) Validate() error {
	var problems []string
	if c.Repository == "" {
		problems = append(problems, "repository is required")
	}
	if c.Database == "" {
		problems = append(problems, "database is required")
	}
	if !strings.HasPrefix(c.Root, "/") {
		problems = append(problems, fmt.Sprintf("root %q must start with /", c.Root))
	}
	if c.Parallelism < 1 {
		problems = append(problems, fmt.Sprintf("parallelism must be at least 1, got %d", c.Parallelism))
	}
	if c.Timeout < 0 {
		problems = append(problems, "timeout must not be negative")
	}
	if c.Interval <= 0 {
		problems = append(problems, "interval must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// WriteDefault writes the documented default config to path. An existing
// file is left untouched and reported as an error.
func WriteDefault(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if _, err := f.WriteString(defaultConfigYAML); err != nil {
		f.Close()
		return fmt.Errorf("write default config: %w", err)
	}
	return f.Close()
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
