package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/artisync/internal/artifact"
	"github.com/roach88/artisync/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Kind     string
	Location string
}

// ArtifactStatus is the persisted state of one artifact.
type ArtifactStatus struct {
	Kind      string             `json:"kind"`
	Location  string             `json:"location"`
	Name      string             `json:"name,omitempty"`
	Lifecycle artifact.Lifecycle `json:"lifecycle"`
	Message   string             `json:"message,omitempty"`
	CreatedBy string             `json:"created_by,omitempty"`
	UpdatedAt time.Time          `json:"updated_at,omitzero"`

	// Unmanaged is set for rows of a kind that is not enabled, which no run
	// will update or remove.
	Unmanaged bool `json:"unmanaged,omitempty"`
}

// StatusResult is the output of the status command.
type StatusResult struct {
	Artifacts []ArtifactStatus `json:"artifacts"`
}

// WriteText renders one line per persisted artifact.
func (r StatusResult) WriteText(w io.Writer) error {
	if len(r.Artifacts) == 0 {
		fmt.Fprintln(w, "no persisted artifacts")
		return nil
	}
	fmt.Fprintf(w, "%d persisted artifact(s)\n", len(r.Artifacts))
	for _, a := range r.Artifacts {
		msg := a.Message
		if a.Unmanaged {
			msg = strings.TrimPrefix(msg+"; kind not enabled", "; ")
		}
		writeStateLine(w, string(a.Lifecycle), a.Kind, a.Location, msg)
	}
	return nil
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted lifecycle of every artifact",
		Long: `Show the lifecycle last recorded for every persisted artifact, read from
the database. Does not touch the repository.

Example:
  artisync status --db ./artisync.db
  artisync status --kind extension --format json
  artisync status --kind role --location /app.roles#admin`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show artifacts of this kind")
	cmd.Flags().StringVar(&opts.Location, "location", "", "only show the artifact at this location (requires --kind)")
	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Location != "" && opts.Kind == "" {
		return NewExitError(ExitCommandError, "--location requires --kind")
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	managed, err := managedKinds(cfg, st)
	if err != nil {
		return err
	}

	result, err := collectStatus(cmd.Context(), st, managed, opts.Kind, opts.Location)
	if err != nil {
		_ = formatter.Fail(err)
		return WrapExitError(ExitCommandError, "failed to read status", err)
	}
	return formatter.Success(result)
}

// collectStatus reads the persisted rows, optionally limited to one kind or
// to one location of that kind. Rows no enabled kind accepts are marked
// unmanaged.
func collectStatus(ctx context.Context, st *store.Store, managed *artifact.Registry, kind, location string) (StatusResult, error) {
	var (
		rows []artifact.Artifact
		err  error
	)
	switch {
	case location != "":
		var a *artifact.Artifact
		a, err = st.FindByLocation(ctx, kind, location)
		if a != nil {
			rows = []artifact.Artifact{*a}
		}
	case kind != "":
		rows, err = st.FindAll(ctx, kind)
	default:
		rows, err = st.FindAllKinds(ctx)
	}
	if err != nil {
		return StatusResult{}, err
	}

	result := StatusResult{Artifacts: make([]ArtifactStatus, len(rows))}
	for i, a := range rows {
		_, ok := managed.ForType(a.Kind)
		result.Artifacts[i] = ArtifactStatus{
			Kind:      a.Kind,
			Location:  a.Location,
			Name:      a.Name,
			Lifecycle: a.Lifecycle,
			Message:   a.Message,
			CreatedBy: a.CreatedBy,
			UpdatedAt: a.UpdatedAt,
			Unmanaged: !ok,
		}
	}
	return result, nil
}
