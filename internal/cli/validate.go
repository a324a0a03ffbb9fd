package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/artisync/internal/artifact"
	"github.com/roach88/artisync/internal/repository"
	"github.com/roach88/artisync/internal/synchronizer"
)

// KindValidation is the validation outcome of one kind.
type KindValidation struct {
	Kind      string   `json:"kind"`
	Artifacts int      `json:"artifacts"`
	Problems  []string `json:"problems,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Kinds []KindValidation `json:"kinds"`
}

// WriteText renders the per-kind artifact counts and every problem.
func (r ValidationResult) WriteText(w io.Writer) error {
	for _, k := range r.Kinds {
		fmt.Fprintf(w, "%-14s  %d artifact(s)\n", k.Kind, k.Artifacts)
		for _, p := range k.Problems {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	if r.Valid {
		fmt.Fprintln(w, "✓ All declarations valid")
	} else {
		fmt.Fprintln(w, "✗ Validation failed")
	}
	return nil
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path...]",
		Short: "Validate declarations without persisting",
		Long: `Parse every declaration of every enabled kind without touching the
database contents. Faster than sync for development feedback.

With paths, only those declarations are parsed, each by the enabled kind
that accepts its path. Paths are relative to the repository root.

Exits 1 when any declaration is malformed.

Example:
  artisync validate
  artisync validate app.roles jobs/nightly.job`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command, paths []string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	app, err := openApp(opts, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	var result ValidationResult
	if len(paths) > 0 {
		result, err = validatePaths(cmd.Context(), app, paths)
	} else {
		result, err = validateAll(cmd.Context(), app, formatter)
	}
	if err != nil {
		_ = formatter.Fail(err)
		return WrapExitError(ExitCommandError, "validation failed", err)
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "malformed declarations found")
	}
	return nil
}

// validateAll parses every declaration of every enabled kind.
func validateAll(ctx context.Context, app *App, formatter *OutputFormatter) (ValidationResult, error) {
	result := ValidationResult{Valid: true}
	for _, s := range app.Runner.Synchronizers() {
		name := s.Kind().Name()
		formatter.VerboseLog("Validating kind: %s", name)

		arts, problems, err := s.Validate(ctx)
		if err != nil {
			return ValidationResult{}, err
		}
		result.add(name, len(arts), problems)
	}
	return result, nil
}

// validatePaths parses the named declarations only. A path no enabled kind
// accepts is a command error.
func validatePaths(ctx context.Context, app *App, paths []string) (ValidationResult, error) {
	syncs := make(map[string]*synchronizer.Synchronizer)
	for _, s := range app.Runner.Synchronizers() {
		syncs[s.Kind().Name()] = s
	}

	result := ValidationResult{Valid: true}
	for _, p := range paths {
		cleaned, err := repository.CleanPath(p)
		if err != nil {
			return ValidationResult{}, err
		}
		k, ok := app.Kinds.ForPath(cleaned)
		if !ok {
			return ValidationResult{}, fmt.Errorf("%s: no enabled kind accepts this path", cleaned)
		}
		content, err := app.Repo.Content(ctx, cleaned)
		if err != nil {
			return ValidationResult{}, err
		}

		arts, problem := syncs[k.Name()].ValidateResource(repository.Resource{Path: cleaned, Content: content})
		var problems []*artifact.MalformedArtifactError
		if problem != nil {
			problems = append(problems, problem)
		}
		result.add(k.Name(), len(arts), problems)
	}
	return result, nil
}

// add merges one kind's outcome, keeping the first-seen kind order.
func (r *ValidationResult) add(kind string, artifacts int, problems []*artifact.MalformedArtifactError) {
	idx := -1
	for i := range r.Kinds {
		if r.Kinds[i].Kind == kind {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.Kinds = append(r.Kinds, KindValidation{Kind: kind})
		idx = len(r.Kinds) - 1
	}

	kv := &r.Kinds[idx]
	kv.Artifacts += artifacts
	for _, p := range problems {
		kv.Problems = append(kv.Problems, p.Error())
	}
	if len(problems) > 0 {
		r.Valid = false
	}
}
