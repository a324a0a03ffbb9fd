package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/artisync/internal/synchronizer"
)

// SyncResult is the output of the sync command.
type SyncResult struct {
	Report  *synchronizer.Report `json:"report"`
	Summary synchronizer.Summary `json:"summary"`
}

// WriteText renders the run summary, one line per recorded state, then the
// run errors.
func (r SyncResult) WriteText(w io.Writer) error {
	s := r.Summary
	fmt.Fprintf(w, "run %s: %d succeeded, %d failed, %d stalled, %d removed, %d error(s)\n",
		r.Report.RunID, s.Succeeded, s.Failed, s.Stalled, s.Removed, s.Errors)
	if r.Report.Aborted {
		fmt.Fprintln(w, "run aborted")
	}
	for _, st := range r.Report.States {
		writeStateLine(w, string(st.Lifecycle), st.Kind, st.Location, st.Message)
	}
	if len(r.Report.Errors) > 0 {
		fmt.Fprintln(w, "errors:")
		for _, e := range r.Report.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	return nil
}

// writeStateLine writes one aligned lifecycle/kind/location line.
func writeStateLine(w io.Writer, lifecycle, kind, location, message string) {
	if message != "" {
		fmt.Fprintf(w, "  %-10s  %-14s  %s  (%s)\n", lifecycle, kind, location, message)
		return
	}
	fmt.Fprintf(w, "  %-10s  %-14s  %s\n", lifecycle, kind, location)
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization",
		Long: `Run one full synchronization of every enabled kind and print the report.

Exits 1 when the run recorded errors (malformed declarations, failed or
stalled artifacts) and 2 when it could not run at all.

Example:
  artisync sync --repo ./declarations --db ./artisync.db
  artisync sync --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, cmd)
		},
	}
	return cmd
}

func runSync(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	app, err := openApp(opts, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	formatter.VerboseLog("Synchronizing %d kind(s) from %s", len(app.Runner.Synchronizers()), app.Config.Repository)

	report, runErr := app.Runner.Run(cmd.Context())
	if report == nil {
		_ = formatter.Fail(runErr)
		return WrapExitError(ExitCommandError, "synchronization failed", runErr)
	}

	result := SyncResult{Report: report, Summary: report.Summary()}
	if err := formatter.SuccessForRun(report.RunID, result); err != nil {
		return err
	}

	switch {
	case runErr != nil:
		return WrapExitError(ExitCommandError, "synchronization aborted", runErr)
	case report.HasErrors():
		return NewExitError(ExitFailure, fmt.Sprintf("synchronization recorded %d error(s)", len(report.Errors)))
	}
	return nil
}
