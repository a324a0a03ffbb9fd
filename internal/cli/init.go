package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/artisync/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a documented default config file",
		Long: `Write the default configuration to path (artisync.yaml by default).
An existing file is never overwritten.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFile
			if len(args) == 1 {
				path = args[0]
			}
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

			if err := config.WriteDefault(path); err != nil {
				_ = formatter.Fail(err)
				return WrapExitError(ExitCommandError, "failed to write config", err)
			}
			if rootOpts.Format == "json" {
				return formatter.Success(map[string]string{"config": path})
			}
			return formatter.Success("wrote " + path)
		},
	}
	return cmd
}
