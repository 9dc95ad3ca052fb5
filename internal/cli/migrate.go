package cli

import (
	"github.com/spf13/cobra"

	"github.com/replaykit/replaykit/internal/migrate"
)

// NewMigrateCommand builds `replaykit migrate SOURCE.rpk -o OUT.rpk`.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "migrate SOURCE.rpk",
		Short: "Upgrade an older artifact to the current schema version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

			result, err := migrate.File(args[0], outPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "migration failed", err)
			}
			return formatter.Success(result)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "migrated.rpk", "path to write the migrated artifact")
	return cmd
}
