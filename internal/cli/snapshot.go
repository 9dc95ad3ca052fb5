package cli

import (
	"github.com/spf13/cobra"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/assertrun"
	"github.com/replaykit/replaykit/internal/config"
)

// NewSnapshotAssertCommand builds `replaykit snapshot-assert NAME CANDIDATE.rpk`.
func NewSnapshotAssertCommand(opts *RootOptions) *cobra.Command {
	var (
		snapshotsDir string
		strict       bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot-assert NAME CANDIDATE.rpk",
		Short: "Assert a run against a named on-disk snapshot, recording it on first use",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

			cfg := config.Default()
			if opts.Config != "" {
				loaded, err := config.Load(opts.Config)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load config", err)
				}
				cfg = loaded
			}
			dir := snapshotsDir
			if dir == "" {
				dir = cfg.SnapshotsDir
			}

			candidateEnv, err := artifact.Read(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read candidate artifact", err)
			}

			result, err := assertrun.AssertAgainstSnapshot(candidateEnv.Payload.Run, dir, args[0], assertrun.Options{Strict: strict})
			if err != nil {
				return WrapExitError(ExitCommandError, "snapshot assertion errored", err)
			}
			if !result.Passed {
				if err := formatter.Error("SNAPSHOT_MISMATCH", "candidate run does not match snapshot", result.Reasons); err != nil {
					return err
				}
				return NewExitError(ExitFailure, "snapshot assertion failed")
			}
			return formatter.Success(map[string]any{"passed": true, "snapshot": args[0]})
		},
	}

	cmd.Flags().StringVar(&snapshotsDir, "snapshots-dir", "", "directory holding named snapshots (defaults to config)")
	cmd.Flags().BoolVar(&strict, "strict", false, "also fail on environment/runtime version drift")

	return cmd
}
