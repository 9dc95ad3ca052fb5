package cli

import (
	"github.com/spf13/cobra"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/assertrun"
)

// NewAssertRunCommand builds `replaykit assert-run BASELINE.rpk CANDIDATE.rpk`.
func NewAssertRunCommand(opts *RootOptions) *cobra.Command {
	var (
		strict        bool
		slowdownRatio float64
		maxChanges    int
	)

	cmd := &cobra.Command{
		Use:   "assert-run BASELINE.rpk CANDIDATE.rpk",
		Short: "Assert that a candidate run matches a baseline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

			baseline, err := artifact.Read(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read baseline artifact", err)
			}
			candidate, err := artifact.Read(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read candidate artifact", err)
			}

			result := assertrun.Run(baseline.Payload.Run, candidate.Payload.Run, assertrun.Options{
				MaxChangesPerStep: maxChanges,
				Strict:            strict,
				SlowdownRatio:     slowdownRatio,
			})

			if !result.Passed {
				details := map[string]any{"reasons": result.Reasons}
				if result.PerformanceStatus != "" {
					details["performance_status"] = result.PerformanceStatus
				}
				if err := formatter.Error("ASSERTION_FAILED", "candidate run failed assertion", details); err != nil {
					return err
				}
				return NewExitError(ExitFailure, "assertion failed")
			}
			return formatter.Success(map[string]any{"passed": true})
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "also fail on environment/runtime version drift")
	cmd.Flags().Float64Var(&slowdownRatio, "slowdown-ratio", 0, "fail if the mean per-step timing ratio (candidate/baseline) exceeds this multiple (0 disables)")
	cmd.Flags().IntVar(&maxChanges, "max-changes-per-step", 50, "maximum field-level changes reported per step")

	return cmd
}
