package cli

import (
	"github.com/spf13/cobra"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/diff"
)

// NewDiffCommand builds `replaykit diff LEFT.rpk RIGHT.rpk`.
func NewDiffCommand(opts *RootOptions) *cobra.Command {
	var (
		firstDivergence bool
		maxChanges      int
		strict          bool
	)

	cmd := &cobra.Command{
		Use:   "diff LEFT.rpk RIGHT.rpk",
		Short: "Diff two captured runs step-by-step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

			left, err := artifact.Read(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read left artifact", err)
			}
			right, err := artifact.Read(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read right artifact", err)
			}

			result := diff.Runs(left.Payload.Run, right.Payload.Run, diff.Options{
				StopAtFirstDivergence: firstDivergence,
				MaxChangesPerStep:     maxChanges,
				Strict:                strict,
			})

			if opts.Format == "text" {
				if firstDivergence {
					formatter.VerboseLog("%s", diff.RenderFirstDivergence(result))
				}
				return formatter.Success(diff.RenderSummary(result))
			}
			return formatter.Success(result)
		},
	}

	cmd.Flags().BoolVar(&firstDivergence, "first-divergence", false, "stop comparing at the first divergent step")
	cmd.Flags().IntVar(&maxChanges, "max-changes-per-step", 50, "maximum field-level changes reported per step")
	cmd.Flags().BoolVar(&strict, "strict", false, "include non-semantic (denylisted) metadata keys in field-level deltas")

	return cmd
}
