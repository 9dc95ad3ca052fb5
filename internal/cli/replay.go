package cli

import (
	"github.com/spf13/cobra"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/config"
	"github.com/replaykit/replaykit/internal/replay"
)

// NewReplayCommand builds `replaykit replay SOURCE.rpk -o OUT.rpk`.
func NewReplayCommand(opts *RootOptions) *cobra.Command {
	var (
		outPath      string
		seed         int64
		fixedClock   string
		hybridWith   string
		rerunTypes   []string
		rerunIDs     []string
		strictAlign  bool
	)

	cmd := &cobra.Command{
		Use:   "replay SOURCE.rpk",
		Short: "Replay a captured run offline (stub or hybrid mode)",
		Args:  cobra.ExactArgs(1),
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
			replayCfg := cfg.ReplayConfig()
			if seed != 0 {
				replayCfg.Seed = seed
			}
			if fixedClock != "" {
				replayCfg.FixedClock = fixedClock
			}

			sourceEnv, err := artifact.Read(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read source artifact", err)
			}

			var result replay.Result
			if hybridWith != "" {
				substituteEnv, err := artifact.Read(hybridWith)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read substitute artifact", err)
				}
				result, err = replay.Hybrid(sourceEnv.Payload.Run, substituteEnv.Payload.Run, replayCfg, replay.HybridPolicy{
					RerunStepTypes:  rerunTypes,
					RerunStepIDs:    rerunIDs,
					StrictAlignment: strictAlign,
				})
				if err != nil {
					return WrapExitError(ExitFailure, "hybrid replay failed", err)
				}
			} else {
				result, err = replay.Stub(sourceEnv.Payload.Run, replayCfg)
				if err != nil {
					return WrapExitError(ExitFailure, "replay failed", err)
				}
			}

			env, err := artifact.BuildEnvelope(result.Run, artifact.EnvelopeMetadata{RunID: result.Run.ID, CreatedAt: result.Run.Timestamp})
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to build replay artifact", err)
			}
			if err := artifact.Write(outPath, env); err != nil {
				return WrapExitError(ExitCommandError, "failed to write replay artifact", err)
			}

			response := map[string]any{"replay_run_id": result.Run.ID, "steps": len(result.Run.Steps), "artifact": outPath}
			if len(result.Findings) > 0 {
				findings := make([]string, len(result.Findings))
				for i, f := range result.Findings {
					findings[i] = f.String()
				}
				response["nondeterminism_findings"] = findings
			}
			return formatter.Success(response)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "replay.rpk", "path to write the replayed artifact")
	cmd.Flags().Int64Var(&seed, "seed", 0, "deterministic seed (0 uses config default)")
	cmd.Flags().StringVar(&fixedClock, "fixed-clock", "", "RFC3339 timestamp to stamp the replay with")
	cmd.Flags().StringVar(&hybridWith, "hybrid-with", "", "path to a fresh-run artifact to substitute steps from")
	cmd.Flags().StringSliceVar(&rerunTypes, "rerun-step-types", nil, "step types to substitute in hybrid mode")
	cmd.Flags().StringSliceVar(&rerunIDs, "rerun-step-ids", nil, "step ids to substitute in hybrid mode")
	cmd.Flags().BoolVar(&strictAlign, "strict-alignment", false, "fail if the substitute run's steps don't align with the source")

	return cmd
}
