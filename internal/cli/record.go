package cli

import (
	"context"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/canon"
	"github.com/replaykit/replaykit/internal/capture"
	"github.com/replaykit/replaykit/internal/config"
)

// NewRecordCommand builds `replaykit record -o out.rpk -- cmd args...`,
// which runs a subprocess under an open capture scope and records it as
// a single agent.command step.
func NewRecordCommand(opts *RootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "record -- COMMAND [ARGS...]",
		Short: "Run a command and record it as a replay artifact",
		Args:  cobra.MinimumNArgs(1),
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

			ctx, scope := capture.Open(context.Background(), capture.Options{Policy: cfg.CapturePolicy()})

			input := canon.Object{"argv": stringArray(args)}
			_, callErr := capture.RecordAgentCommand(ctx, args[0], input, canon.Object{}, func() (canon.Value, error) {
				return runCommand(args)
			})

			run := scope.ToRun()
			env, err := artifact.BuildEnvelope(run, artifact.EnvelopeMetadata{
				RunID:     run.ID,
				CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to build artifact", err)
			}
			if err := artifact.Write(outPath, env); err != nil {
				return WrapExitError(ExitCommandError, "failed to write artifact", err)
			}

			if callErr != nil {
				formatter.VerboseLog("command failed: %v", callErr)
			}
			return formatter.Success(map[string]any{"run_id": run.ID, "steps": len(run.Steps), "artifact": outPath})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "run.rpk", "path to write the recorded artifact")
	return cmd
}

func runCommand(args []string) (canon.Value, error) {
	c := exec.Command(args[0], args[1:]...)
	output, err := c.CombinedOutput()
	exitCode := 0
	if c.ProcessState != nil {
		exitCode = c.ProcessState.ExitCode()
	}
	result := canon.Object{
		"output":    canon.String(string(output)),
		"exit_code": canon.Int(int64(exitCode)),
	}
	if _, isExitErr := err.(*exec.ExitError); isExitErr {
		// Nonzero exit is a recorded outcome, not a capture failure.
		return result, nil
	}
	return result, err
}

func stringArray(values []string) canon.Array {
	arr := make(canon.Array, len(values))
	for i, v := range values {
		arr[i] = canon.String(v)
	}
	return arr
}
