package cli

import (
	"github.com/spf13/cobra"

	"github.com/replaykit/replaykit/internal/artifact"
)

// NewBundleCommand builds `replaykit bundle SOURCE.rpk -o OUT.rpk`.
func NewBundleCommand(opts *RootOptions) *cobra.Command {
	var (
		outPath  string
		profile  string
		sign     bool
		compress bool
	)

	cmd := &cobra.Command{
		Use:   "bundle SOURCE.rpk",
		Short: "Produce a redacted, shareable copy of a captured run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

			bundleOpts := artifact.BundleOptions{
				Profile:  artifact.RedactionProfile(profile),
				Sign:     sign,
				Compress: compress,
			}
			if sign {
				key, keyID, ok := artifact.SigningKeyFromEnv()
				if !ok {
					return NewExitError(ExitCommandError, "signing requested but "+artifact.SigningKeyEnvVar+" is not set")
				}
				bundleOpts.SigningKey = key
				bundleOpts.SigningKeyID = keyID
			}

			if err := artifact.Bundle(args[0], outPath, bundleOpts); err != nil {
				return WrapExitError(ExitCommandError, "failed to build bundle", err)
			}
			return formatter.Success(map[string]any{"artifact": outPath, "redaction_profile": profile})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "bundle.rpk", "path to write the bundled artifact")
	cmd.Flags().StringVar(&profile, "redaction", "default", "redaction profile: default|none|custom")
	cmd.Flags().BoolVar(&sign, "sign", false, "sign the bundle using "+artifact.SigningKeyEnvVar)
	cmd.Flags().BoolVar(&compress, "compress", false, "also write a zstd-compressed .zst sidecar")

	return cmd
}
