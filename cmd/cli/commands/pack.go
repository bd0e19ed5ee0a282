package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/VoiceDNA/pkg/voicedna"
)

var packCmd = &cobra.Command{
	Use:   "pack SPEC.toml OUT",
	Short: "Build a model artifact from a TOML description",
	Long: `Build a model artifact from a TOML network description.

Example description (alto.toml):
  name = "alto"
  f0 = "dio"

  [model]
  kind = "sequential"

  [[model.layers]]
  op = "conv1d"
  kernel = [0.25, 0.5, 0.25]

  [[model.layers]]
  op = "gain"
  gain = 0.8

Set bare = true to write the network without bundle metadata.

Examples:
  voicedna pack alto.toml voices/alto.vdna`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := voicedna.Pack(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", args[1])
		return nil
	},
}
