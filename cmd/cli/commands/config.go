package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/VoiceDNA/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [FILE]",
	Short: "Print the effective configuration or check a config file",
	Long: `Without arguments, print the configuration this invocation runs with:
defaults, the config file, environment variables and global flags.

With FILE, validate that file on its own and print it with defaults
filled in.

Examples:
  voicedna config > voicedna.toml
  voicedna config voicedna.toml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg, err = config.Parse(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
		}

		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}
