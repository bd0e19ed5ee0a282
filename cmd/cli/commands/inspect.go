package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inspectDevice string

var inspectCmd = &cobra.Command{
	Use:   "inspect MODEL",
	Short: "Describe a model artifact",
	Long: `Load a model artifact and print its shape, metadata and whether
its network can run inference.

Examples:
  voicedna inspect voices/alto.vdna`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		device := cfg.Engine.Device
		if cmd.Flags().Changed("device") {
			device = inspectDevice
		}

		conv, err := newConverter(cfg)
		if err != nil {
			return err
		}
		defer conv.Close()

		info, err := conv.Inspect(args[0], device)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		field(out, "Model", info.Path)
		field(out, "Shape", info.Shape)
		if info.Name != "" {
			field(out, "Name", info.Name)
		}
		if info.Version != "" {
			field(out, "Version", info.Version)
		}
		if info.SampleRate != 0 {
			field(out, "Trained at", info.SampleRate)
		}
		if info.F0 != "" {
			field(out, "F0 method", info.F0)
		}
		field(out, "Size", info.Size)
		if len(info.Layers) > 0 {
			field(out, "Network", fmt.Sprintf("sequential, %d layers", len(info.Layers)))
			for i, l := range info.Layers {
				fmt.Fprintf(out, "  %2d. %s\n", i, l)
			}
		} else {
			field(out, "Network", info.Network)
		}
		if info.Inference {
			field(out, "Inference", okStyle.Render("yes"))
		} else {
			field(out, "Inference", warnStyle.Render("no (conversion passes audio through)"))
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectDevice, "device", "d", "cpu", "device to bind weights to")
}
