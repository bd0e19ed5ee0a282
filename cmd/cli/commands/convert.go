package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/VoiceDNA/internal/pipeline"
	"github.com/himanishpuri/VoiceDNA/internal/pitch"
	"github.com/himanishpuri/VoiceDNA/pkg/voicedna"
)

var (
	convertModel       string
	convertIndex       string
	convertInput       string
	convertOutput      string
	convertPitch       int
	convertDevice      string
	convertSpectrogram string
	convertMethod      string
	convertBitDepth    int
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a recording with a voice model",
	Long: `Convert a recording into the voice of a model.

The input is decoded to mono 16 kHz, run through the model's network,
optionally pitch shifted and written as WAV. A model without a usable
network, or a network that fails, leaves the audio unconverted; the run
still succeeds and the warning is printed.

Examples:
  voicedna convert -m alto.vdna --input speech.wav -o out.wav
  voicedna convert -m alto.vdna -i added.index --input speech.mp3 -o out.wav -p -5
  voicedna convert -m alto.vdna --input speech.wav -o out.wav --spectrogram plots/`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringVarP(&convertModel, "model", "m", "", "voice model artifact (required)")
	f.StringVarP(&convertIndex, "index", "i", "", "feature index file (accepted, not used)")
	f.StringVar(&convertInput, "input", "", "input audio file (required)")
	f.StringVarP(&convertOutput, "output", "o", "", "output WAV file (required)")
	f.IntVarP(&convertPitch, "pitch", "p", 0, "pitch shift in semitones")
	f.StringVarP(&convertDevice, "device", "d", "cpu", "execution device")
	f.StringVar(&convertSpectrogram, "spectrogram", "", "write input/output spectrogram PNGs to this directory")
	f.StringVar(&convertMethod, "pitch-method", "", "pitch shift method: wsola or spectral")
	f.IntVar(&convertBitDepth, "bit-depth", 0, "output bit depth: 16 or 24")

	convertCmd.MarkFlagRequired("model")
	convertCmd.MarkFlagRequired("input")
	convertCmd.MarkFlagRequired("output")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if _, err := os.Stat(convertModel); err != nil {
		return fmt.Errorf("Model not found: %s", convertModel)
	}
	if _, err := os.Stat(convertInput); err != nil {
		return fmt.Errorf("Input file not found: %s", convertInput)
	}

	device := cfg.Engine.Device
	if cmd.Flags().Changed("device") {
		device = convertDevice
	}

	opts := []voicedna.Option{
		voicedna.WithProgress(func(state string) {
			switch state {
			case pipeline.ModelLoading.String():
				fmt.Fprintf(out, "Loading model: %s\n", convertModel)
			case pipeline.Decoding.String():
				fmt.Fprintln(out, "Model loaded successfully")
			case pipeline.Converting.String():
				fmt.Fprintf(out, "Converting: %s -> %s\n", convertInput, convertOutput)
			case pipeline.PitchShifting.String():
				fmt.Fprintf(out, "Shifting pitch: %+d semitones\n", convertPitch)
			}
		}),
	}
	if convertMethod != "" {
		m, err := pitch.ParseMethod(convertMethod)
		if err != nil {
			return err
		}
		opts = append(opts, voicedna.WithPitchMethod(m))
	}
	if convertBitDepth != 0 {
		opts = append(opts, voicedna.WithBitDepth(convertBitDepth))
	}
	if convertSpectrogram != "" {
		opts = append(opts, voicedna.WithSpectrogramDir(convertSpectrogram))
	}

	if !quiet {
		printBanner(out)
	}

	conv, err := newConverter(cfg, opts...)
	if err != nil {
		return err
	}
	defer conv.Close()

	res, err := conv.Convert(cmd.Context(), voicedna.Request{
		ModelPath:  convertModel,
		IndexPath:  convertIndex,
		InputPath:  convertInput,
		OutputPath: convertOutput,
		Semitones:  convertPitch,
		Device:     device,
	})
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			fmt.Fprintln(out, errStyle.Render("Failed at "+stageErr.Stage.String()))
		}
		return err
	}

	for _, w := range res.Warnings {
		fmt.Fprintln(out, warnStyle.Render("Warning: "+w.Error()))
	}
	for _, png := range res.Spectrograms {
		fmt.Fprintf(out, "Spectrogram: %s\n", png)
	}
	fmt.Fprintf(out, "Saved: %s\n", convertOutput)
	fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%s of audio in %s",
		res.OutputDuration.Round(time.Millisecond), res.Elapsed.Round(time.Millisecond))))
	if res.RunID != "" {
		fmt.Fprintln(out, dimStyle.Render("Run ID: "+res.RunID))
	}
	fmt.Fprintln(out, okStyle.Render("Done!"))
	return nil
}
