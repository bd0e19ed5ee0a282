package pipeline

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/himanishpuri/VoiceDNA/internal/audio"
	"github.com/himanishpuri/VoiceDNA/internal/engine"
	"github.com/himanishpuri/VoiceDNA/internal/model"
	"github.com/himanishpuri/VoiceDNA/internal/pitch"
	"github.com/himanishpuri/VoiceDNA/internal/spectrum"
	"github.com/himanishpuri/VoiceDNA/pkg/logger"
)

type fixture struct {
	dir    string
	input  string
	output string
}

func quietLogger() Logger {
	return logger.New(logger.Config{Level: logger.FATAL, Output: io.Discard})
}

func newFixture(t *testing.T, rate int) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:    dir,
		input:  filepath.Join(dir, "in.wav"),
		output: filepath.Join(dir, "out", "converted.wav"),
	}

	n := rate
	tone := make(audio.Samples, n)
	for i := range tone {
		tone[i] = float32(0.5 * math.Sin(2*math.Pi*220*float64(i)/float64(rate)))
	}
	if err := audio.Encode(f.input, tone, rate); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}
	return f
}

func (f *fixture) model(t *testing.T, name string, doc any) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	if err := model.Save(path, doc); err != nil {
		t.Fatalf("Failed to save model: %v", err)
	}
	return path
}

func gainBundle(g float64) model.Bundle {
	return model.Bundle{
		Model: model.NetworkSpec{
			Kind:   model.KindSequential,
			Layers: []model.LayerSpec{{Op: model.OpGain, Gain: g}},
		},
		Name: "test-voice",
		F0:   "dio",
	}
}

func decodeOutput(t *testing.T, path string) (audio.Samples, int) {
	t.Helper()
	s, rate, err := audio.Decode(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	return s, rate
}

func toFloat64(s audio.Samples) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

func assertTrace(t *testing.T, got []State, want ...State) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected trace %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected trace %v, got %v", want, got)
		}
	}
}

// Inference-capable model at the pipeline rate.
func TestRunInferenceModel(t *testing.T) {
	f := newFixture(t, audio.PipelineRate)
	params := Params{
		ModelPath:  f.model(t, "voice.vdna", gainBundle(0.5)),
		InputPath:  f.input,
		OutputPath: f.output,
	}

	res, err := New(WithLogger(quietLogger())).Run(context.Background(), params)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.OK() || !res.Converted {
		t.Fatalf("Expected Done with conversion, got %s converted=%v", res.State, res.Converted)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", res.Warnings)
	}
	assertTrace(t, res.Trace, Idle, ModelLoading, Decoding, Converting, Encoding, Done)

	out, rate := decodeOutput(t, f.output)
	if rate != audio.PipelineRate {
		t.Errorf("Expected %d Hz output, got %d", audio.PipelineRate, rate)
	}
	if len(out) != audio.PipelineRate {
		t.Errorf("Expected 1s of audio, got %d samples", len(out))
	}
	if peak := audio.Stats(out).Peak; math.Abs(peak-0.25) > 0.01 {
		t.Errorf("Expected halved peak ~0.25, got %v", peak)
	}
	if res.ModelShape != model.ShapeBundle || res.ModelMeta.F0 != "dio" {
		t.Errorf("Unexpected model info %s %+v", res.ModelShape, res.ModelMeta)
	}
}

// Model without an inference operation.
func TestRunPassthroughModel(t *testing.T) {
	f := newFixture(t, 44100)
	params := Params{
		ModelPath:  f.model(t, "weights.vdna", map[string]any{"model": map[string]any{"weights": []float64{0.1, 0.2}}}),
		InputPath:  f.input,
		OutputPath: f.output,
	}

	res, err := New(WithLogger(quietLogger())).Run(context.Background(), params)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.OK() || res.Converted {
		t.Fatalf("Expected Done without conversion, got %s converted=%v", res.State, res.Converted)
	}
	if len(res.Warnings) != 1 || !errors.Is(res.Warnings[0], engine.ErrPassthrough) {
		t.Fatalf("Expected one passthrough warning, got %v", res.Warnings)
	}

	out, rate := decodeOutput(t, f.output)
	if rate != audio.PipelineRate {
		t.Errorf("Expected %d Hz output, got %d", audio.PipelineRate, rate)
	}
	if len(out) != audio.PipelineRate {
		t.Errorf("Expected 1s resampled to %d samples, got %d", audio.PipelineRate, len(out))
	}
	if peak := audio.Stats(out).Peak; math.Abs(peak-0.5) > 0.1 {
		t.Errorf("Expected passthrough level ~0.5, got %v", peak)
	}
}

// A network that raises during inference still produces output.
func TestRunFailingNetwork(t *testing.T) {
	f := newFixture(t, audio.PipelineRate)
	params := Params{
		ModelPath: f.model(t, "nan.vdna", model.NetworkSpec{
			Kind:   model.KindSequential,
			Layers: []model.LayerSpec{{Op: model.OpConv1D, Kernel: []float64{math.NaN()}}},
		}),
		InputPath:  f.input,
		OutputPath: f.output,
	}

	res, err := New(WithLogger(quietLogger())).Run(context.Background(), params)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.OK() {
		t.Fatalf("Expected Done, got %s", res.State)
	}
	if len(res.Warnings) != 1 || !errors.Is(res.Warnings[0], engine.ErrConversionFailed) {
		t.Fatalf("Expected one conversion failure warning, got %v", res.Warnings)
	}
	if _, err := os.Stat(f.output); err != nil {
		t.Errorf("Expected output file: %v", err)
	}
}

// Missing model fails at ModelLoading with no output.
func TestRunMissingModel(t *testing.T) {
	f := newFixture(t, audio.PipelineRate)
	var seen []State
	p := New(WithLogger(quietLogger()), WithObserver(func(s State) { seen = append(seen, s) }))

	res, err := p.Run(context.Background(), Params{
		ModelPath:  filepath.Join(f.dir, "missing.vdna"),
		InputPath:  f.input,
		OutputPath: f.output,
	})

	var se *StageError
	if !errors.As(err, &se) || se.Stage != ModelLoading {
		t.Fatalf("Expected StageError at ModelLoading, got %v", err)
	}
	if !errors.Is(err, model.ErrModelLoad) {
		t.Errorf("Expected ErrModelLoad in chain, got %v", err)
	}
	if res.State != Failed || res.FailedAt != ModelLoading {
		t.Errorf("Expected Failed at ModelLoading, got %s at %s", res.State, res.FailedAt)
	}
	assertTrace(t, seen, Idle, ModelLoading, Failed)
	if _, err := os.Stat(f.output); !os.IsNotExist(err) {
		t.Error("No output should be written on failure")
	}
}

// Pitch +3 keeps duration and rate and raises the dominant frequency.
func TestRunPitchShift(t *testing.T) {
	f := newFixture(t, audio.PipelineRate)
	params := Params{
		ModelPath:  f.model(t, "voice.vdna", gainBundle(1)),
		InputPath:  f.input,
		OutputPath: f.output,
		Semitones:  3,
	}

	for _, m := range []pitch.Method{pitch.WSOLA, pitch.Spectral} {
		t.Run(string(m), func(t *testing.T) {
			res, err := New(WithLogger(quietLogger()), WithPitchMethod(m)).Run(context.Background(), params)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			assertTrace(t, res.Trace, Idle, ModelLoading, Decoding, Converting, PitchShifting, Encoding, Done)
			if res.OutputDuration != res.InputDuration {
				t.Errorf("Duration changed: %v -> %v", res.InputDuration, res.OutputDuration)
			}

			in, _ := decodeOutput(t, f.input)
			out, rate := decodeOutput(t, f.output)
			if rate != audio.PipelineRate || len(out) != len(in) {
				t.Fatalf("Expected %d samples at %d Hz, got %d at %d", len(in), audio.PipelineRate, len(out), rate)
			}

			before := spectrum.DominantFrequency(toFloat64(in), audio.PipelineRate)
			after := spectrum.DominantFrequency(toFloat64(out[len(out)/8:7*len(out)/8]), audio.PipelineRate)
			if after <= before {
				t.Errorf("Expected dominant frequency to rise from %.1f Hz, got %.1f Hz", before, after)
			}
		})
	}
}

// Missing input fails at Decoding with no output.
func TestRunMissingInput(t *testing.T) {
	f := newFixture(t, audio.PipelineRate)
	res, err := New(WithLogger(quietLogger())).Run(context.Background(), Params{
		ModelPath:  f.model(t, "voice.vdna", gainBundle(1)),
		InputPath:  filepath.Join(f.dir, "nope.wav"),
		OutputPath: f.output,
	})

	var se *StageError
	if !errors.As(err, &se) || se.Stage != Decoding {
		t.Fatalf("Expected StageError at Decoding, got %v", err)
	}
	if !errors.Is(err, audio.ErrAudioRead) {
		t.Errorf("Expected ErrAudioRead in chain, got %v", err)
	}
	if res.State != Failed || res.FailedAt != Decoding {
		t.Errorf("Expected Failed at Decoding, got %s at %s", res.State, res.FailedAt)
	}
	if _, err := os.Stat(f.output); !os.IsNotExist(err) {
		t.Error("No output should be written on failure")
	}
}

func TestRunHardFailures(t *testing.T) {
	f := newFixture(t, audio.PipelineRate)
	modelPath := f.model(t, "voice.vdna", gainBundle(1))

	blocker := filepath.Join(f.dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name   string
		ctx    context.Context
		params Params
		stage  State
		target error
	}{
		{
			name:   "unwritable output",
			ctx:    context.Background(),
			params: Params{ModelPath: modelPath, InputPath: f.input, OutputPath: filepath.Join(blocker, "out.wav")},
			stage:  Encoding,
			target: audio.ErrAudioWrite,
		},
		{
			name:   "shift out of range",
			ctx:    context.Background(),
			params: Params{ModelPath: modelPath, InputPath: f.input, OutputPath: f.output, Semitones: 30},
			stage:  PitchShifting,
			target: pitch.ErrPitchShift,
		},
		{
			name:   "unavailable device",
			ctx:    context.Background(),
			params: Params{ModelPath: modelPath, InputPath: f.input, OutputPath: f.output, Target: model.Target{Backend: "cuda"}},
			stage:  ModelLoading,
			target: model.ErrModelLoad,
		},
		{
			name:   "cancelled",
			ctx:    cancelled,
			params: Params{ModelPath: modelPath, InputPath: f.input, OutputPath: f.output},
			stage:  ModelLoading,
			target: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(WithLogger(quietLogger())).Run(tt.ctx, tt.params)
			var se *StageError
			if !errors.As(err, &se) || se.Stage != tt.stage {
				t.Fatalf("Expected StageError at %s, got %v", tt.stage, err)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("Expected %v in chain, got %v", tt.target, err)
			}
			if res.State != Failed || res.FailedAt != tt.stage || res.Err != err {
				t.Errorf("Unexpected result state %s at %s", res.State, res.FailedAt)
			}
		})
	}
}

func TestRunOptions(t *testing.T) {
	f := newFixture(t, audio.PipelineRate)
	specDir := filepath.Join(f.dir, "spectrograms")

	p := New(
		WithLogger(quietLogger()),
		WithBitDepth(24),
		WithSpectrogramDir(specDir),
		WithTempDir(filepath.Join(f.dir, "tmp")),
	)
	res, err := p.Run(context.Background(), Params{
		ModelPath:  f.model(t, "voice.vdna", gainBundle(1)),
		IndexPath:  filepath.Join(f.dir, "added.index"),
		InputPath:  f.input,
		OutputPath: f.output,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Params.IndexPath == "" {
		t.Error("Index path should be carried into the result")
	}
	if len(res.Spectrograms) != 2 {
		t.Fatalf("Expected 2 spectrograms, got %v", res.Spectrograms)
	}
	for _, name := range []string{"input.png", "output.png"} {
		if _, err := os.Stat(filepath.Join(specDir, name)); err != nil {
			t.Errorf("Missing %s: %v", name, err)
		}
	}
	if res.Elapsed <= 0 || res.Elapsed > time.Minute {
		t.Errorf("Unexpected elapsed time %v", res.Elapsed)
	}

	out, _ := decodeOutput(t, f.output)
	in, _ := decodeOutput(t, f.input)
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1.0/32768 {
			t.Fatalf("Unity network should reproduce the input, sample %d", i)
		}
	}
}

func TestParseState(t *testing.T) {
	for s := Idle; s <= Failed; s++ {
		got, err := ParseState(s.String())
		if err != nil || got != s {
			t.Errorf("ParseState(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseState("bogus"); err == nil {
		t.Error("Expected error for unknown state")
	}
	if !Done.Terminal() || !Failed.Terminal() || Converting.Terminal() {
		t.Error("Unexpected Terminal() results")
	}
}
