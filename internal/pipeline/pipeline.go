// Package pipeline drives one voice conversion: load the model, decode the
// input, run the network, optionally transpose, and write the result.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/himanishpuri/VoiceDNA/internal/audio"
	"github.com/himanishpuri/VoiceDNA/internal/engine"
	"github.com/himanishpuri/VoiceDNA/internal/model"
	"github.com/himanishpuri/VoiceDNA/internal/pitch"
	"github.com/himanishpuri/VoiceDNA/internal/spectrum"
	"github.com/himanishpuri/VoiceDNA/pkg/logger"
)

// Params of a single invocation.
type Params struct {
	ModelPath string
	// IndexPath is accepted and reported but never read.
	IndexPath  string
	InputPath  string
	OutputPath string
	Semitones  int
	Target     model.Target
}

// Result describes a finished run. On failure State is Failed, FailedAt
// names the stage and Err holds the same *StageError Run returned.
type Result struct {
	Params Params

	State    State
	FailedAt State
	Err      error
	Trace    []State

	ModelShape model.Shape
	ModelMeta  model.Metadata
	// Converted is true when the network's output replaced the input.
	Converted bool
	// Warnings are the soft engine signals and diagnostics failures.
	Warnings []error

	SampleRate     int
	InputDuration  time.Duration
	OutputDuration time.Duration
	InputStats     audio.SignalStats
	OutputStats    audio.SignalStats
	Spectrograms   []string

	StartedAt time.Time
	Elapsed   time.Duration
}

// OK reports whether the run reached Done.
func (r *Result) OK() bool { return r.State == Done }

// Pipeline runs conversions. It holds no per-run state and may be used by
// several goroutines at once.
type Pipeline struct {
	log            Logger
	codec          audio.Codec
	shifter        pitch.Shifter
	spectrogramDir string
	observer       Observer
}

func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.GetLogger().With("pipeline")
	}
	return p
}

type run struct {
	p   *Pipeline
	res *Result
}

func (r *run) enter(s State) {
	r.res.State = s
	r.res.Trace = append(r.res.Trace, s)
	r.p.log.Debugf("state -> %s", s)
	if r.p.observer != nil {
		r.p.observer(s)
	}
}

func (r *run) fail(stage State, err error) (*Result, error) {
	serr := &StageError{Stage: stage, Err: err}
	r.res.FailedAt = stage
	r.res.Err = serr
	r.res.Elapsed = time.Since(r.res.StartedAt)
	r.enter(Failed)
	r.p.log.Errorf("%v", serr)
	return r.res, serr
}

func (r *run) warn(err error) {
	r.res.Warnings = append(r.res.Warnings, err)
	r.p.log.Warnf("%v", err)
}

// Run executes one conversion. A hard failure returns both a *StageError
// and a Result in the Failed state; no output file is written in that case.
func (p *Pipeline) Run(ctx context.Context, params Params) (*Result, error) {
	if params.Target.Backend == "" {
		params.Target = model.CPU
	}

	r := &run{p: p, res: &Result{Params: params, StartedAt: time.Now(), SampleRate: audio.PipelineRate}}
	r.enter(Idle)

	// 1. Load the model artifact
	r.enter(ModelLoading)
	if err := ctx.Err(); err != nil {
		return r.fail(ModelLoading, err)
	}
	p.log.Infof("Loading model: %s", params.ModelPath)
	artifact, err := model.Load(params.ModelPath, params.Target)
	if err != nil {
		return r.fail(ModelLoading, err)
	}
	r.res.ModelShape = artifact.Shape
	r.res.ModelMeta = artifact.Meta
	network := model.ExtractNetwork(artifact)
	p.log.Infof("Model loaded successfully (%s, device %s)", artifact.Shape, params.Target)
	if params.IndexPath != "" {
		p.log.Infof("Index file accepted, not used: %s", params.IndexPath)
	}

	// 2. Decode and resample the input
	r.enter(Decoding)
	if err := ctx.Err(); err != nil {
		return r.fail(Decoding, err)
	}
	samples, err := p.codec.LoadAt(ctx, params.InputPath, audio.PipelineRate)
	if err != nil {
		return r.fail(Decoding, err)
	}
	r.res.InputDuration = audio.Duration(samples, audio.PipelineRate)
	r.res.InputStats = audio.Stats(samples)
	p.log.Infof("Decoded %s: %d samples (%s) at %d Hz",
		params.InputPath, len(samples), r.res.InputDuration.Round(time.Millisecond), audio.PipelineRate)
	r.renderSpectrogram("input.png", samples)

	// 3. Convert; never fatal
	r.enter(Converting)
	p.log.Infof("Converting: %s -> %s", params.InputPath, params.OutputPath)
	eng := engine.New(network, params.Target)
	converted, err := eng.Convert(ctx, samples)
	if err != nil {
		r.warn(err)
	} else {
		r.res.Converted = true
	}
	samples = converted

	// 4. Pitch shift, only when requested
	if params.Semitones != 0 {
		r.enter(PitchShifting)
		if err := ctx.Err(); err != nil {
			return r.fail(PitchShifting, err)
		}
		shifted, err := p.shifter.Shift(samples, audio.PipelineRate, params.Semitones)
		if err != nil {
			return r.fail(PitchShifting, err)
		}
		p.log.Infof("Shifted pitch by %+d semitones", params.Semitones)
		samples = shifted
	}

	// 5. Encode the output
	r.enter(Encoding)
	if err := ctx.Err(); err != nil {
		return r.fail(Encoding, err)
	}
	if err := p.codec.Encode(params.OutputPath, samples, audio.PipelineRate); err != nil {
		return r.fail(Encoding, err)
	}
	r.res.OutputDuration = audio.Duration(samples, audio.PipelineRate)
	r.res.OutputStats = audio.Stats(samples)
	r.renderSpectrogram("output.png", samples)
	p.log.Infof("Saved: %s", params.OutputPath)

	r.res.Elapsed = time.Since(r.res.StartedAt)
	r.enter(Done)
	return r.res, nil
}

func (r *run) renderSpectrogram(name string, samples audio.Samples) {
	dir := r.p.spectrogramDir
	if dir == "" || len(samples) == 0 {
		return
	}

	x := make([]float64, len(samples))
	for i, v := range samples {
		x[i] = float64(v)
	}

	path := filepath.Join(dir, name)
	if err := spectrum.RenderPNG(path, x, audio.PipelineRate); err != nil {
		r.warn(fmt.Errorf("spectrogram %s: %w", name, err))
		return
	}
	r.res.Spectrograms = append(r.res.Spectrograms, path)
}
