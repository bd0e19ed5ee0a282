package voicedna

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/himanishpuri/VoiceDNA/internal/model"
	"github.com/himanishpuri/VoiceDNA/internal/pipeline"
	"github.com/himanishpuri/VoiceDNA/pkg/logger"
	"github.com/himanishpuri/VoiceDNA/pkg/models"
)

// ErrHistoryDisabled is returned by History when no storage is configured.
var ErrHistoryDisabled = errors.New("run history is disabled")

// converter is the default implementation of the Converter interface.
type converter struct {
	storage  Storage
	log      Logger
	config   *Config
	pipeline *pipeline.Pipeline
}

func NewConverter(opts ...Option) (Converter, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	// Set default logger if none provided
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	if cfg.BitDepth != 16 && cfg.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth %d", cfg.BitDepth)
	}

	// Storage is only opened when history is on
	stor := cfg.Storage
	if stor == nil && cfg.History {
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	popts := []pipeline.Option{
		pipeline.WithLogger(cfg.Logger),
		pipeline.WithPitchMethod(cfg.PitchMethod),
		pipeline.WithBitDepth(cfg.BitDepth),
		pipeline.WithTempDir(cfg.TempDir),
		pipeline.WithFFmpeg(cfg.FFmpeg),
	}
	if cfg.SpectrogramDir != "" {
		popts = append(popts, pipeline.WithSpectrogramDir(cfg.SpectrogramDir))
	}
	if cfg.Progress != nil {
		progress := cfg.Progress
		popts = append(popts, pipeline.WithObserver(func(s pipeline.State) {
			progress(s.String())
		}))
	}

	return &converter{
		storage:  stor,
		log:      cfg.Logger,
		config:   cfg,
		pipeline: pipeline.New(popts...),
	}, nil
}

// Convert runs one conversion and records it when history is enabled. A
// hard failure returns both the error and a Result in the failed state.
func (c *converter) Convert(ctx context.Context, req Request) (*Result, error) {
	target, err := model.ParseTarget(req.Device)
	if err != nil {
		return nil, err
	}

	pres, runErr := c.pipeline.Run(ctx, pipeline.Params{
		ModelPath:  req.ModelPath,
		IndexPath:  req.IndexPath,
		InputPath:  req.InputPath,
		OutputPath: req.OutputPath,
		Semitones:  req.Semitones,
		Target:     target,
	})
	res := &Result{Result: pres}

	if c.storage != nil {
		id, err := c.storage.RecordRun(toRun(pres))
		if err != nil {
			c.log.Warnf("Failed to record run: %v", err)
		} else {
			res.RunID = id
			c.log.Debugf("Recorded run %s", id)
		}
	}

	return res, runErr
}

// Inspect loads a model artifact and reports what it contains.
func (c *converter) Inspect(modelPath, device string) (*ModelInfo, error) {
	target, err := model.ParseTarget(device)
	if err != nil {
		return nil, err
	}

	artifact, err := model.Load(modelPath, target)
	if err != nil {
		return nil, err
	}

	network := model.ExtractNetwork(artifact)
	var layers []string
	if seq, ok := network.(*model.Sequential); ok {
		layers = seq.Layers()
	}
	return &ModelInfo{
		Path:        artifact.Path,
		Shape:       artifact.Shape.String(),
		Name:        artifact.Meta.Name,
		Version:     artifact.Meta.Version,
		SampleRate:  artifact.Meta.SampleRate,
		F0:          artifact.Meta.F0,
		Info:        artifact.Meta.Info,
		Size:        artifact.Size,
		Network:     network.Describe(),
		Layers:      layers,
		Inference:   model.SupportsInference(network),
		Description: model.Describe(artifact),
	}, nil
}

// History returns the most recent runs first.
func (c *converter) History(limit int) ([]models.Run, error) {
	if c.storage == nil {
		return nil, ErrHistoryDisabled
	}
	return c.storage.ListRuns(limit)
}

// DeleteRun removes a recorded run.
func (c *converter) DeleteRun(id string) error {
	if c.storage == nil {
		return ErrHistoryDisabled
	}
	return c.storage.DeleteRun(id)
}

// CountRuns counts recorded runs, all of them when state is empty.
func (c *converter) CountRuns(state string) (int64, error) {
	if c.storage == nil {
		return 0, ErrHistoryDisabled
	}
	return c.storage.CountRuns(state)
}

// Close releases all resources held by the converter.
func (c *converter) Close() error {
	if c.storage == nil {
		return nil
	}
	return c.storage.Close()
}

func toRun(res *pipeline.Result) models.Run {
	p := res.Params
	run := models.Run{
		ModelPath:  p.ModelPath,
		IndexPath:  p.IndexPath,
		InputPath:  p.InputPath,
		OutputPath: p.OutputPath,
		Semitones:  p.Semitones,
		Device:     p.Target.String(),
		State:      res.State.String(),
		Converted:  res.Converted,
		InputMs:    int(res.InputDuration / time.Millisecond),
		OutputMs:   int(res.OutputDuration / time.Millisecond),
		ElapsedMs:  int(res.Elapsed / time.Millisecond),
		CreatedAt:  res.StartedAt,
	}
	if res.State == pipeline.Failed {
		run.FailedAt = res.FailedAt.String()
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	}
	for _, w := range res.Warnings {
		run.Warnings = append(run.Warnings, w.Error())
	}
	return run
}
