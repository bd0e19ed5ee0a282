package pipeline

import (
	"github.com/himanishpuri/VoiceDNA/internal/pitch"
)

// Logger is the subset of pkg/logger the pipeline writes to.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Observer is called with every state the run enters, in order.
type Observer func(State)

type Option func(*Pipeline)

func WithLogger(log Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

func WithPitchMethod(m pitch.Method) Option {
	return func(p *Pipeline) {
		p.shifter.Method = m
	}
}

// WithBitDepth sets the output WAV bit depth, 16 or 24.
func WithBitDepth(bits int) Option {
	return func(p *Pipeline) {
		p.codec.BitDepth = bits
	}
}

// WithTempDir sets where intermediate ffmpeg transcodes go.
func WithTempDir(dir string) Option {
	return func(p *Pipeline) {
		p.codec.TempDir = dir
	}
}

// WithFFmpeg sets the ffmpeg binary used for non-WAV input.
func WithFFmpeg(bin string) Option {
	return func(p *Pipeline) {
		p.codec.FFmpeg = bin
	}
}

// WithSpectrogramDir renders input.png and output.png into dir.
func WithSpectrogramDir(dir string) Option {
	return func(p *Pipeline) {
		p.spectrogramDir = dir
	}
}

func WithObserver(obs Observer) Option {
	return func(p *Pipeline) {
		p.observer = obs
	}
}
