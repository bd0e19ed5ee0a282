package voicedna

import (
	"os"

	"github.com/himanishpuri/VoiceDNA/internal/config"
	"github.com/himanishpuri/VoiceDNA/internal/pitch"
)

type Config struct {
	TempDir        string
	FFmpeg         string
	BitDepth       int
	PitchMethod    pitch.Method
	SpectrogramDir string
	History        bool
	DBPath         string
	Logger         Logger
	Storage        Storage
	Progress       func(state string)
}

type Option func(*Config)

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithFFmpeg(bin string) Option {
	return func(c *Config) {
		c.FFmpeg = bin
	}
}

func WithBitDepth(bits int) Option {
	return func(c *Config) {
		c.BitDepth = bits
	}
}

func WithPitchMethod(m pitch.Method) Option {
	return func(c *Config) {
		c.PitchMethod = m
	}
}

// WithSpectrogramDir renders input and output spectrograms of every run
// into dir.
func WithSpectrogramDir(dir string) Option {
	return func(c *Config) {
		c.SpectrogramDir = dir
	}
}

// WithHistory records every run in the SQLite database at dbPath. An empty
// dbPath uses $VOICEDNA_DB_PATH, then voicedna.sqlite3.
func WithHistory(dbPath string) Option {
	return func(c *Config) {
		c.History = true
		if dbPath != "" {
			c.DBPath = dbPath
		}
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithStorage records runs in storage instead of the default SQLite file.
func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithSettings applies a loaded configuration file.
func WithSettings(s *config.Config) Option {
	return func(c *Config) {
		c.TempDir = s.Audio.TempDir
		c.FFmpeg = s.Audio.FFmpeg
		c.BitDepth = s.Audio.BitDepth
		c.PitchMethod = pitch.Method(s.Pitch.Method)
		c.History = s.History.Enabled
		c.DBPath = s.History.DBPath
	}
}

func defaultConfig() *Config {
	return &Config{
		TempDir:     os.TempDir(),
		FFmpeg:      "ffmpeg",
		BitDepth:    16,
		PitchMethod: pitch.WSOLA,
	}
}

// WithProgress calls fn with the name of every pipeline state a run enters.
func WithProgress(fn func(state string)) Option {
	return func(c *Config) {
		c.Progress = fn
	}
}
