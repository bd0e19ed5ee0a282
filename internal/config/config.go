// Package config loads VoiceDNA settings from defaults, an optional TOML
// file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/himanishpuri/VoiceDNA/internal/model"
	"github.com/himanishpuri/VoiceDNA/internal/pitch"
	"github.com/himanishpuri/VoiceDNA/pkg/logger"
)

// Environment variables read by Load.
const (
	EnvConfig  = "VOICEDNA_CONFIG"
	EnvDBPath  = "VOICEDNA_DB_PATH"
	EnvTempDir = "VOICEDNA_TEMP_DIR"
	EnvFFmpeg  = "VOICEDNA_FFMPEG"
	EnvDevice  = "VOICEDNA_DEVICE"
)

// AudioConfig holds codec settings.
type AudioConfig struct {
	FFmpeg   string `toml:"ffmpeg"`
	TempDir  string `toml:"temp_dir"`
	BitDepth int    `toml:"bit_depth"`
}

// PitchConfig holds the transposition settings.
type PitchConfig struct {
	Method string `toml:"method"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level    string `toml:"level"`
	Colorize bool   `toml:"colorize"`
}

// EngineConfig selects the execution target.
type EngineConfig struct {
	Device string `toml:"device"`
}

// Config is the root configuration structure.
type Config struct {
	Audio   AudioConfig   `toml:"audio"`
	Pitch   PitchConfig   `toml:"pitch"`
	History HistoryConfig `toml:"history"`
	Log     LogConfig     `toml:"log"`
	Engine  EngineConfig  `toml:"engine"`
}

func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			FFmpeg:   "ffmpeg",
			TempDir:  os.TempDir(),
			BitDepth: 16,
		},
		Pitch:   PitchConfig{Method: string(pitch.WSOLA)},
		History: HistoryConfig{Enabled: false, DBPath: "voicedna.sqlite3"},
		Log:     LogConfig{Level: "info", Colorize: true},
		Engine:  EngineConfig{Device: "cpu"},
	}
}

// Load builds the configuration: defaults, then the TOML file at path (or
// $VOICEDNA_CONFIG when path is empty), then environment overrides. A
// missing file is only an error when a path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.decode(data); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults without consulting the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(c)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.History.DBPath = v
	}
	if v := os.Getenv(EnvTempDir); v != "" {
		c.Audio.TempDir = v
	}
	if v := os.Getenv(EnvFFmpeg); v != "" {
		c.Audio.FFmpeg = v
	}
	if v := os.Getenv(EnvDevice); v != "" {
		c.Engine.Device = v
	}
}

// Validate rejects values no component accepts.
func (c *Config) Validate() error {
	if c.Audio.BitDepth != 16 && c.Audio.BitDepth != 24 {
		return fmt.Errorf("audio.bit_depth must be 16 or 24, got %d", c.Audio.BitDepth)
	}
	if _, err := pitch.ParseMethod(c.Pitch.Method); err != nil {
		return fmt.Errorf("pitch.method: %w", err)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := model.ParseTarget(c.Engine.Device); err != nil {
		return fmt.Errorf("engine.device: %w", err)
	}
	if c.History.Enabled && c.History.DBPath == "" {
		return errors.New("history.db_path is required when history is enabled")
	}
	return nil
}

// Marshal renders the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
