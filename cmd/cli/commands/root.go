package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/VoiceDNA/internal/config"
	"github.com/himanishpuri/VoiceDNA/pkg/logger"
	"github.com/himanishpuri/VoiceDNA/pkg/voicedna"
)

var (
	// Global flags
	configPath string
	dbPath     string
	history    bool
	logLevel   string
	quiet      bool

	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "voicedna",
	Short: "Voice conversion with pre-trained voice models",
	Long: `voicedna - convert a recording into a target voice.

Examples:
  voicedna convert -m voices/alto.vdna --input speech.wav -o out.wav -p 3
  voicedna inspect voices/alto.vdna
  voicedna pack alto.toml voices/alto.vdna
  voicedna --history history --limit 10
  voicedna config`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command. An interrupt cancels the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default $VOICEDNA_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "run history database (default $VOICEDNA_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&history, "history", false, "record runs in the history database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "do not print the banner")

	rootCmd.AddCommand(convertCmd, inspectCmd, packCmd, historyCmd, configCmd)
}

// initConfig layers flags over the loaded configuration and applies the
// logging settings.
func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.History.DBPath = dbPath
	}
	if flags.Changed("history") {
		cfg.History.Enabled = history
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log := logger.GetLogger()
	log.SetLevel(level)
	if !cfg.Log.Colorize {
		log.SetColorize(false)
	}

	globalConfig = cfg
	return nil
}

// GetConfig returns the configuration loaded for this invocation.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	return globalConfig, nil
}

func newConverter(cfg *config.Config, opts ...voicedna.Option) (voicedna.Converter, error) {
	base := []voicedna.Option{
		voicedna.WithSettings(cfg),
		voicedna.WithLogger(logger.GetLogger()),
	}
	return voicedna.NewConverter(append(base, opts...)...)
}
