package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Project-Sylos/Canopy/internal/config"
	"github.com/Project-Sylos/Canopy/internal/logging"
	"github.com/Project-Sylos/Canopy/internal/types"
	"github.com/Project-Sylos/Canopy/sdk"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string
	logLevel   string
	baseURL    string
	timeout    time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file with CANOPY_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "Base URL of the page store (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Deadline for a single command")
}

var rootCmd = &cobra.Command{
	Use:          "canopy",
	Short:        "Paginated page-tree cache and reference page store",
	SilenceUsage: true,
}

// loadConfig resolves the configuration from the persistent flags
func loadConfig() (*types.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if baseURL != "" {
		cfg.Client.BaseURL = baseURL
	}
	return cfg, logging.New(cfg.Log, os.Stderr), nil
}

// newCanopy builds the SDK client used by the read commands
func newCanopy() (*sdk.Canopy, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return sdk.NewWithConfig(cfg, sdk.WithLogger(logger))
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
