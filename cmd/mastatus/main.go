// Package main provides the command-line entry point for the company status
// checker.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/config"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/version"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFile    string

	logOutput io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "mastatus",
	Short: "Classify companies as closed or acquired and running",
	Long: `mastatus probes the website of every company in the input files, decides
whether the company is CLOSED, ACQUIRED_AND_RUNNING or UNCLEAR, and looks for
an acquisition announcement through web search when a site is gone.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if logOutput != nil {
			_ = logOutput.Close()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mastatus v%s\n", version.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also append logs to this file")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging configures logrus from the persistent flags
func setupLogging() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logrus.SetOutput(io.MultiWriter(os.Stderr, f))
		logOutput = f
	}
	return nil
}

// loadConfig reads --config, or returns the defaults when no file was given
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		cfg := config.Default()
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
