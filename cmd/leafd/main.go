// cmd/leafd/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/SyedDaiam9101/leaf-classifier/internal/config"
)

const serviceName = "leaf-classifier"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are shared by every subcommand.
type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "leafd",
		Short:        "Luffa leaf disease classifier",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to config file (optional)")
	root.PersistentFlags().String("models-dir", "", "Directory holding <category>/manifest.yaml bundles")
	root.PersistentFlags().String("onnxruntime-lib", "", "Path to the ONNX Runtime shared library")
	root.PersistentFlags().String("disease-info-file", "", "YAML file overriding disease descriptions")
	root.PersistentFlags().Bool("use-mock-inference", false, "Use mock ensemble members instead of ONNX models")
	root.PersistentFlags().Bool("parallel-members", false, "Run ensemble members concurrently")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "Log format (console or json)")

	root.AddCommand(newServeCmd(opts), newPredictCmd(opts), newLabelsCmd(opts))
	return root
}

// loadConfig merges file, env and the command's flags.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from config. Console output goes to
// stderr so that command output on stdout stays clean.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	var w io.Writer = os.Stderr
	if strings.ToLower(cfg.LogFormat) != "json" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}
