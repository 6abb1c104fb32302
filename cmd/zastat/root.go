package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"zastat/internal/config"
	"zastat/internal/metrics"
	"zastat/internal/slogutil"
	"zastat/internal/version"
)

var (
	configDir  string
	outputFlag string
	verbosity  int
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "zastat",
	Short: "zastat - statistical inputs for the H->ZA->llbb search",
	Long: `zastat rebins discriminator templates, normalizes samples and plans how
per-category datacards are merged into flavour, b-tag, region and production
combinations. The fit itself runs through the generated combine scripts.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("zastat version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "Directory holding zastat.toml")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "Output root (overrides config)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase console verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress console logging")
}

// loadConfig reads zastat.toml and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if outputFlag != "" {
		cfg.Output = outputFlag
	}
	return cfg, nil
}

// runEnv is what every pipeline command needs: configuration, per-subsystem
// loggers and the run counters.
type runEnv struct {
	cfg     *config.Config
	loggers *slogutil.LoggerFactory
	metrics *metrics.Metrics
}

func newRunEnv(cfg *config.Config) (*runEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	consoleLevel := slogutil.LevelFromVerbosity(verbosity, quiet)
	var cliLevel slog.Level
	if verbosity > 0 || quiet {
		cliLevel = consoleLevel
	}
	console := slogutil.NewLoggerWithFormat(os.Stderr, consoleLevel, cfg.Logging.Format).Handler()

	return &runEnv{
		cfg:     cfg,
		loggers: slogutil.NewLoggerFactory(cfg.Output, cfg, cliLevel, console),
		metrics: metrics.New(),
	}, nil
}

// Close writes the metrics textfile, when configured, and closes log files.
func (e *runEnv) Close() error {
	var firstErr error
	if e.cfg.Metrics.Textfile != "" {
		if err := e.metrics.WriteTextfile(outputPath(e.cfg, e.cfg.Metrics.Textfile)); err != nil {
			firstErr = fmt.Errorf("write metrics: %w", err)
		}
	}
	if err := e.loggers.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// outputPath resolves p against the output root unless it is absolute.
func outputPath(cfg *config.Config, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cfg.Output, p)
}

// signalContext is cancelled on SIGINT so external tools are stopped.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}
