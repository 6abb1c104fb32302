package slogutil

import (
	"io"
	"log/slog"

	"zastat/internal/config"
)

// Subsystems that get their own log file under <output>/logs.
const (
	SubsystemRebin   = "rebin"
	SubsystemCombine = "combine"
	SubsystemSamples = "samples"
)

// LoggerFactory creates appropriately configured loggers for different subsystems.
// It respects the configuration precedence: CLI flags > subsystem config > global config.
type LoggerFactory struct {
	output   string
	config   *config.Config
	cliLevel slog.Level // from CLI flags (0 means not set)
	console  slog.Handler
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory.
// cliLevel should be 0 if no CLI override was specified. console, when non-nil,
// receives every record in addition to the subsystem log file.
func NewLoggerFactory(output string, cfg *config.Config, cliLevel slog.Level, console slog.Handler) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{
		output:   output,
		config:   cfg,
		cliLevel: cliLevel,
		console:  console,
		closers:  make([]io.Closer, 0),
	}
}

// Logger returns the logger for a subsystem, writing to <output>/logs/<subsystem>.log.
// Failures to open the file degrade to console-only (or discard) logging.
func (f *LoggerFactory) Logger(subsystem string) *slog.Logger {
	fileHandler := f.fileHandler(subsystem)

	var logger *slog.Logger
	switch {
	case fileHandler != nil && f.console != nil:
		logger = NewTeeLogger(f.console, fileHandler)
	case fileHandler != nil:
		logger = slog.New(fileHandler)
	case f.console != nil:
		logger = slog.New(f.console)
	default:
		return NewDiscardLogger()
	}
	return logger.With(KeySubsystem, subsystem)
}

// RebinLogger is Logger(SubsystemRebin).
func (f *LoggerFactory) RebinLogger() *slog.Logger { return f.Logger(SubsystemRebin) }

// CombineLogger is Logger(SubsystemCombine).
func (f *LoggerFactory) CombineLogger() *slog.Logger { return f.Logger(SubsystemCombine) }

// SamplesLogger is Logger(SubsystemSamples).
func (f *LoggerFactory) SamplesLogger() *slog.Logger { return f.Logger(SubsystemSamples) }

func (f *LoggerFactory) fileHandler(subsystem string) slog.Handler {
	if f.output == "" {
		return nil
	}
	w, err := OpenSubsystemLog(f.output, subsystem, f.config.Logging)
	if err != nil {
		return nil
	}
	f.closers = append(f.closers, w)

	return NewLoggerWithFormat(w, f.effectiveLevel(subsystem), f.config.Logging.Format).Handler()
}

// effectiveLevel returns the effective log level for a subsystem.
// Precedence: CLI flag > subsystem config > global config > default (info)
func (f *LoggerFactory) effectiveLevel(subsystem string) slog.Level {
	if f.cliLevel != 0 {
		return f.cliLevel
	}

	var subsystemLevel string
	switch subsystem {
	case SubsystemRebin:
		subsystemLevel = f.config.Logging.Rebin
	case SubsystemCombine:
		subsystemLevel = f.config.Logging.Combine
	case SubsystemSamples:
		subsystemLevel = f.config.Logging.Samples
	}

	if subsystemLevel != "" {
		return LevelFromString(subsystemLevel)
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
