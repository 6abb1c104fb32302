package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zastat/internal/config"
)

func TestLoggerFactory_WritesSubsystemFile(t *testing.T) {
	out := t.TempDir()
	cfg := config.DefaultConfig()

	f := NewLoggerFactory(out, cfg, 0, nil)
	logger := f.CombineLogger()
	logger.Info("merging flavours", "key", "OSSF_MuEl")
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "logs", "combine.log"))
	if err != nil {
		t.Fatalf("combine.log not written: %v", err)
	}
	for _, want := range []string{"combine: merging flavours", "key=OSSF_MuEl"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %q in combine.log, got: %s", want, data)
		}
	}
}

func TestLoggerFactory_TeesToConsole(t *testing.T) {
	var console bytes.Buffer
	out := t.TempDir()

	f := NewLoggerFactory(out, nil, 0, NewHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}))
	defer f.Close()

	logger := f.RebinLogger()
	logger.Info("rebinned")
	logger.Warn("edge snapped")

	if strings.Contains(console.String(), "rebinned") {
		t.Error("console should not receive info records at warn level")
	}
	if !strings.Contains(console.String(), "edge snapped") {
		t.Error("console should receive warn records")
	}
}

func TestLoggerFactory_EffectiveLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "warn"
	cfg.Logging.Rebin = "debug"

	tests := []struct {
		name      string
		cliLevel  slog.Level
		subsystem string
		want      slog.Level
	}{
		{"subsystem override", 0, SubsystemRebin, slog.LevelDebug},
		{"global fallback", 0, SubsystemCombine, slog.LevelWarn},
		{"cli wins", slog.LevelError, SubsystemRebin, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewLoggerFactory("", cfg, tt.cliLevel, nil)
			if got := f.effectiveLevel(tt.subsystem); got != tt.want {
				t.Errorf("effectiveLevel(%q) = %v, want %v", tt.subsystem, got, tt.want)
			}
		})
	}
}

func TestLoggerFactory_NoOutputDiscards(t *testing.T) {
	f := NewLoggerFactory("", nil, 0, nil)
	// Should not panic
	f.SamplesLogger().Info("nothing")
}

func TestLoggerFactory_RotatesSubsystemLog(t *testing.T) {
	out := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Logging.MaxSize = "200B"
	cfg.Logging.MaxBackups = 1

	f := NewLoggerFactory(out, cfg, 0, nil)
	logger := WithRun(f.CombineLogger(), "run-0001")
	for i := 0; i < 10; i++ {
		logger.Info("merged datacards", "card", "HToZATo2L2B_gg_fusion_nb2_resolved_OSSF_mbb.dat")
	}
	f.RebinLogger().Info("rebinned")
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	logs := filepath.Join(out, "logs")
	current, err := os.ReadFile(filepath.Join(logs, "combine.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(current), "combine/run-0001: merged datacards") {
		t.Errorf("combine.log lacks the run prefix: %s", current)
	}
	if _, err := os.Stat(filepath.Join(logs, "combine.log.1")); err != nil {
		t.Errorf("combine.log.1 should exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(logs, "combine.log.2")); !os.IsNotExist(err) {
		t.Error("combine.log.2 should not exist with maxBackups=1")
	}

	rebin, err := os.ReadFile(filepath.Join(logs, "rebin.log"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(rebin), "merged datacards") || !strings.Contains(string(rebin), "rebin: rebinned") {
		t.Errorf("rebin.log should only hold rebin records: %s", rebin)
	}
}
