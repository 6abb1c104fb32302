package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"zastat/internal/category"
	"zastat/internal/combine"
	"zastat/internal/config"
	"zastat/internal/masspoint"
	"zastat/internal/slogutil"
	"zastat/internal/storage"
)

func TestOutputPath(t *testing.T) {
	cfg := &config.Config{Output: "out"}
	tests := []struct {
		in   string
		want string
	}{
		{"zastat.db", filepath.Join("out", "zastat.db")},
		{"metrics/run.prom", filepath.Join("out", "metrics", "run.prom")},
		{"/tmp/zastat.db", "/tmp/zastat.db"},
	}
	for _, tt := range tests {
		if got := outputPath(cfg, tt.in); got != tt.want {
			t.Errorf("outputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseEraRoots(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	logger := slogutil.NewLogger(&logs, slog.LevelWarn)

	roots, err := parseEraRoots([]string{"UL16=" + dir, "UL17=" + dir, "UL18=" + dir}, logger)
	if err != nil {
		t.Fatalf("parseEraRoots: %v", err)
	}
	want := []combine.EraRoot{{Tag: "UL16", Root: dir}, {Tag: "UL17", Root: dir}, {Tag: "UL18", Root: dir}}
	if diff := cmp.Diff(want, roots); diff != "" {
		t.Errorf("parseEraRoots mismatch (-want +got):\n%s", diff)
	}
	if logs.Len() != 0 {
		t.Errorf("full Run 2 logged %q, want nothing", logs.String())
	}

	if _, err := parseEraRoots([]string{"UL17=" + dir}, logger); err != nil {
		t.Fatalf("parseEraRoots(one era): %v", err)
	}
	if !strings.Contains(logs.String(), "Fewer eras than full Run 2") {
		t.Errorf("single era logged %q, want a warning", logs.String())
	}

	bad := []string{"UL16", "=" + dir, "UL16=", "UL16=" + filepath.Join(dir, "missing")}
	for _, b := range bad {
		if _, err := parseEraRoots([]string{b}, logger); err == nil {
			t.Errorf("parseEraRoots(%q) expected error", b)
		}
	}
}

func TestParsePoints(t *testing.T) {
	set, err := parsePoints(nil)
	if err != nil || set != nil {
		t.Errorf("parsePoints(nil) = %v, %v, want nil, nil", set, err)
	}

	set, err = parsePoints([]string{"500,300", "200, 125"})
	if err != nil {
		t.Fatalf("parsePoints: %v", err)
	}
	if set.Len() != 2 {
		t.Errorf("Len() = %d, want 2", set.Len())
	}
	if !set.Contains(masspoint.MassPoint{Heavy: 200, Light: 125}) {
		t.Error("expected (200, 125) in set")
	}

	if _, err := parsePoints([]string{"500"}); err == nil {
		t.Error("parsePoints(500) expected error")
	}
}

func TestPlanPoints_Restrict(t *testing.T) {
	grid := masspoint.DefaultGrid()
	all := grid.Points(string(category.GGFusion), string(category.Resolved), "HToZA")
	if len(all) < 2 {
		t.Fatalf("default grid has %d gg resolved points", len(all))
	}

	keep := masspoint.NewSkipSet(all[0])
	got := planPoints(grid, nil, "HToZA", "", true, false, keep)

	if len(got) != 4 {
		t.Errorf("planPoints keys = %d, want 4", len(got))
	}
	key := combine.PointKey{Production: category.GGFusion, Region: category.Resolved}
	if diff := cmp.Diff([]masspoint.MassPoint{all[0]}, got[key]); diff != "" {
		t.Errorf("gg resolved mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintReport(t *testing.T) {
	r := &combine.Report{
		Written: []string{"a.dat", "b.dat"},
		Failed:  []string{"c.dat"},
		ToFIX: map[category.Production]*masspoint.SkipSet{
			category.GGFusion:     masspoint.NewSkipSet(masspoint.MassPoint{Heavy: 500, Light: 300}),
			category.BBAssociated: masspoint.NewSkipSet(),
		},
	}

	out := captureStdout(t, func() { printReport("HToZA", r) })

	for _, want := range []string{
		"HToZA: 2 cards written, 1 failed, 0 skips",
		"ToFIX gg_fusion: (500, 300)",
		"failed: c.dat",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ToFIX bb_associatedProduction") {
		t.Errorf("empty ToFIX set printed:\n%s", out)
	}
}

func TestFormatLedgerHuman(t *testing.T) {
	resp := &LedgerResponse{
		Run: &storage.Run{ID: "r1", THDM: "HToZA", Mode: "dnn", Method: "asymptotic", Era: "2017", Output: "out"},
		Cards: []*storage.Card{
			{Level: "btag_merged", MassPoint: "(500, 300)", Path: "x.dat", Status: storage.StatusFailed, Error: "[EXTERNAL_TOOL_FAILURE] boom"},
		},
		Skips: []*storage.Skip{{Level: "leaf", MassPoint: "(200, 125)", Reason: "missing"}},
	}
	var buf bytes.Buffer
	formatLedgerHuman(&buf, "r1", resp)
	out := buf.String()

	for _, want := range []string{"Run r1", "HToZA dnn asymptotic era=2017", "failed", "[EXTERNAL_TOOL_FAILURE] boom", "Skipped (1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInit(t *testing.T) {
	old := configDir
	defer func() { configDir = old; configForce = false }()
	configDir = t.TempDir()

	var buf bytes.Buffer
	configInitCmd.SetOut(&buf)
	if err := runConfigInit(configInitCmd, nil); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := config.LoadConfig(configDir); err != nil {
		t.Errorf("LoadConfig after init: %v", err)
	}

	if err := runConfigInit(configInitCmd, nil); err == nil {
		t.Error("second init without --force expected error")
	}
	configForce = true
	if err := runConfigInit(configInitCmd, nil); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestRunCards_FailedMergesExitZero(t *testing.T) {
	oldDir, oldPoints := configDir, cardsPoints
	defer func() { configDir, cardsPoints = oldDir, oldPoints }()

	tmp := t.TempDir()
	tool := filepath.Join(tmp, "combineCards.sh")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\necho broken >&2\nexit 1\n"), 0755); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Output = filepath.Join(tmp, "out")
	cfg.Analysis.Mode = "mbb"
	cfg.Combine.Tool = tool
	configDir = filepath.Join(tmp, "config")
	if err := cfg.Save(configDir); err != nil {
		t.Fatal(err)
	}

	pt := masspoint.MassPoint{Heavy: 200, Light: 125}
	cardsPoints = []string{"200,125"}
	layout := combine.Layout{Output: cfg.Output, Mode: category.MBB, Method: combine.Asymptotic}
	dir := layout.PointDir("HToZA", pt)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, prod := range category.Productions(false, false) {
		for _, reg := range category.LeafRegions {
			for _, btag := range category.LeafBTags {
				for _, f := range category.LeafFlavors(prod, btag, reg) {
					card := combine.LeafCard("HToZA", prod, btag, reg, f, "mbb")
					if err := os.WriteFile(filepath.Join(dir, card), []byte("imax *\n"), 0644); err != nil {
						t.Fatal(err)
					}
				}
			}
		}
	}

	var runErr error
	out := captureStdout(t, func() { runErr = runCards(cardsCmd, nil) })
	if runErr != nil {
		t.Fatalf("runCards with failed merges returned %v, want nil", runErr)
	}
	if !strings.Contains(out, "card combinations failed, see") {
		t.Errorf("output does not list the failures:\n%s", out)
	}

	db, err := storage.Open(filepath.Join(cfg.Output, "zastat.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	ledger := storage.NewLedger(db)
	run, err := ledger.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	cards, err := ledger.ListCards(run.ID)
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	if len(cards) == 0 {
		t.Fatal("no cards recorded")
	}
	for _, c := range cards {
		if c.Status != storage.StatusFailed {
			t.Errorf("card %s status = %q, want %q", c.Path, c.Status, storage.StatusFailed)
		}
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	old := os.Stdout
	os.Stdout = w
	fn()
	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String()
}
