package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.MergeOK("flavor")
	m.MergeOK("flavor")
	m.MergeFailed("btag")
	m.Skipped("region")
	m.EdgesSnapped(3)
	m.EdgesSnapped(0)
	m.IntegralMismatch()
	m.ToolFailure("combineCards.py")

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"merges ok", testutil.ToFloat64(m.merges.WithLabelValues("flavor", "ok")), 2},
		{"merges failed", testutil.ToFloat64(m.merges.WithLabelValues("btag", "failed")), 1},
		{"skipped", testutil.ToFloat64(m.skipped.WithLabelValues("region")), 1},
		{"snapped", testutil.ToFloat64(m.edgesSnapped), 3},
		{"integral", testutil.ToFloat64(m.integralMismatches), 1},
		{"tool", testutil.ToFloat64(m.toolFailures.WithLabelValues("combineCards.py")), 1},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.MergeOK("flavor")
	m.Skipped("btag")
	m.EdgesSnapped(2)
	m.ObserveStage("rebin", time.Now())
	if err := m.WriteTextfile("ignored.prom"); err != nil {
		t.Errorf("WriteTextfile on nil = %v", err)
	}
	if m.Registry() != nil {
		t.Error("nil Metrics returned a registry")
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.MergeOK("region")
	m.ObserveStage("combine", time.Now())

	path := filepath.Join(t.TempDir(), "zastat.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`zastat_merges_total{level="region",result="ok"} 1`,
		"zastat_stage_duration_seconds_count",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}
