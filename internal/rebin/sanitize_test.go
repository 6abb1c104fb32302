package rebin

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"zastat/internal/slogutil"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name      string
		candidate []float64
		reference []float64
		want      []float64
		report    SanitizeReport
	}{
		{
			name:      "round then dedup",
			candidate: []float64{0.0, 0.151, 0.302, 0.303},
			reference: StepEdges(0, 1, 0.01, 2),
			want:      []float64{0.0, 0.15, 0.30},
			report:    SanitizeReport{Duplicates: 1},
		},
		{
			name:      "snap onto coarser reference",
			candidate: []float64{0.0, 0.151, 0.302, 0.303},
			reference: StepEdges(0, 1, 0.02, 2),
			// 0.15 is equidistant from 0.14 and 0.16; the lower one is found first
			want:   []float64{0.0, 0.14, 0.30},
			report: SanitizeReport{Snapped: 1, Duplicates: 1},
		},
		{
			name:      "one fine bin apart",
			candidate: []float64{0.0, 0.10, 0.12, 0.14, 0.5, 1.0},
			reference: StepEdges(0, 1, 0.02, 2),
			want:      []float64{0.0, 0.10, 0.14, 0.5, 1.0},
			report:    SanitizeReport{Narrow: 1},
		},
		{
			name:      "run of fine bins keeps every other edge",
			candidate: []float64{0.0, 0.02, 0.04, 0.06, 0.08},
			reference: StepEdges(0, 1, 0.02, 2),
			want:      []float64{0.0, 0.04, 0.08},
			report:    SanitizeReport{Narrow: 2},
		},
		{
			name:      "outside reference range",
			candidate: []float64{-0.3, 0.5, 1.7},
			reference: StepEdges(0, 1, 0.1, 2),
			want:      []float64{0.0, 0.5, 1.0},
			report:    SanitizeReport{Snapped: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, report := Sanitize(tt.candidate, tt.reference, DefaultSanitizeOptions(), nil)
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("Sanitize() mismatch (-want +got):\n%s", diff)
			}
			if report != tt.report {
				t.Errorf("report = %+v, want %+v", report, tt.report)
			}
		})
	}
}

func TestSanitize_WarnsOnSnap(t *testing.T) {
	var buf bytes.Buffer
	log := slogutil.NewLogger(&buf, slog.LevelDebug)

	Sanitize([]float64{0.0, 0.33}, StepEdges(0, 1, 0.1, 2), DefaultSanitizeOptions(), log)

	out := buf.String()
	if !strings.Contains(out, "[warn]") || !strings.Contains(out, "nearest=0.3") {
		t.Errorf("expected snap warning, got:\n%s", out)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	refs := [][]float64{
		StepEdges(0, 1, 0.02, 2),
		StepEdges(0, 1, 0.01, 2),
		StepEdges(0, 1, 0.1, 2),
	}
	candidates := [][]float64{
		{0.0, 0.151, 0.302, 0.303},
		{0.0, 0.02, 0.04, 0.06, 0.08, 0.1},
		{0.5, 0.1, 0.52, 0.3, 0.32},
		{0.0, 0.013, 0.027, 0.66, 0.661, 0.999},
		{},
	}

	for _, ref := range refs {
		for _, c := range candidates {
			once, _ := Sanitize(c, ref, DefaultSanitizeOptions(), nil)
			twice, report := Sanitize(once, ref, DefaultSanitizeOptions(), nil)
			if diff := cmp.Diff(once, twice, approx); diff != "" {
				t.Errorf("Sanitize(%v) not idempotent (-once +twice):\n%s", c, diff)
			}
			if report != (SanitizeReport{}) {
				t.Errorf("second pass changed edges: %+v", report)
			}
		}
	}
}

func TestStepEdges(t *testing.T) {
	got := StepEdges(0, 0.1, 0.02, 2)
	want := []float64{0, 0.02, 0.04, 0.06, 0.08, 0.1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StepEdges() mismatch (-want +got):\n%s", diff)
	}
}
