package rebin

import (
	"log/slog"
	"math"

	"zastat/internal/slogutil"
)

// widthTolerance is the slack allowed when comparing an edge gap to MinBinWidth.
const widthTolerance = 1e-9

// SanitizeOptions controls Sanitize.
type SanitizeOptions struct {
	// Precision is the number of decimals both edge lists are rounded to.
	Precision int
	// MinBinWidth is the gap that marks an edge as redundant with the previous one.
	MinBinWidth float64
}

// DefaultSanitizeOptions matches the 0.02 granularity of the DNN output histograms.
func DefaultSanitizeOptions() SanitizeOptions {
	return SanitizeOptions{Precision: 2, MinBinWidth: 0.02}
}

// SanitizeReport summarizes what Sanitize changed.
type SanitizeReport struct {
	Snapped    int
	Duplicates int
	Narrow     int
}

// Sanitize aligns candidate edges onto the reference binning. Edges missing from
// the reference are snapped to the nearest reference edge with a warning,
// repeats are dropped, and an edge exactly MinBinWidth above the previously kept
// edge is dropped. Applying it twice gives the same result as applying it once.
func Sanitize(candidate, reference []float64, opts SanitizeOptions, log *slog.Logger) ([]float64, SanitizeReport) {
	log = slogutil.OrDiscard(log)
	var report SanitizeReport

	ref := make([]float64, len(reference))
	known := make(map[float64]bool, len(reference))
	for i, r := range reference {
		ref[i] = roundTo(r, opts.Precision)
		known[ref[i]] = true
	}

	clean := make([]float64, 0, len(candidate))
	seen := make(map[float64]bool, len(candidate))
	for _, c := range candidate {
		x := roundTo(c, opts.Precision)
		if !known[x] && len(ref) > 0 {
			snapped := nearest(ref, x)
			log.Warn("Edge not in reference binning, snapping", "edge", x, "nearest", snapped)
			x = snapped
			report.Snapped++
		}
		if seen[x] {
			report.Duplicates++
			continue
		}
		if len(clean) > 0 && math.Abs(x-clean[len(clean)-1]-opts.MinBinWidth) <= widthTolerance {
			report.Narrow++
			continue
		}
		seen[x] = true
		clean = append(clean, x)
	}
	return clean, report
}

// nearest returns the first element of ref closest to x.
func nearest(ref []float64, x float64) float64 {
	best := ref[0]
	bestDist := math.Abs(ref[0] - x)
	for _, r := range ref[1:] {
		if d := math.Abs(r - x); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best
}

func roundTo(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(x*p) / p
}

// StepEdges returns the edges lo, lo+step, ..., hi rounded to precision decimals.
func StepEdges(lo, hi, step float64, precision int) []float64 {
	n := int(math.Round((hi - lo) / step))
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = roundTo(lo+float64(i)*step, precision)
	}
	return edges
}
