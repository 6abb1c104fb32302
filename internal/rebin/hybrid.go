package rebin

import (
	"fmt"
	"log/slog"
	"math"

	zerrors "zastat/internal/errors"
	"zastat/internal/histo"
)

// DefaultSignalCutoff is the discriminator value below which signal-only edges are discarded.
const DefaultSignalCutoff = 0.65

// Binning is an edge list with the per-bin values that came with it.
type Binning struct {
	Edges []float64 `yaml:"edges" json:"edges"`
	Bins  []float64 `yaml:"bins" json:"bins"`
}

// Hybridize splices a background-only binning (used at low discriminator values)
// onto a signal-only binning (used above cutoff). The splice point is the
// background edge closest to the first signal edge above cutoff.
func Hybridize(signalOnly, backgroundOnly Binning, cutoff float64) (Binning, error) {
	idx2 := -1
	for i, e := range signalOnly.Edges {
		if e > cutoff {
			idx2 = i
			break
		}
	}
	if idx2 < 0 {
		return Binning{}, zerrors.New(zerrors.InvalidBinning,
			fmt.Sprintf("no signal-only edge above %g", cutoff), nil)
	}
	if len(backgroundOnly.Edges) == 0 {
		return Binning{}, zerrors.New(zerrors.InvalidBinning, "empty background-only binning", nil)
	}

	var kept []float64
	for _, e := range signalOnly.Edges {
		if e > cutoff {
			kept = append(kept, e)
		}
	}

	first := kept[0]
	idx := 0
	best := math.Abs(backgroundOnly.Edges[0] - first)
	for i, e := range backgroundOnly.Edges[1:] {
		if d := math.Abs(e - first); d < best {
			idx, best = i+1, d
		}
	}

	out := Binning{
		Edges: append(append([]float64(nil), backgroundOnly.Edges[:idx]...), kept...),
	}
	out.Bins = append(out.Bins, backgroundOnly.Bins[:min(idx, len(backgroundOnly.Bins))]...)
	if idx2 < len(signalOnly.Bins) {
		out.Bins = append(out.Bins, signalOnly.Bins[idx2:]...)
	}

	if err := histo.ValidateEdges(out.Edges); err != nil {
		return Binning{}, err
	}
	return out, nil
}

// HybridizeSanitized aligns both binnings to reference before splicing.
func HybridizeSanitized(signalOnly, backgroundOnly Binning, reference []float64, cutoff float64, opts SanitizeOptions, log *slog.Logger) (Binning, SanitizeReport, error) {
	sigEdges, r1 := Sanitize(signalOnly.Edges, reference, opts, log)
	bkgEdges, r2 := Sanitize(backgroundOnly.Edges, reference, opts, log)

	report := SanitizeReport{
		Snapped:    r1.Snapped + r2.Snapped,
		Duplicates: r1.Duplicates + r2.Duplicates,
		Narrow:     r1.Narrow + r2.Narrow,
	}

	out, err := Hybridize(
		Binning{Edges: sigEdges, Bins: signalOnly.Bins},
		Binning{Edges: bkgEdges, Bins: backgroundOnly.Bins},
		cutoff,
	)
	return out, report, err
}
