// Package rebin reshapes fine-binned discriminator templates into the coarser
// binnings used in datacards.
package rebin

import (
	"fmt"
	"log/slog"
	"math"

	zerrors "zastat/internal/errors"
	"zastat/internal/histo"
	"zastat/internal/slogutil"
)

// MergeOptions controls Merge.
type MergeOptions struct {
	// IncludeOverflow makes the last merged bin absorb the overflow bin too.
	IncludeOverflow bool
	// LegacyRelUncertainty reports, per merged bin, the relative error of the
	// last non-empty old bin instead of the aggregate.
	LegacyRelUncertainty bool
	// Verbose traces every absorbed bin at debug level.
	Verbose bool
	Logger  *slog.Logger
}

// MergeResult is the old histogram re-aggregated on new edges.
type MergeResult struct {
	Edges    []float64
	Contents []float64
	Errors   []float64
	// RelUncertainty is in percent; 0 where a merged bin is empty.
	RelUncertainty []float64
	// FinalBins[k] is the old bin holding Edges[k].
	FinalBins []int
	// Underflow and Overflow hold the old content left outside the merged range.
	Underflow, UnderflowErr float64
	Overflow, OverflowErr   float64
}

// NBins returns the number of merged bins.
func (r MergeResult) NBins() int { return len(r.Contents) }

// Merge sums old bins between consecutive new edges. Old bin boundaries come
// from old.FindBin, so an edge sitting exactly on an old boundary opens the
// bin above it. The last merged bin runs to the end of the old axis.
// Contents and errors are summed linearly.
func Merge(old histo.Accessor, newEdges []float64, opts MergeOptions) (MergeResult, error) {
	if err := histo.ValidateEdges(newEdges); err != nil {
		return MergeResult{}, err
	}
	log := slogutil.OrDiscard(opts.Logger)

	oldN := old.NBins()
	nBins := len(newEdges) - 1

	finalBins := make([]int, len(newEdges))
	for k, x := range newEdges {
		finalBins[k] = old.FindBin(x)
	}

	res := MergeResult{
		Edges:          append([]float64(nil), newEdges...),
		Contents:       make([]float64, nBins),
		Errors:         make([]float64, nBins),
		RelUncertainty: make([]float64, nBins),
		FinalBins:      finalBins,
	}

	for i := 1; i <= nBins; i++ {
		lo := finalBins[i-1]
		hi := finalBins[i]
		if i == nBins {
			hi = oldN + 1
			if opts.IncludeOverflow {
				hi = oldN + 2
			}
		}
		if opts.Verbose {
			log.Debug("Merging old bins", "bin", i, "from", lo, "to", hi)
		}

		var content, errSum, sumW2, legacy float64
		for b := lo; b < hi; b++ {
			c, e := old.BinContent(b), old.BinError(b)
			content += c
			errSum += e
			sumW2 += e * e
			if c != 0 {
				legacy = math.Round(e*100/c*1000) / 1000
			}
			if opts.Verbose {
				log.Debug("Absorbed bin", "old_bin", b, "content", content, "error", errSum)
			}
		}

		res.Contents[i-1] = content
		res.Errors[i-1] = errSum
		switch {
		case opts.LegacyRelUncertainty:
			res.RelUncertainty[i-1] = legacy
		case content != 0:
			res.RelUncertainty[i-1] = math.Sqrt(sumW2) / math.Abs(content) * 100
		}
	}

	for b := 0; b < finalBins[0]; b++ {
		res.Underflow += old.BinContent(b)
		res.UnderflowErr += old.BinError(b)
	}
	if !opts.IncludeOverflow {
		res.Overflow = old.BinContent(oldN + 1)
		res.OverflowErr = old.BinError(oldN + 1)
	}
	return res, nil
}

// CheckIntegral compares the merged yield with the old one and returns an
// INTEGRAL_MISMATCH error when they differ by more than tol. Flow bins count
// on both sides when includeOverflow is set.
func CheckIntegral(old histo.Accessor, res MergeResult, tol float64, includeOverflow bool) error {
	want := histo.AccessorIntegral(old, includeOverflow)

	var got float64
	for _, c := range res.Contents {
		got += c
	}
	if includeOverflow {
		got += res.Underflow + res.Overflow
	} else if len(res.FinalBins) > 0 && res.FinalBins[0] == 0 {
		// first edge below the axis pulled the underflow into bin 1
		got -= old.BinContent(0)
	}

	if diff := math.Abs(got - want); diff > tol {
		return zerrors.New(zerrors.IntegralMismatch,
			fmt.Sprintf("merged integral %g differs from original %g by %g", got, want, diff), nil).
			WithDetails(map[string]float64{"merged": got, "original": want, "tolerance": tol})
	}
	return nil
}
