package rebin

import (
	"fmt"

	zerrors "zastat/internal/errors"
)

// CollapseOptions controls Collapse.
type CollapseOptions struct {
	// Legacy replays the historical reversed-list remap, including its
	// index-0 wrap, instead of the neighbour merge.
	Legacy bool
}

// CollapseResult is the reduced binning produced by Collapse.
type CollapseResult struct {
	Contents []float64
	Edges    []float64
	// BinIndices are the ROOT bin numbers starting at each of Edges.
	BinIndices []int
}

// Collapse merges bins whose content is below threshold, scanning from the
// highest discriminator value down. A low bin joins its higher neighbour; the
// highest bin joins the one below it. It stops when every bin passes or a
// single bin is left.
//
// Deprecated: threshold collapsing is kept to reproduce historical binnings.
// New binnings should come from Hybridize and Sanitize.
func Collapse(contents []float64, threshold float64, edges []float64, opts CollapseOptions) (CollapseResult, error) {
	if len(contents) == 0 {
		return CollapseResult{}, zerrors.New(zerrors.InvalidBinning, "cannot collapse an empty histogram", nil)
	}
	if len(edges) != len(contents)+1 {
		return CollapseResult{}, zerrors.New(zerrors.InvalidBinning,
			fmt.Sprintf("%d edges for %d bins", len(edges), len(contents)), nil)
	}
	if opts.Legacy {
		return collapseLegacy(contents, threshold, edges)
	}

	c := append([]float64(nil), contents...)
	// idx[k] is the original index of the k-th surviving edge
	idx := make([]int, len(edges))
	for i := range idx {
		idx[i] = i
	}

	for len(c) > 1 {
		low := -1
		for i := len(c) - 1; i >= 0; i-- {
			if c[i] < threshold {
				low = i
				break
			}
		}
		if low < 0 {
			break
		}

		if low == len(c)-1 {
			// highest bin: fold into the one below, dropping the edge between them
			c[low-1] += c[low]
			c = append(c[:low], c[low+1:]...)
			idx = append(idx[:low], idx[low+1:]...)
			continue
		}
		c[low+1] += c[low]
		c = append(c[:low], c[low+1:]...)
		idx = append(idx[:low+1], idx[low+2:]...)
	}

	res := CollapseResult{
		Contents:   c,
		Edges:      make([]float64, len(idx)),
		BinIndices: make([]int, len(idx)),
	}
	for k, i := range idx {
		res.Edges[k] = edges[i]
		res.BinIndices[k] = i + 1
	}
	return res, nil
}

// collapseLegacy follows the historical algorithm step by step on the reversed
// contents. When the only low bin is the highest one, its content is dropped
// and the next bin is added to the lowest bin instead, exactly as before.
func collapseLegacy(contents []float64, threshold float64, edges []float64) (CollapseResult, error) {
	numBins := len(contents)
	l := make([]float64, numBins)
	for i, v := range contents {
		l[numBins-1-i] = v
	}
	pos := make([]int, numBins+1)
	for i := range pos {
		pos[i] = i
	}

	dels := 0
	for len(l) > 1 {
		var below []int
		for i, v := range l {
			if v < threshold {
				below = append(below, i)
			}
		}
		if len(below) == 0 {
			break
		}

		cell := below[0]
		switch {
		case len(below) == 1 && cell == 0:
			l[len(l)-1] += l[1]
		case cell == 0:
			cell = below[1]
			l[cell-1] += l[cell]
		default:
			l[cell-1] += l[cell]
		}
		l = append(l[:cell], l[cell+1:]...)

		cell += dels
		dels++
		if cell >= len(pos) {
			return CollapseResult{}, zerrors.New(zerrors.InvalidBinning,
				fmt.Sprintf("legacy collapse remap out of range at position %d", cell), nil)
		}
		pos[cell] = pos[dels-1]
	}

	res := CollapseResult{Contents: make([]float64, len(l))}
	for i, v := range l {
		res.Contents[len(l)-1-i] = v
	}
	seen := make(map[int]bool, len(pos))
	for i := len(pos) - 1; i >= 0; i-- {
		p := numBins - pos[i]
		if seen[p] {
			continue
		}
		seen[p] = true
		res.Edges = append(res.Edges, edges[p])
		res.BinIndices = append(res.BinIndices, p+1)
	}
	return res, nil
}
