// Package histo holds the one-dimensional histograms the rebinning engine reads
// and writes, with ROOT bin numbering: bins 1..N, underflow at 0, overflow at N+1.
package histo

import (
	"fmt"
	"math"
	"sort"

	zerrors "zastat/internal/errors"
)

// Accessor is the read-only view the rebinning engine needs from a histogram.
type Accessor interface {
	NBins() int
	BinContent(i int) float64
	BinError(i int) float64
	BinLowEdge(i int) float64
	BinUpEdge(i int) float64
	FindBin(x float64) int
}

// Histogram is an in-memory 1-D histogram with variable-width bins.
// contents and errors include the underflow (index 0) and overflow (index N+1) bins.
type Histogram struct {
	Name     string
	edges    []float64
	contents []float64
	errors   []float64
}

// New returns an empty histogram with the given edges.
func New(name string, edges []float64) (*Histogram, error) {
	if err := ValidateEdges(edges); err != nil {
		return nil, err
	}
	n := len(edges) - 1
	return &Histogram{
		Name:     name,
		edges:    append([]float64(nil), edges...),
		contents: make([]float64, n+2),
		errors:   make([]float64, n+2),
	}, nil
}

// FromBins builds a histogram from per-bin contents and errors.
// contents and errs hold either the N in-range bins or all N+2 bins including flows.
func FromBins(name string, edges, contents, errs []float64) (*Histogram, error) {
	h, err := New(name, edges)
	if err != nil {
		return nil, err
	}
	n := h.NBins()
	if len(contents) != len(errs) {
		return nil, zerrors.New(zerrors.InvalidHistogram,
			fmt.Sprintf("%s: %d contents but %d errors", name, len(contents), len(errs)), nil)
	}
	switch len(contents) {
	case n:
		copy(h.contents[1:n+1], contents)
		copy(h.errors[1:n+1], errs)
	case n + 2:
		copy(h.contents, contents)
		copy(h.errors, errs)
	default:
		return nil, zerrors.New(zerrors.InvalidHistogram,
			fmt.Sprintf("%s: %d edges need %d or %d bins, got %d", name, len(edges), n, n+2, len(contents)), nil)
	}
	return h, nil
}

// ValidateEdges checks that edges has at least two strictly increasing finite values.
func ValidateEdges(edges []float64) error {
	if len(edges) < 2 {
		return zerrors.New(zerrors.InvalidBinning, fmt.Sprintf("need at least 2 edges, got %d", len(edges)), nil)
	}
	for i, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return zerrors.New(zerrors.InvalidBinning, fmt.Sprintf("edge %d is not finite", i), nil)
		}
		if i > 0 && e <= edges[i-1] {
			return zerrors.New(zerrors.InvalidBinning,
				fmt.Sprintf("edges not strictly increasing at %d: %v <= %v", i, e, edges[i-1]), nil)
		}
	}
	return nil
}

// NBins returns the number of in-range bins.
func (h *Histogram) NBins() int { return len(h.edges) - 1 }

// Edges returns a copy of the N+1 bin edges.
func (h *Histogram) Edges() []float64 { return append([]float64(nil), h.edges...) }

// BinContent returns the content of bin i (0 = underflow, N+1 = overflow).
// Out-of-range indices read as zero.
func (h *Histogram) BinContent(i int) float64 {
	if i < 0 || i >= len(h.contents) {
		return 0
	}
	return h.contents[i]
}

// BinError returns the error of bin i.
func (h *Histogram) BinError(i int) float64 {
	if i < 0 || i >= len(h.errors) {
		return 0
	}
	return h.errors[i]
}

// BinLowEdge returns the lower edge of bin i.
// The underflow bin reports -Inf and bins past the overflow report the last edge.
func (h *Histogram) BinLowEdge(i int) float64 {
	switch {
	case i <= 0:
		return math.Inf(-1)
	case i > h.NBins():
		return h.edges[len(h.edges)-1]
	}
	return h.edges[i-1]
}

// BinUpEdge returns the upper edge of bin i.
func (h *Histogram) BinUpEdge(i int) float64 {
	switch {
	case i < 0:
		return math.Inf(-1)
	case i == 0:
		return h.edges[0]
	case i > h.NBins():
		return math.Inf(1)
	}
	return h.edges[i]
}

// FindBin returns the bin holding x: 0 below the first edge, N+1 at or above
// the last edge, otherwise the i with low(i) <= x < up(i).
func (h *Histogram) FindBin(x float64) int {
	n := h.NBins()
	if x < h.edges[0] {
		return 0
	}
	if x >= h.edges[n] {
		return n + 1
	}
	return sort.Search(n+1, func(k int) bool { return h.edges[k] > x })
}

// SetBin sets content and error of bin i.
func (h *Histogram) SetBin(i int, content, err float64) {
	if i < 0 || i >= len(h.contents) {
		return
	}
	h.contents[i] = content
	h.errors[i] = err
}

// Fill adds weight w at x, growing the bin error in quadrature.
func (h *Histogram) Fill(x, w float64) {
	i := h.FindBin(x)
	h.contents[i] += w
	h.errors[i] = math.Hypot(h.errors[i], w)
}

// Integral sums the in-range contents, plus under/overflow when includeFlows is set.
func (h *Histogram) Integral(includeFlows bool) float64 {
	lo, hi := 1, h.NBins()
	if includeFlows {
		lo, hi = 0, h.NBins()+1
	}
	var sum float64
	for i := lo; i <= hi; i++ {
		sum += h.contents[i]
	}
	return sum
}

// Scale multiplies every content and error by f.
func (h *Histogram) Scale(f float64) {
	for i := range h.contents {
		h.contents[i] *= f
		h.errors[i] *= math.Abs(f)
	}
}

// ZeroNegativeBins clamps negative in-range contents to zero, as the fit engine does on import.
// It returns the number of bins changed.
func (h *Histogram) ZeroNegativeBins() int {
	changed := 0
	for i := 1; i <= h.NBins(); i++ {
		if h.contents[i] < 0 {
			h.contents[i] = 0
			changed++
		}
	}
	return changed
}

// Clone returns a deep copy under a new name.
func (h *Histogram) Clone(name string) *Histogram {
	return &Histogram{
		Name:     name,
		edges:    append([]float64(nil), h.edges...),
		contents: append([]float64(nil), h.contents...),
		errors:   append([]float64(nil), h.errors...),
	}
}

// ContentsAndEdges returns the in-range contents, errors and the N+1 edges of a.
func ContentsAndEdges(a Accessor) (contents, errs, edges []float64, nbins int) {
	nbins = a.NBins()
	contents = make([]float64, nbins)
	errs = make([]float64, nbins)
	edges = make([]float64, 0, nbins+1)
	edges = append(edges, a.BinLowEdge(1))
	for i := 1; i <= nbins; i++ {
		contents[i-1] = a.BinContent(i)
		errs[i-1] = a.BinError(i)
		edges = append(edges, a.BinUpEdge(i))
	}
	return contents, errs, edges, nbins
}

// AccessorIntegral sums bins 1..N of a, and the flow bins when includeFlows is set.
func AccessorIntegral(a Accessor, includeFlows bool) float64 {
	lo, hi := 1, a.NBins()
	if includeFlows {
		lo, hi = 0, a.NBins()+1
	}
	var sum float64
	for i := lo; i <= hi; i++ {
		sum += a.BinContent(i)
	}
	return sum
}
