package histo

import (
	"math"

	"go-hep.org/x/hep/hbook"
)

// FromH1D converts an hbook histogram, keeping sum of weights and sum of squared
// weights per bin and in both flow bins.
func FromH1D(name string, h *hbook.H1D) (*Histogram, error) {
	bins := h.Binning.Bins
	edges := make([]float64, len(bins)+1)
	for i, b := range bins {
		edges[i] = b.XMin()
	}
	if len(bins) > 0 {
		edges[len(bins)] = bins[len(bins)-1].XMax()
	}

	out, err := New(name, edges)
	if err != nil {
		return nil, err
	}
	for i, b := range bins {
		out.SetBin(i+1, b.SumW(), b.ErrW())
	}
	uf, of := h.Binning.Underflow(), h.Binning.Overflow()
	out.SetBin(0, uf.SumW(), math.Sqrt(uf.SumW2()))
	out.SetBin(out.NBins()+1, of.SumW(), math.Sqrt(of.SumW2()))
	return out, nil
}

// ToH1D converts h into an hbook histogram with the same edges, contents and errors.
func ToH1D(h *Histogram) *hbook.H1D {
	out := hbook.NewH1DFromEdges(h.Edges())
	if h.Name != "" {
		out.Annotation()["name"] = h.Name
	}

	var total hbook.Dist0D
	set := func(d *hbook.Dist1D, content, err float64) {
		d.Dist = dist0D(content, err)
		total.N += d.Dist.N
		total.SumW += d.Dist.SumW
		total.SumW2 += d.Dist.SumW2
	}

	for i := range out.Binning.Bins {
		set(&out.Binning.Bins[i].Dist, h.BinContent(i+1), h.BinError(i+1))
	}
	set(&out.Binning.Outflows[0], h.BinContent(0), h.BinError(0))
	set(&out.Binning.Outflows[1], h.BinContent(h.NBins()+1), h.BinError(h.NBins()+1))
	out.Binning.Dist.Dist = total
	return out
}

func dist0D(content, err float64) hbook.Dist0D {
	d := hbook.Dist0D{SumW: content, SumW2: err * err}
	if content != 0 || err != 0 {
		d.N = 1
	}
	return d
}
