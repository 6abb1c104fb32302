// Package plot draws rebinned templates over their original binning.
package plot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/vg"

	"zastat/internal/histo"
)

// Options controls a comparison plot.
type Options struct {
	Title  string
	XLabel string

	// Density divides every bin by its width so binnings of different
	// granularity can be compared.
	Density bool
	Width   vg.Length
	Height  vg.Length
}

var (
	originalColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	rebinnedColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// RenderComparison writes a plot of orig and rebinned to path. The format
// follows the extension (.png, .pdf, .svg, ...).
func RenderComparison(orig, rebinned *histo.Histogram, path string, opts Options) error {
	if opts.Width == 0 {
		opts.Width = 15 * vg.Centimeter
	}
	if opts.Height == 0 {
		opts.Height = 10 * vg.Centimeter
	}
	if opts.Title == "" {
		opts.Title = orig.Name
	}

	p := hplot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = "Events"
	if opts.Density {
		p.Y.Label.Text = "Events / bin width"
	}

	for _, entry := range []struct {
		h     *histo.Histogram
		label string
		color color.Color
	}{
		{orig, fmt.Sprintf("original (%d bins)", orig.NBins()), originalColor},
		{rebinned, fmt.Sprintf("rebinned (%d bins)", rebinned.NBins()), rebinnedColor},
	} {
		h := entry.h
		if opts.Density {
			h = Density(h)
		}
		hh := hplot.NewH1D(histo.ToH1D(h), hplot.WithYErrBars(true))
		hh.LineStyle.Color = entry.color
		hh.LineStyle.Width = vg.Points(1.5)
		if hh.YErrs != nil {
			hh.YErrs.LineStyle.Color = entry.color
		}
		p.Add(hh)
		p.Legend.Add(entry.label, hh)
	}
	p.Legend.Top = true
	p.Add(hplot.NewGrid())

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Density returns a copy of h with contents and errors divided by bin width.
func Density(h *histo.Histogram) *histo.Histogram {
	out := h.Clone(h.Name)
	for i := 1; i <= h.NBins(); i++ {
		w := h.BinUpEdge(i) - h.BinLowEdge(i)
		out.SetBin(i, h.BinContent(i)/w, h.BinError(i)/w)
	}
	return out
}
