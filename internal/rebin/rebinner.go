package rebin

import (
	"fmt"
	"log/slog"
	"time"

	"zastat/internal/config"
	zerrors "zastat/internal/errors"
	"zastat/internal/histo"
	"zastat/internal/metrics"
	"zastat/internal/slogutil"
)

// Options are the knobs of a Rebinner.
type Options struct {
	Sanitize             SanitizeOptions
	SignalCutoff         float64
	IntegralTolerance    float64
	IncludeOverflow      bool
	Threshold            float64 // >0 enables threshold collapsing
	LegacyCollapse       bool
	LegacyRelUncertainty bool
	Verbose              bool
}

// OptionsFromConfig maps the [rebin] config section onto Options.
func OptionsFromConfig(cfg config.RebinConfig) Options {
	return Options{
		Sanitize: SanitizeOptions{
			Precision:   cfg.Precision,
			MinBinWidth: cfg.MinBinWidth,
		},
		SignalCutoff:         cfg.SignalCutoff,
		IntegralTolerance:    cfg.IntegralTolerance,
		IncludeOverflow:      cfg.IncludeOverflow,
		Threshold:            cfg.Threshold,
		LegacyCollapse:       cfg.LegacyCollapse,
		LegacyRelUncertainty: cfg.LegacyRelUncertainty,
	}
}

// Rebinner turns fine histograms into datacard binnings.
type Rebinner struct {
	opts    Options
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewRebinner creates a Rebinner. log and m may be nil.
func NewRebinner(opts Options, log *slog.Logger, m *metrics.Metrics) *Rebinner {
	return &Rebinner{opts: opts, log: slogutil.OrDiscard(log), metrics: m}
}

// RebinResult is one rebinned histogram and how it was obtained.
type RebinResult struct {
	Histogram  *histo.Histogram
	Merge      MergeResult
	Sanitize   SanitizeReport
	IntegralOK bool
}

// Rebin resolves the target edges for h, merges its bins onto them and checks
// that the yield is preserved. An integral mismatch is logged, not returned.
func (r *Rebinner) Rebin(name string, h histo.Accessor, binning HistBinning) (RebinResult, error) {
	_, _, reference, _ := histo.ContentsAndEdges(h)
	log := r.log.With("histogram", name)

	edges, report, err := r.targetEdges(binning, reference, log)
	if err != nil {
		return RebinResult{}, fmt.Errorf("%s: %w", name, err)
	}
	r.metrics.EdgesSnapped(report.Snapped)

	mergeOpts := MergeOptions{
		IncludeOverflow:      r.opts.IncludeOverflow,
		LegacyRelUncertainty: r.opts.LegacyRelUncertainty,
		Verbose:              r.opts.Verbose,
		Logger:               log,
	}
	merged, err := Merge(h, edges, mergeOpts)
	if err != nil {
		return RebinResult{}, fmt.Errorf("%s: %w", name, err)
	}

	if r.opts.Threshold > 0 {
		collapsed, err := Collapse(merged.Contents, r.opts.Threshold, merged.Edges, CollapseOptions{Legacy: r.opts.LegacyCollapse})
		if err != nil {
			return RebinResult{}, fmt.Errorf("%s: %w", name, err)
		}
		log.Debug("Collapsed low-yield bins", "before", merged.NBins(), "after", len(collapsed.Contents))
		merged, err = Merge(h, collapsed.Edges, mergeOpts)
		if err != nil {
			return RebinResult{}, fmt.Errorf("%s: %w", name, err)
		}
	}

	res := RebinResult{Merge: merged, Sanitize: report, IntegralOK: true}
	if err := CheckIntegral(h, merged, r.opts.IntegralTolerance, r.opts.IncludeOverflow); err != nil {
		log.Error("Rebinned yield differs from original", "error", err)
		r.metrics.IntegralMismatch()
		res.IntegralOK = false
	}

	out, err := histo.New(name, merged.Edges)
	if err != nil {
		return RebinResult{}, err
	}
	for i := range merged.Contents {
		out.SetBin(i+1, merged.Contents[i], merged.Errors[i])
	}
	out.SetBin(0, merged.Underflow, merged.UnderflowErr)
	out.SetBin(out.NBins()+1, merged.Overflow, merged.OverflowErr)
	res.Histogram = out

	log.Info("Rebinned histogram", "old_bins", h.NBins(), "new_bins", merged.NBins(), "snapped", report.Snapped)
	return res, nil
}

func (r *Rebinner) targetEdges(binning HistBinning, reference []float64, log *slog.Logger) ([]float64, SanitizeReport, error) {
	if len(binning.Edges) > 0 {
		edges, report := Sanitize(binning.Edges, reference, r.opts.Sanitize, log)
		return edges, report, nil
	}
	if binning.SignalOnly == nil || binning.BackgroundOnly == nil {
		return nil, SanitizeReport{}, zerrors.New(zerrors.InvalidBinning,
			"binning needs explicit edges or both background_only and signal_only", nil)
	}

	cutoff := r.opts.SignalCutoff
	if cutoff == 0 {
		cutoff = DefaultSignalCutoff
	}
	hybrid, report, err := HybridizeSanitized(*binning.SignalOnly, *binning.BackgroundOnly, reference, cutoff, r.opts.Sanitize, log)
	if err != nil {
		return nil, report, err
	}
	edges, again := Sanitize(hybrid.Edges, reference, r.opts.Sanitize, log)
	report.Snapped += again.Snapped
	report.Duplicates += again.Duplicates
	report.Narrow += again.Narrow
	return edges, report, nil
}

// RebinStore rebins every histogram of store that spec covers and returns the
// results sorted by name. Histograms without a binning are passed through
// unchanged. A histogram that fails is logged and left out.
func (r *Rebinner) RebinStore(store histo.Store, spec *BinningSpec) []*histo.Histogram {
	start := time.Now()
	defer r.metrics.ObserveStage("rebin", start)

	var out []*histo.Histogram
	for _, name := range store.Names() {
		h, err := store.Get(name)
		if err != nil {
			r.log.Error("Failed to read histogram", "histogram", name, "error", err)
			continue
		}
		binning, ok := spec.For(name)
		if !ok {
			r.log.Debug("No binning, keeping histogram as is", "histogram", name)
			out = append(out, h)
			continue
		}
		res, err := r.Rebin(name, h, binning)
		if err != nil {
			r.log.Error("Failed to rebin histogram", "histogram", name, "error", err)
			continue
		}
		out = append(out, res.Histogram)
	}
	return out
}
