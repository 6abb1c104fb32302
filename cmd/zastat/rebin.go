package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"zastat/internal/histo"
	"zastat/internal/plot"
	"zastat/internal/rebin"
)

var (
	rebinBinning   string
	rebinOut       string
	rebinPlots     string
	rebinThreshold float64
	rebinOverflow  bool
)

var rebinCmd = &cobra.Command{
	Use:   "rebin [flags] FILE.root...",
	Short: "Rebin histograms onto datacard binnings",
	Long: `Rebin every histogram covered by the binning file and write the result,
one ROOT file per input, under --out. Histograms without a binning are copied.

Examples:
  zastat rebin --binning binnings.yml --out rebinned results/*.root
  zastat rebin --binning binnings.yml --out rebinned --plots plots results/DY.root`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRebin,
}

func init() {
	rebinCmd.Flags().StringVar(&rebinBinning, "binning", "", "YAML binning file (required)")
	rebinCmd.Flags().StringVar(&rebinOut, "out", "", "Directory for rebinned files (default <output>/rebinned)")
	rebinCmd.Flags().StringVar(&rebinPlots, "plots", "", "Directory for original vs rebinned plots")
	rebinCmd.Flags().Float64Var(&rebinThreshold, "threshold", 0, "Collapse bins below this yield (overrides config)")
	rebinCmd.Flags().BoolVar(&rebinOverflow, "include-overflow", false, "Fold flow bins into the edge bins")
	_ = rebinCmd.MarkFlagRequired("binning")
	rootCmd.AddCommand(rebinCmd)
}

func runRebin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Rebin.Threshold = rebinThreshold
	}
	if cmd.Flags().Changed("include-overflow") {
		cfg.Rebin.IncludeOverflow = rebinOverflow
	}

	env, err := newRunEnv(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()
	logger := env.loggers.RebinLogger()

	spec, err := rebin.LoadBinningSpec(rebinBinning)
	if err != nil {
		return err
	}
	out := rebinOut
	if out == "" {
		out = filepath.Join(cfg.Output, "rebinned")
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return err
	}

	r := rebin.NewRebinner(rebin.OptionsFromConfig(cfg.Rebin), logger, env.metrics)
	var failed int
	for _, in := range args {
		store, err := histo.OpenROOT(in)
		if err != nil {
			logger.Error("Cannot read input", "file", in, "error", err)
			failed++
			continue
		}
		hists := r.RebinStore(store, spec)

		dst := filepath.Join(out, filepath.Base(in))
		if err := histo.WriteROOT(dst, hists...); err != nil {
			logger.Error("Cannot write rebinned file", "file", dst, "error", err)
			failed++
			continue
		}
		logger.Info("Wrote rebinned histograms", "file", dst, "histograms", len(hists))

		if rebinPlots != "" {
			plotComparisons(store, hists, filepath.Join(rebinPlots, baseName(in)), func(name string, err error) {
				logger.Warn("Cannot plot histogram", "histogram", name, "error", err)
			})
		}
	}

	fmt.Printf("Rebinned %d of %d files into %s\n", len(args)-failed, len(args), out)
	if failed > 0 {
		return fmt.Errorf("%d input files failed", failed)
	}
	return nil
}

// plotComparisons draws every rebinned histogram over its original.
func plotComparisons(orig histo.Store, rebinned []*histo.Histogram, dir string, onError func(string, error)) int {
	n := 0
	for _, h := range rebinned {
		o, err := orig.Get(h.Name)
		if err != nil {
			onError(h.Name, err)
			continue
		}
		path := filepath.Join(dir, h.Name+".png")
		if err := plot.RenderComparison(o, h, path, plot.Options{Density: true}); err != nil {
			onError(h.Name, err)
			continue
		}
		n++
	}
	return n
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
