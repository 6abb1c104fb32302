package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"zastat/internal/histo"
)

var (
	plotOriginal string
	plotRebinned string
	plotOut      string
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Draw rebinned histograms over their originals",
	Long: `Draw every histogram present in both files, original and rebinned,
as bin densities into one png per histogram.

Example:
  zastat plot --original results/DY.root --rebinned rebinned/DY.root --out plots`,
	RunE: runPlot,
}

func init() {
	plotCmd.Flags().StringVar(&plotOriginal, "original", "", "ROOT file before rebinning (required)")
	plotCmd.Flags().StringVar(&plotRebinned, "rebinned", "", "ROOT file after rebinning (required)")
	plotCmd.Flags().StringVar(&plotOut, "out", "", "Directory for the png files (default <output>/plots/<file>)")
	_ = plotCmd.MarkFlagRequired("original")
	_ = plotCmd.MarkFlagRequired("rebinned")
	rootCmd.AddCommand(plotCmd)
}

func runPlot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orig, err := histo.OpenROOT(plotOriginal)
	if err != nil {
		return err
	}
	rebinned, err := histo.OpenROOT(plotRebinned)
	if err != nil {
		return err
	}

	out := plotOut
	if out == "" {
		out = filepath.Join(cfg.Output, "plots", baseName(plotRebinned))
	}
	var failed int
	n := plotComparisons(orig, rebinned.All(), out, func(name string, err error) {
		fmt.Printf("  skipped %s: %v\n", name, err)
		failed++
	})
	fmt.Printf("Wrote %d plots into %s\n", n, out)
	if n == 0 && failed > 0 {
		return fmt.Errorf("no histogram could be plotted")
	}
	return nil
}
