package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"zastat/internal/samples"
)

var (
	normalizeInput   string
	normalizeEra     string
	normalizePlots   string
	normalizeNoScale bool
	normalizeNoSum   bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Scale samples to luminosity and sum them per kind",
	Long: `Scale every simulated sample in --input to the era luminosity using the
cross-section and event counts of plots.yml, then sum data, background and
signal files with hadd.

Outputs go below <output>/normalized:
  scaled/   one scaled file per input sample
  summed/   summed_[scaled_]<era><kind>_samples.root

Examples:
  zastat normalize --input results/ --era 2017
  zastat normalize --input results/ --era 2017 --no-scale`,
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeInput, "input", "", "Directory of selection output (required)")
	normalizeCmd.Flags().StringVar(&normalizeEra, "era", "", "Era to normalize (overrides config)")
	normalizeCmd.Flags().StringVar(&normalizePlots, "plots-yml", "", "Sample bookkeeping (default <input>/plots.yml)")
	normalizeCmd.Flags().BoolVar(&normalizeNoScale, "no-scale", false, "Sum the files as they are")
	normalizeCmd.Flags().BoolVar(&normalizeNoSum, "no-sum", false, "Only scale, do not run hadd")
	_ = normalizeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("era") {
		cfg.Analysis.Era = normalizeEra
	}
	env, err := newRunEnv(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()
	logger := env.loggers.SamplesLogger()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	plotsYML := normalizePlots
	if plotsYML == "" {
		plotsYML = filepath.Join(normalizeInput, "plots.yml")
	}
	var pc *samples.PlotsConfig
	scale := !normalizeNoScale
	if scale {
		if pc, err = samples.LoadPlotsConfig(plotsYML); err != nil {
			return err
		}
	}

	files, err := samples.Discover(normalizeInput, "*.root")
	if err != nil {
		return err
	}
	sorted := samples.Classify(files, cfg.Analysis.Era)
	for _, f := range sorted.Unknown {
		logger.Warn("Sample matches no data, background or signal rule", "file", f)
	}

	outDir := filepath.Join(cfg.Output, "normalized")
	n := samples.NewNormalizer(pc, samples.ExecHadder{}, env.metrics, logger)
	res, err := n.Normalize(ctx, files, filepath.Join(outDir, "scaled"), scale)
	if err != nil {
		return err
	}
	fmt.Printf("Normalized %d data, %d mc, %d signal files\n",
		len(res.Files[samples.Data]), len(res.Files[samples.MC]), len(res.Files[samples.Signal]))

	if !normalizeNoSum {
		if err := n.Sum(ctx, res, filepath.Join(outDir, "summed"), cfg.Analysis.Era, scale); err != nil {
			return err
		}
		for _, s := range res.Summed {
			fmt.Printf("  %s\n", s)
		}
	}

	if len(res.Failed) > 0 {
		return fmt.Errorf("%d samples could not be normalized", len(res.Failed))
	}
	return nil
}
