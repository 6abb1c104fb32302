package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"zastat/internal/category"
	"zastat/internal/combine"
	"zastat/internal/config"
	"zastat/internal/masspoint"
	"zastat/internal/paths"
	"zastat/internal/samples"
	"zastat/internal/slogutil"
	"zastat/internal/storage"
)

var (
	cardsMode        string
	cardsMethod      string
	cardsEra         string
	cardsTwoPOIs     bool
	cardsMultiSignal bool
	cardsUnblind     bool
	cardsTanBeta     string
	cardsSlurm       bool
	cardsNoMerge     bool
	cardsInput       string
	cardsPoints      []string
	cardsEraRoots    []string
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Merge leaf datacards and write the fit scripts",
	Long: `Walk the combination levels (lepton flavours, b-tag regimes, regions and,
with two POIs, productions) for every mass point and merge the leaf datacards
with combineCards.py. A mass point missing any leaf card is skipped at every
level of its production.

With --era-root the per-year leaf cards are first summed into the full Run 2
tree.

Examples:
  zastat cards --mode dnn --method asymptotic --2pois
  zastat cards --mode mbb --method impacts --point 500,300 --point 200,125
  zastat cards --era fullrun2 --era-root UL16=out16/limits/dnn/1POIs_r --era-root UL17=...`,
	RunE: runCards,
}

func init() {
	f := cardsCmd.Flags()
	f.StringVar(&cardsMode, "mode", "", "Discriminant: dnn, mbb or mllbb (overrides config)")
	f.StringVar(&cardsMethod, "method", "", "Statistical method (overrides config)")
	f.StringVar(&cardsEra, "era", "", "2016, 2017, 2018 or fullrun2 (overrides config)")
	f.BoolVar(&cardsTwoPOIs, "2pois", false, "Float gg-fusion and bb-associated signal strengths separately")
	f.BoolVar(&cardsMultiSignal, "multi-signal", false, "Fit both signals in one card (requires --2pois)")
	f.BoolVar(&cardsUnblind, "unblind", false, "Fit real data")
	f.StringVar(&cardsTanBeta, "tanbeta", "", "tan(beta) sub-directory of the output tree")
	f.BoolVar(&cardsSlurm, "slurm", false, "Write a driver that submits the fits to slurm")
	f.BoolVar(&cardsNoMerge, "no-merge", false, "Only check leaf cards, merge nothing")
	f.StringVar(&cardsInput, "input", "", "Directory of signal shape files to pick available mass points from")
	f.StringArrayVar(&cardsPoints, "point", nil, "Restrict to heavy,light mass points")
	f.StringArrayVar(&cardsEraRoots, "era-root", nil, "TAG=DIR of a single-year card tree to sum into full Run 2")
	rootCmd.AddCommand(cardsCmd)
}

// applyCardsFlags copies every flag the user set onto cfg.Analysis.
func applyCardsFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("mode") {
		cfg.Analysis.Mode = cardsMode
	}
	if changed("method") {
		cfg.Analysis.Method = cardsMethod
	}
	if changed("era") {
		cfg.Analysis.Era = cardsEra
	}
	if changed("2pois") {
		cfg.Analysis.TwoPOIs = cardsTwoPOIs
	}
	if changed("multi-signal") {
		cfg.Analysis.MultiSignal = cardsMultiSignal
	}
	if changed("unblind") {
		cfg.Analysis.Unblind = cardsUnblind
	}
	if changed("tanbeta") {
		cfg.Analysis.TanBeta = cardsTanBeta
	}
	if changed("slurm") {
		cfg.Analysis.SubmitToSlurm = cardsSlurm
	}
	if changed("no-merge") {
		cfg.Analysis.MergeCards = !cardsNoMerge
	}
}

func runCards(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCardsFlags(cmd, cfg)

	env, err := newRunEnv(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()
	logger := env.loggers.CombineLogger()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	a := cfg.Analysis
	mode, err := category.ParseMode(a.Mode)
	if err != nil {
		return err
	}
	method, err := combine.ParseMethod(a.Method)
	if err != nil {
		return err
	}
	layout := combine.Layout{Output: cfg.Output, Mode: mode, Method: method, TwoPOIs: a.TwoPOIs, TanBeta: a.TanBeta}

	grid, err := masspoint.LoadGrid(cfg.Combine.SignalGrid)
	if err != nil {
		return err
	}
	restrict, err := parsePoints(cardsPoints)
	if err != nil {
		return err
	}
	var files []string
	if cardsInput != "" {
		if files, err = samples.Discover(cardsInput, "**/*.root"); err != nil {
			return err
		}
	}

	combiner := combine.NewExecCombiner(cfg.Combine.Tool, logger)
	scripts := combine.NewScriptWriter(combine.ScriptOptions{
		Mass:         cfg.Combine.Mass,
		ExpectSignal: a.ExpectSignal,
		Dataset:      a.Dataset,
		Unblind:      a.Unblind,
	}, logger)

	if len(cardsEraRoots) > 0 {
		roots, err := parseEraRoots(cardsEraRoots, logger)
		if err != nil {
			return err
		}
		eras := combine.NewEraCombiner(combiner, scripts, method, env.metrics, logger)
		n, err := eras.Run(ctx, roots, layout.Root())
		if err != nil {
			return err
		}
		fmt.Printf("Summed %d cards over %d eras\n", n, len(roots))
	}

	ledger, closeLedger, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	pcfg := combine.PlannerConfig{Scripts: scripts, Metrics: env.metrics}
	if ledger != nil {
		pcfg.Ledger = ledger
	}
	planner := combine.NewPlanner(combiner, logger, pcfg)

	var failed int
	for _, thdm := range a.THDM {
		plan := combine.Plan{
			THDM:        thdm,
			Layout:      layout,
			Points:      planPoints(grid, files, thdm, cfg.EraTag(a.Era), a.TwoPOIs, a.MultiSignal, restrict),
			MultiSignal: a.MultiSignal,
			MergeCards:  a.MergeCards,
		}
		if ledger != nil {
			plan.RunID, err = ledger.StartRun(&storage.Run{
				THDM:   thdm,
				Mode:   string(mode),
				Method: string(method),
				Era:    a.Era,
				Output: cfg.Output,
			})
			if err != nil {
				logger.Warn("Cannot start ledger run", "error", err)
			}
		}

		report, err := planner.Run(ctx, plan)
		if err != nil {
			return err
		}
		if ledger != nil && plan.RunID != "" {
			if err := ledger.FinishRun(plan.RunID); err != nil {
				logger.Warn("Cannot finish ledger run", "error", err)
			}
		}
		printReport(thdm, report)
		failed += len(report.Failed)
	}

	if cfg.Combine.AutoMCStatsThreshold > 0 {
		n, err := combine.AddAutoMCStatsTree(layout.Root(), cfg.Combine.AutoMCStatsThreshold, logger)
		if err != nil {
			return err
		}
		logger.Info("Added autoMCStats", "cards", n, "threshold", cfg.Combine.AutoMCStatsThreshold)
	}

	driver, err := combine.WriteDriverScript(cfg.Output, layout, a.Era, a.SubmitToSlurm)
	if err != nil {
		return err
	}
	fmt.Printf("Driver script: %s\n", driver)

	// Failed merges are logged and listed; they leave the exit status at 0.
	if failed > 0 {
		logPath := paths.GetLogPath(cfg.Output, slogutil.SubsystemCombine)
		logger.Warn("Some card combinations failed", "failed", failed, "log", logPath)
		fmt.Printf("%d card combinations failed, see %s\n", failed, logPath)
	}
	return nil
}

func openLedger(cfg *config.Config, logger *slog.Logger) (*storage.Ledger, func(), error) {
	if !cfg.Storage.Enabled {
		return nil, func() {}, nil
	}
	db, err := storage.Open(outputPath(cfg, cfg.Storage.Path), logger)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewLedger(db), func() { _ = db.Close() }, nil
}

// planPoints picks, per production and region, the grid points that have a
// shape file in files (every grid point when files is empty), restricted to
// restrict when given.
func planPoints(grid *masspoint.Grid, files []string, thdm, eraTag string, twoPOIs, multiSignal bool, restrict *masspoint.SkipSet) map[combine.PointKey][]masspoint.MassPoint {
	out := make(map[combine.PointKey][]masspoint.MassPoint)
	for _, prod := range category.Productions(twoPOIs, multiSignal) {
		for _, reg := range category.LeafRegions {
			var pts []masspoint.MassPoint
			if len(files) > 0 {
				pts = grid.Available(files, thdm, string(prod), string(reg), eraTag)
			} else {
				pts = grid.Points(string(prod), string(reg), thdm)
			}
			if restrict != nil {
				pts = keepOnly(pts, restrict)
			}
			out[combine.PointKey{Production: prod, Region: reg}] = pts
		}
	}
	return out
}

func keepOnly(pts []masspoint.MassPoint, keep *masspoint.SkipSet) []masspoint.MassPoint {
	var out []masspoint.MassPoint
	for _, p := range pts {
		if keep.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}

func parsePoints(flags []string) (*masspoint.SkipSet, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	set := masspoint.NewSkipSet()
	for _, s := range flags {
		p, err := masspoint.ParseFlag(s)
		if err != nil {
			return nil, err
		}
		set.Add(p)
	}
	return set, nil
}

func parseEraRoots(flags []string, logger *slog.Logger) ([]combine.EraRoot, error) {
	roots := make([]combine.EraRoot, 0, len(flags))
	for _, f := range flags {
		tag, dir, ok := strings.Cut(f, "=")
		if !ok || tag == "" || dir == "" {
			return nil, fmt.Errorf("--era-root %q must be TAG=DIR", f)
		}
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("--era-root %s: %w", tag, err)
		}
		roots = append(roots, combine.EraRoot{Tag: tag, Root: dir})
	}
	if len(roots) < 3 {
		logger.Warn("Fewer eras than full Run 2", "eras", len(roots), "want", 3)
	}
	return roots, nil
}

func printReport(thdm string, r *combine.Report) {
	fmt.Printf("%s: %d cards written, %d failed, %d skips\n",
		thdm, len(r.Written), len(r.Failed), len(r.Skipped))

	prods := make([]string, 0, len(r.ToFIX))
	for p := range r.ToFIX {
		prods = append(prods, string(p))
	}
	sort.Strings(prods)
	for _, p := range prods {
		set := r.ToFIX[category.Production(p)]
		if set.Len() == 0 {
			continue
		}
		names := make([]string, 0, set.Len())
		for _, pt := range set.Points() {
			names = append(names, pt.String())
		}
		fmt.Printf("  ToFIX %s: %s\n", p, strings.Join(names, " "))
	}
	for _, path := range r.Failed {
		fmt.Printf("  failed: %s\n", path)
	}
}
