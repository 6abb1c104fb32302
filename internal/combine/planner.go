// Package combine plans and runs the merging of per-channel datacards into
// flavour, b-tag, region and production combinations.
package combine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"zastat/internal/category"
	zerrors "zastat/internal/errors"
	"zastat/internal/masspoint"
	"zastat/internal/metrics"
	"zastat/internal/slogutil"
	"zastat/internal/storage"
)

// Level is a combination stage. Each level consumes the channels booked by
// the previous one.
type Level string

const (
	LevelLeaf   Level = "leaf"
	LevelFlavor Level = "flavor_merged"
	LevelBTag   Level = "btag_merged"
	LevelRegion Level = "region_merged"
	LevelProd   Level = "prod_merged"
)

// PointKey selects the mass points of one production and region.
type PointKey struct {
	Production category.Production
	Region     category.Region
}

// Plan describes one planner run.
type Plan struct {
	RunID  string
	THDM   string
	Layout Layout

	// Points lists the mass points to build, per production and region.
	Points map[PointKey][]masspoint.MassPoint
	// Productions defaults to category.Productions(TwoPOIs, MultiSignal).
	Productions []category.Production

	MultiSignal bool
	MergeCards  bool
}

func (p Plan) productions() []category.Production {
	if len(p.Productions) > 0 {
		return p.Productions
	}
	return category.Productions(p.Layout.TwoPOIs, p.MultiSignal)
}

func (p Plan) validate() error {
	if p.THDM == "" {
		return zerrors.New(zerrors.ConfigurationError, "no thdm hypothesis given", nil)
	}
	if _, err := p.Layout.Mode.CategoryLabel(p.THDM, masspoint.MassPoint{Heavy: 1, Light: 1}); err != nil {
		return err
	}
	if _, err := ParseMethod(string(p.Layout.Method)); err != nil {
		return err
	}
	if p.MultiSignal && !p.Layout.TwoPOIs {
		return zerrors.New(zerrors.ConfigurationError, "multi-signal model requires two POIs", nil)
	}
	return nil
}

// Skip is a mass point left out of one level.
type Skip struct {
	Level  Level
	Point  masspoint.MassPoint
	Reason string
}

// Report summarises a run.
type Report struct {
	Written []string
	Failed  []string
	Skipped []Skip
	// ToFIX holds, per production, the mass points with a missing leaf card
	// in either region. RegionToFIX narrows it to the region of the card.
	ToFIX       map[category.Production]*masspoint.SkipSet
	RegionToFIX map[PointKey]*masspoint.SkipSet
}

// Ledger receives every produced card and every skip.
type Ledger interface {
	RecordCard(card *storage.Card) error
	RecordSkip(skip *storage.Skip) error
}

// PlannerConfig holds the optional collaborators of a Planner.
type PlannerConfig struct {
	Source  Source        // defaults to FileSource
	Scripts *ScriptWriter // nil writes no fit scripts
	Ledger  Ledger
	Metrics *metrics.Metrics
}

// Planner walks the combination levels for every production, region and
// mass point. A point is merged at a level only when every input channel
// list is booked and the point is not in the production's ToFIX set.
// Failed merges are logged and the run continues.
type Planner struct {
	combiner Combiner
	source   Source
	scripts  *ScriptWriter
	ledger   Ledger
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewPlanner creates a planner.
func NewPlanner(c Combiner, logger *slog.Logger, cfg PlannerConfig) *Planner {
	src := cfg.Source
	if src == nil {
		src = FileSource{}
	}
	return &Planner{
		combiner: c,
		source:   src,
		scripts:  cfg.Scripts,
		ledger:   cfg.Ledger,
		metrics:  cfg.Metrics,
		logger:   slogutil.OrDiscard(logger),
	}
}

// run is the state of one Planner.Run call.
type run struct {
	*Planner
	plan   Plan
	book   *Book
	report *Report
	logger *slog.Logger
}

// Run executes plan. Only configuration errors and context cancellation
// are returned; everything else ends up in the report and the logs.
func (p *Planner) Run(ctx context.Context, plan Plan) (*Report, error) {
	if err := plan.validate(); err != nil {
		return nil, err
	}
	defer p.metrics.ObserveStage("combine", time.Now())

	r := &run{
		Planner: p,
		plan:    plan,
		book:    NewBook(),
		report: &Report{
			ToFIX:       make(map[category.Production]*masspoint.SkipSet),
			RegionToFIX: make(map[PointKey]*masspoint.SkipSet),
		},
		logger: slogutil.WithRun(p.logger, plan.RunID),
	}

	r.logger.Info("Planning datacard combinations",
		"thdm", plan.THDM,
		"mode", plan.Layout.Mode,
		"method", plan.Layout.Method,
		"root", plan.Layout.Root(),
	)

	for _, prod := range plan.productions() {
		if err := r.production(ctx, prod); err != nil {
			return r.report, err
		}
	}
	if r.combinesProductions() {
		if err := r.productionMerge(ctx); err != nil {
			return r.report, err
		}
	}

	r.logger.Info("Datacard combination done",
		"written", len(r.report.Written),
		"failed", len(r.report.Failed),
		"skipped", len(r.report.Skipped),
	)
	return r.report, nil
}

func (r *run) points(prod category.Production, reg category.Region) []masspoint.MassPoint {
	return r.plan.Points[PointKey{Production: prod, Region: reg}]
}

// allPoints returns the points of both regions, deduplicated in order.
func (r *run) allPoints(prod category.Production) []masspoint.MassPoint {
	set := masspoint.NewSkipSet()
	for _, reg := range category.LeafRegions {
		for _, pt := range r.points(prod, reg) {
			set.Add(pt)
		}
	}
	return set.Points()
}

func (r *run) label(pt masspoint.MassPoint) string {
	label, _ := r.plan.Layout.Mode.CategoryLabel(r.plan.THDM, pt) // mode validated in Run
	return label
}

func (r *run) key(pt masspoint.MassPoint, prod category.Production, btag category.BTag, reg category.Region, k category.FlavorKey) BookKey {
	return BookKey{
		Dir:        r.plan.Layout.PointDir(r.plan.THDM, pt),
		Label:      r.label(pt),
		Production: prod,
		BTag:       btag,
		Region:     reg,
		Flavors:    k,
	}
}

func (r *run) production(ctx context.Context, prod category.Production) error {
	tofix := masspoint.NewSkipSet()
	r.report.ToFIX[prod] = tofix
	regional := make(map[category.Region]*masspoint.SkipSet, len(category.LeafRegions))

	// The leaf pass completes before anything is merged. A point with a
	// missing leaf is skipped in the flavour and b-tag merges of that region
	// and in every merge spanning both regions.
	for _, reg := range category.LeafRegions {
		regional[reg] = masspoint.NewSkipSet()
		r.report.RegionToFIX[PointKey{Production: prod, Region: reg}] = regional[reg]
		for _, btag := range category.LeafBTags {
			for _, pt := range r.points(prod, reg) {
				if err := ctx.Err(); err != nil {
					return err
				}
				if missing := r.missingLeaf(prod, btag, reg, pt); missing != "" {
					err := zerrors.New(zerrors.MissingInputCard, missing, nil)
					regional[reg].Add(pt)
					tofix.Add(pt)
					r.skip(LevelLeaf, pt, err.Error())
				}
			}
		}
	}

	if !r.plan.Layout.Method.MergesFlavors(r.plan.MergeCards) {
		r.logger.Debug("Flavour merging disabled", "production", prod, "method", r.plan.Layout.Method)
		return nil
	}

	signals := category.SignalProcesses(r.plan.THDM, prod, r.plan.Layout.TwoPOIs, r.plan.MultiSignal)
	for _, reg := range category.LeafRegions {
		for _, btag := range category.LeafBTags {
			for _, pt := range r.points(prod, reg) {
				if err := ctx.Err(); err != nil {
					return err
				}
				if regional[reg].Contains(pt) {
					r.skip(LevelFlavor, pt, "mass point in ToFIX for "+string(reg))
					continue
				}
				r.flavorMerge(ctx, prod, btag, reg, pt, signals)
			}
		}
	}

	if !r.plan.Layout.Method.BuildsCombinations() {
		return nil
	}

	for _, reg := range category.LeafRegions {
		for _, pt := range r.points(prod, reg) {
			for _, k := range category.FlavorKeys {
				if err := ctx.Err(); err != nil {
					return err
				}
				r.btagMerge(ctx, prod, reg, pt, k, regional[reg])
			}
		}
	}

	for _, pt := range r.allPoints(prod) {
		for _, k := range category.FlavorKeys {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.regionMerge(ctx, prod, pt, k, tofix)
		}
	}
	return nil
}

// missingLeaf returns the first leaf card of the category that does not
// exist, or "".
func (r *run) missingLeaf(prod category.Production, btag category.BTag, reg category.Region, pt masspoint.MassPoint) string {
	dir := r.plan.Layout.PointDir(r.plan.THDM, pt)
	label := r.label(pt)
	for _, f := range category.LeafFlavors(prod, btag, reg) {
		card := LeafCard(r.plan.THDM, prod, btag, reg, f, label)
		if !r.source.Exists(filepath.Join(dir, card)) {
			return "missing leaf card " + card
		}
	}
	return ""
}

func (r *run) flavorMerge(ctx context.Context, prod category.Production, btag category.BTag, reg category.Region, pt masspoint.MassPoint, signals []string) {
	thdm, mode := r.plan.THDM, r.plan.Layout.Mode
	label := r.label(pt)
	dir := r.plan.Layout.PointDir(thdm, pt)
	flavors := category.LeafFlavors(prod, btag, reg)
	sigs := category.SignalsForBTag(thdm, btag, signals, r.plan.MultiSignal)

	channel := func(i int, f category.Flavor) Channel {
		return Channel{
			Name: LeafChannel(i+1, mode, sigs, btag, reg, f),
			Card: LeafCard(thdm, prod, btag, reg, f, label),
		}
	}

	for i, f := range flavors {
		if f == category.OSSF {
			r.book.Add(r.key(pt, prod, btag, reg, category.KeyOSSF), channel(i, f))
		}
	}

	for _, group := range category.MergeableFlavorGroups {
		if !category.HasAll(flavors, group) {
			continue
		}
		channels := make([]Channel, len(group))
		for i, f := range group {
			channels[i] = channel(i, f)
		}
		if category.Booked(group) {
			r.book.Add(r.key(pt, prod, btag, reg, category.BookKey(group)), channels...)
		}

		flavs := category.JoinFlavors(group)
		prefix := fmt.Sprintf("%sTo2L2B_%s_%s_%s_%s_%s", thdm, prod, btag, reg, flavs, label)
		tag := ImpactsTag{Flavors: flavs, Production: string(prod), Reco: string(btag) + "_" + string(reg)}
		r.merge(ctx, LevelFlavor, pt, dir, prefix, channels, r.defaultScripts(tag))
	}
}

func (r *run) btagMerge(ctx context.Context, prod category.Production, reg category.Region, pt masspoint.MassPoint, k category.FlavorKey, tofix *masspoint.SkipSet) {
	if tofix.Contains(pt) {
		r.skip(LevelBTag, pt, "mass point in ToFIX for "+string(reg))
		return
	}
	nb2 := r.key(pt, prod, category.NB2, reg, k)
	nb3 := r.key(pt, prod, category.NB3, reg, k)
	if !r.book.Has(nb2) || !r.book.Has(nb3) {
		r.skip(LevelBTag, pt, fmt.Sprintf("%s %s channels missing for %s", prod, reg, k))
		return
	}

	channels := Renumber(append(r.book.Get(nb2), r.book.Get(nb3)...))
	reco := string(category.NB2PlusNB3) + "_" + string(reg)
	prefix := r.mergedPrefix(prod, reco, k, pt)
	tag := ImpactsTag{Flavors: string(k), Production: string(prod), Reco: reco}
	r.merge(ctx, LevelBTag, pt, nb2.Dir, prefix, channels, r.defaultScripts(tag))
}

func (r *run) regionMerge(ctx context.Context, prod category.Production, pt masspoint.MassPoint, k category.FlavorKey, tofix *masspoint.SkipSet) {
	if tofix.Contains(pt) {
		r.skip(LevelRegion, pt, "mass point in ToFIX")
		return
	}

	var channels []Channel
	var dir string
	for _, btag := range category.LeafBTags {
		for _, reg := range category.LeafRegions {
			key := r.key(pt, prod, btag, reg, k)
			if !r.book.Has(key) {
				r.skip(LevelRegion, pt, fmt.Sprintf("%s %s %s channels missing for %s", prod, btag, reg, k))
				return
			}
			channels = append(channels, r.book.Get(key)...)
			dir = key.Dir
		}
	}

	reco := string(category.NB2PlusNB3) + "_" + string(category.ResolvedBoosted)
	prefix := r.mergedPrefix(prod, reco, k, pt)
	tag := ImpactsTag{Flavors: string(k), Production: string(prod), Reco: reco}
	r.merge(ctx, LevelRegion, pt, dir, prefix, Renumber(channels), r.defaultScripts(tag))
}

func (r *run) combinesProductions() bool {
	if !r.plan.Layout.TwoPOIs || r.plan.MultiSignal || !r.plan.MergeCards {
		return false
	}
	if !r.plan.Layout.Method.CombinesProductions() {
		return false
	}
	_, gg := r.report.ToFIX[category.GGFusion]
	_, bb := r.report.ToFIX[category.BBAssociated]
	return gg && bb
}

// productionMerge merges gg-fusion and bb-associated channels, first per
// region and then over both regions.
func (r *run) productionMerge(ctx context.Context) error {
	skip := masspoint.NewSkipSet(masspoint.NotInBoth(
		r.points(category.GGFusion, category.Resolved),
		r.points(category.BBAssociated, category.Resolved),
	)...)
	skip.Merge(r.report.ToFIX[category.GGFusion])
	skip.Merge(r.report.ToFIX[category.BBAssociated])

	for _, pt := range r.allPoints(category.GGFusion) {
		for _, k := range category.FlavorKeys {
			if err := ctx.Err(); err != nil {
				return err
			}
			if skip.Contains(pt) {
				r.skip(LevelProd, pt, "mass point not in both productions or in ToFIX")
				continue
			}
			r.productionMergePoint(ctx, pt, k)
		}
	}
	return nil
}

func (r *run) productionMergePoint(ctx context.Context, pt masspoint.MassPoint, k category.FlavorKey) {
	perRegion := make([][]Channel, len(category.LeafRegions))
	var dir string
	for i, reg := range category.LeafRegions {
		for _, btag := range category.LeafBTags {
			for _, prod := range category.SingleProductions {
				key := r.key(pt, prod, btag, reg, k)
				if !r.book.Has(key) {
					r.skip(LevelProd, pt, fmt.Sprintf("%s %s %s channels missing for %s", prod, btag, reg, k))
					return
				}
				perRegion[i] = append(perRegion[i], r.book.Get(key)...)
				dir = key.Dir
			}
		}
	}

	var union []Channel
	for i, reg := range category.LeafRegions {
		channels := Renumber(perRegion[i])
		reco := string(category.NB2PlusNB3) + "_" + string(reg)
		prefix := r.mergedPrefix(category.Combined, reco, k, pt)
		r.merge(ctx, LevelProd, pt, dir, prefix, channels, r.multiSignalScripts)
		union = append(union, channels...)
	}

	reco := string(category.NB2PlusNB3) + "_" + string(category.ResolvedBoosted)
	prefix := r.mergedPrefix(category.Combined, reco, k, pt)
	after := r.multiSignalScripts
	if r.plan.Layout.Method == LikelihoodFit {
		after = func(dir, prefix string) error {
			_, err := r.scripts.LikelihoodScan(dir, prefix, r.plan.THDM)
			return err
		}
	}
	r.merge(ctx, LevelProd, pt, dir, prefix, Renumber(Dedup(union)), after)
}

// mergedPrefix returns {thdm}To2L2B_{prod}_{reco}_{k}_{mode}{suffix}.
func (r *run) mergedPrefix(prod category.Production, reco string, k category.FlavorKey, pt masspoint.MassPoint) string {
	mode := r.plan.Layout.Mode
	suffix := mode.LabelSuffix(r.label(pt))
	return fmt.Sprintf("%sTo2L2B_%s_%s_%s_%s%s", r.plan.THDM, prod, reco, k, mode, suffix)
}

// defaultScripts writes the fit scripts the method needs after a merge.
func (r *run) defaultScripts(tag ImpactsTag) func(dir, prefix string) error {
	return func(dir, prefix string) error {
		switch r.plan.Layout.Method {
		case Asymptotic:
			if r.plan.MultiSignal {
				return r.multiSignalScripts(dir, prefix)
			}
			_, err := r.scripts.Asymptotic(dir, prefix)
			return err
		case Impacts:
			_, err := r.scripts.Impacts(dir, prefix, tag)
			return err
		}
		return nil
	}
}

func (r *run) multiSignalScripts(dir, prefix string) error {
	for _, poi := range POIs(r.plan.THDM) {
		if _, err := r.scripts.MultiSignal(dir, prefix, r.plan.THDM, poi); err != nil {
			return err
		}
	}
	return nil
}

// merge combines channels into dir/prefix.dat and writes the fit scripts.
// It reports whether the card was written.
func (r *run) merge(ctx context.Context, level Level, pt masspoint.MassPoint, dir, prefix string, channels []Channel, after func(dir, prefix string) error) bool {
	card := prefix + ".dat"
	path := filepath.Join(dir, card)

	out, err := r.combiner.Combine(ctx, dir, channels)
	if err == nil {
		_, err = writeFile(dir, card, out, 0644)
	}
	if err != nil {
		r.logger.Error("Datacard combination failed",
			"level", level,
			"mass_point", pt.String(),
			"card", card,
			"error", err,
		)
		r.metrics.MergeFailed(string(level))
		if zerrors.Is(err, zerrors.ExternalToolFailure) {
			r.metrics.ToolFailure(DefaultTool)
		}
		r.report.Failed = append(r.report.Failed, path)
		r.recordCard(level, pt, path, len(channels), err)
		return false
	}

	r.logger.Info("Merged datacards",
		"level", level,
		"mass_point", pt.String(),
		"card", card,
		"channels", len(channels),
	)
	r.metrics.MergeOK(string(level))
	r.report.Written = append(r.report.Written, path)
	r.recordCard(level, pt, path, len(channels), nil)

	if after != nil && r.scripts != nil {
		if err := after(dir, prefix); err != nil {
			r.logger.Error("Cannot write fit script", "card", card, "error", err)
		}
	}
	return true
}

func (r *run) skip(level Level, pt masspoint.MassPoint, reason string) {
	r.logger.Info("Skipping mass point",
		"level", level,
		"mass_point", pt.String(),
		"reason", reason,
	)
	r.metrics.Skipped(string(level))
	r.report.Skipped = append(r.report.Skipped, Skip{Level: level, Point: pt, Reason: reason})

	if r.ledger == nil || r.plan.RunID == "" {
		return
	}
	if err := r.ledger.RecordSkip(&storage.Skip{
		RunID:     r.plan.RunID,
		Level:     string(level),
		MassPoint: pt.String(),
		Reason:    reason,
	}); err != nil {
		r.logger.Warn("Cannot record skip", "error", err)
	}
}

func (r *run) recordCard(level Level, pt masspoint.MassPoint, path string, channels int, cause error) {
	if r.ledger == nil || r.plan.RunID == "" {
		return
	}
	card := &storage.Card{
		RunID:     r.plan.RunID,
		Level:     string(level),
		Path:      path,
		MassPoint: pt.String(),
		Channels:  channels,
		Status:    storage.StatusOK,
	}
	if cause != nil {
		card.Status = storage.StatusFailed
		card.Error = cause.Error()
	}
	if err := r.ledger.RecordCard(card); err != nil {
		r.logger.Warn("Cannot record card", "path", path, "error", err)
	}
}
