package combine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"zastat/internal/metrics"
	"zastat/internal/paths"
	"zastat/internal/slogutil"
)

const autoMCStatsDirective = "* autoMCStats"

// AddAutoMCStats appends "* autoMCStats <threshold>" to a datacard unless
// the card already carries the directive. It reports whether the card changed.
func AddAutoMCStats(path string, threshold int) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), autoMCStatsDirective) {
			return false, nil
		}
	}

	var buf bytes.Buffer
	buf.Write(data)
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		buf.WriteByte('\n')
	}
	fmt.Fprintf(&buf, "%s %d\n", autoMCStatsDirective, threshold)

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return true, os.WriteFile(path, buf.Bytes(), info.Mode().Perm())
}

// AddAutoMCStatsTree adds the directive to every .dat card below root and
// returns how many cards changed.
func AddAutoMCStatsTree(root string, threshold int, logger *slog.Logger) (int, error) {
	logger = slogutil.OrDiscard(logger)
	cards, err := doublestar.FilepathGlob(filepath.Join(root, "**", "*.dat"))
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, card := range cards {
		ok, err := AddAutoMCStats(card, threshold)
		if err != nil {
			logger.Warn("Cannot add autoMCStats", "card", card, "error", err)
			continue
		}
		if ok {
			changed++
		}
	}
	return changed, nil
}

// EraRoot is the layout root of one single-year output tree.
type EraRoot struct {
	Tag  string // e.g. UL17
	Root string
}

// EraCombiner merges the per-year cards of the same category and mass point
// into one full Run 2 card.
type EraCombiner struct {
	combiner Combiner
	scripts  *ScriptWriter
	method   Method
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewEraCombiner creates an era combiner. scripts may be nil.
func NewEraCombiner(c Combiner, scripts *ScriptWriter, method Method, m *metrics.Metrics, logger *slog.Logger) *EraCombiner {
	return &EraCombiner{combiner: c, scripts: scripts, method: method, metrics: m, logger: slogutil.OrDiscard(logger)}
}

// Collect groups the cards of every year by their slash path relative to the
// year's root, symlinks resolved. Channels are named after the era tag and point at absolute
// card paths.
func (e *EraCombiner) Collect(roots []EraRoot) (map[string][]Channel, error) {
	out := make(map[string][]Channel)
	for _, r := range roots {
		cards, err := doublestar.FilepathGlob(filepath.Join(r.Root, "*", "*.dat"))
		if err != nil {
			return nil, err
		}
		for _, card := range cards {
			rel, err := paths.CanonicalizePath(card, r.Root)
			if err != nil {
				return nil, err
			}
			abs, err := filepath.Abs(card)
			if err != nil {
				return nil, err
			}
			out[rel] = append(out[rel], Channel{Name: r.Tag, Card: abs})
		}
	}
	return out, nil
}

// CombineEras merges cards into outRoot/rel. Fewer than len(want) eras is
// logged and combined anyway.
func (e *EraCombiner) CombineEras(ctx context.Context, outRoot, rel string, cards []Channel, want int) error {
	if len(cards) < want {
		e.logger.Info("Not every era has this card, summing what exists",
			"card", rel,
			"eras", len(cards),
		)
	}

	dir := filepath.Join(outRoot, filepath.Dir(filepath.FromSlash(rel)))
	name := filepath.Base(rel)

	out, err := e.combiner.Combine(ctx, dir, cards)
	if err != nil {
		e.metrics.MergeFailed("eras")
		e.metrics.ToolFailure(DefaultTool)
		return err
	}
	if _, err := writeFile(dir, name, out, 0644); err != nil {
		return err
	}
	e.metrics.MergeOK("eras")

	if e.scripts != nil && e.method == Asymptotic {
		if _, err := e.scripts.Asymptotic(dir, strings.TrimSuffix(name, ".dat")); err != nil {
			return err
		}
	}
	return nil
}

// Run merges every card found under roots into outRoot. Failures are logged
// and the remaining cards are still combined. It returns the number of
// cards written.
func (e *EraCombiner) Run(ctx context.Context, roots []EraRoot, outRoot string) (int, error) {
	groups, err := e.Collect(roots)
	if err != nil {
		return 0, err
	}

	rels := make([]string, 0, len(groups))
	for rel := range groups {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	written := 0
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := e.CombineEras(ctx, outRoot, rel, groups[rel], len(roots)); err != nil {
			e.logger.Error("Era combination failed", "card", rel, "error", err)
			continue
		}
		written++
	}
	return written, nil
}
