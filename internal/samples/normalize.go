package samples

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	zerrors "zastat/internal/errors"
	"zastat/internal/histo"
	"zastat/internal/metrics"
	"zastat/internal/slogutil"
)

// DefaultHaddTool merges ROOT files.
const DefaultHaddTool = "hadd"

// Hadder sums ROOT files into out.
type Hadder interface {
	Hadd(ctx context.Context, out string, inputs []string) error
}

// ExecHadder runs hadd.
type ExecHadder struct {
	Tool string
}

// Hadd runs "hadd -f out inputs...".
func (h ExecHadder) Hadd(ctx context.Context, out string, inputs []string) error {
	tool := h.Tool
	if tool == "" {
		tool = DefaultHaddTool
	}
	args := append([]string{"-f", out}, inputs...)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.Join(append([]string{tool}, args...), " ")
		if s := strings.TrimSpace(stderr.String()); s != "" {
			msg += ": " + s
		}
		return zerrors.New(zerrors.ExternalToolFailure, msg, err)
	}
	return nil
}

// Result lists what a normalization pass wrote, by sample kind.
type Result struct {
	Files  map[Kind][]string
	Failed []string
	Summed []string
}

// Normalizer scales simulated samples to luminosity and sums them per kind.
type Normalizer struct {
	cfg     *PlotsConfig
	hadder  Hadder
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewNormalizer creates a normalizer. A nil hadder runs hadd.
func NewNormalizer(cfg *PlotsConfig, hadder Hadder, m *metrics.Metrics, logger *slog.Logger) *Normalizer {
	if hadder == nil {
		hadder = ExecHadder{}
	}
	return &Normalizer{cfg: cfg, hadder: hadder, metrics: m, logger: slogutil.OrDiscard(logger)}
}

// Normalize sorts files by kind. With scale set, every histogram of an MC or
// signal file is multiplied by its ScaleFactor and written to outDir under
// the same name, and data files are copied there unchanged. A file that
// cannot be processed is logged and left out.
func (n *Normalizer) Normalize(ctx context.Context, files []string, outDir string, scale bool) (*Result, error) {
	defer n.metrics.ObserveStage("normalize", time.Now())

	res := &Result{Files: make(map[Kind][]string)}
	if scale {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return nil, err
		}
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		base := filepath.Base(f)
		if strings.HasPrefix(base, skeletonPrefix) {
			continue
		}
		kind := KindOf(Name(base))
		if !scale {
			res.Files[kind] = append(res.Files[kind], f)
			continue
		}

		out := filepath.Join(outDir, base)
		var err error
		if kind == Data {
			err = copyFile(f, out)
		} else {
			err = n.scaleFile(f, out)
		}
		if err != nil {
			n.logger.Error("Cannot normalize sample", "file", f, "error", err)
			res.Failed = append(res.Failed, f)
			continue
		}
		res.Files[kind] = append(res.Files[kind], out)
	}
	return res, nil
}

func (n *Normalizer) scaleFile(in, out string) error {
	factor, err := n.cfg.ScaleFactor(in)
	if err != nil {
		return err
	}
	store, err := histo.OpenROOT(in)
	if err != nil {
		return err
	}
	hists := store.All()
	for _, h := range hists {
		h.Scale(factor)
	}
	if err := histo.WriteROOT(out, hists...); err != nil {
		return err
	}
	n.logger.Debug("Scaled sample", "file", filepath.Base(in), "factor", factor, "histograms", len(hists))
	return nil
}

// SummedName returns summed_[scaled_]<era><kind>_samples.root.
func SummedName(era string, kind Kind, scaled bool) string {
	s := ""
	if scaled {
		s = "scaled_"
	}
	return fmt.Sprintf("summed_%s%s%s_samples.root", s, era, kind)
}

// Sum runs hadd once per kind into sumDir. Failures are logged and the
// other kinds are still summed.
func (n *Normalizer) Sum(ctx context.Context, res *Result, sumDir, era string, scaled bool) error {
	if err := os.MkdirAll(sumDir, 0755); err != nil {
		return err
	}
	for _, kind := range []Kind{Data, MC, Signal} {
		inputs := res.Files[kind]
		if len(inputs) == 0 {
			continue
		}
		out := filepath.Join(sumDir, SummedName(era, kind, scaled))
		n.logger.Info("Summing samples", "kind", kind, "files", len(inputs), "out", out)
		if err := n.hadder.Hadd(ctx, out, inputs); err != nil {
			n.logger.Error("Failed to sum samples", "kind", kind, "error", err)
			n.metrics.ToolFailure(DefaultHaddTool)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		res.Summed = append(res.Summed, out)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
