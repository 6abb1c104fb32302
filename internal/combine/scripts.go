package combine

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"text/template"

	"zastat/internal/masspoint"
	"zastat/internal/slogutil"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// ScriptOptions are the fit settings shared by every generated script.
type ScriptOptions struct {
	Mass         string
	ExpectSignal int
	Dataset      string // "asimov" or "toys"
	Unblind      bool
}

// ScriptWriter writes the executable fit scripts next to merged datacards.
// Scripts are written once and never run here.
type ScriptWriter struct {
	opts   ScriptOptions
	logger *slog.Logger
}

// NewScriptWriter creates a script writer.
func NewScriptWriter(opts ScriptOptions, logger *slog.Logger) *ScriptWriter {
	if opts.Mass == "" {
		opts.Mass = "125"
	}
	if opts.Dataset == "" {
		opts.Dataset = "asimov"
	}
	return &ScriptWriter{opts: opts, logger: slogutil.OrDiscard(logger)}
}

type scriptData struct {
	Dir       string
	Name      string
	Datacard  string
	Workspace string
	Mass      string
	Method    string
	Options   string

	GG, BB   string
	RGG, RBB string
	POI      string
	Other    string

	Tag string
}

func (w *ScriptWriter) data(dir, prefix string, method Method) (scriptData, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return scriptData{}, err
	}
	return scriptData{
		Dir:       abs,
		Name:      prefix,
		Datacard:  prefix + ".dat",
		Workspace: prefix + "_combine_workspace.root",
		Mass:      w.opts.Mass,
		Method:    method.CombineArgs(),
	}, nil
}

// limitOptions returns the dataset, CLs rule and blinding flags of a limit job.
func (w *ScriptWriter) limitOptions() string {
	opts := []string{"--noFitAsimov"}
	if w.opts.ExpectSignal == 0 {
		opts = append(opts, "--rule CLsplusb")
	}
	if !w.opts.Unblind {
		opts = append(opts, "--run blind")
	}
	return strings.Join(opts, " ")
}

// POIs returns the signal-strength parameters of the multi-signal model.
func POIs(thdm string) []string {
	h, _ := masspoint.Bosons(thdm)
	return []string{"r_gg" + h, "r_bb" + h}
}

func (w *ScriptWriter) setSignals(d *scriptData, thdm string) {
	h, _ := masspoint.Bosons(thdm)
	d.GG, d.BB = "gg"+h, "bb"+h
	d.RGG, d.RBB = "r_"+d.GG, "r_"+d.BB
}

// Asymptotic writes <prefix>_run_asymptotic.sh.
func (w *ScriptWriter) Asymptotic(dir, prefix string) (string, error) {
	d, err := w.data(dir, prefix, Asymptotic)
	if err != nil {
		return "", err
	}
	d.Options = w.limitOptions()
	return w.write(dir, prefix+"_run_asymptotic.sh", "asymptotic.sh.tmpl", d)
}

// MultiSignal writes <prefix>_<poi>_run_asymptotic.sh, setting a limit on
// the other signal strength once with poi floating and once with poi frozen.
func (w *ScriptWriter) MultiSignal(dir, prefix, thdm, poi string) (string, error) {
	d, err := w.data(dir, prefix, Asymptotic)
	if err != nil {
		return "", err
	}
	w.setSignals(&d, thdm)
	switch poi {
	case d.RGG:
		d.Other = d.RBB
	case d.RBB:
		d.Other = d.RGG
	default:
		return "", fmt.Errorf("unknown POI %q for %s", poi, thdm)
	}
	d.POI = poi
	d.Options = w.limitOptions()
	return w.write(dir, prefix+"_"+poi+"_run_asymptotic.sh", "multisignal.sh.tmpl", d)
}

// ImpactsTag names the impacts json of one card.
type ImpactsTag struct {
	Flavors    string
	Production string
	Reco       string
}

// Impacts writes <prefix>_run_impacts.sh.
func (w *ScriptWriter) Impacts(dir, prefix string, tag ImpactsTag) (string, error) {
	d, err := w.data(dir, prefix, Impacts)
	if err != nil {
		return "", err
	}
	if w.opts.Unblind {
		d.Tag = fmt.Sprintf("%s_%s_%s_realdataset", tag.Flavors, tag.Production, tag.Reco)
	} else {
		toys := "-t 8 -s -1"
		if w.opts.Dataset == "asimov" {
			toys = "-t -1"
		}
		d.Options = fmt.Sprintf("%s --expectSignal %d", toys, w.opts.ExpectSignal)
		d.Tag = fmt.Sprintf("%s_%s_%s_expectSignal%d_%sdataset", tag.Flavors, tag.Production, tag.Reco, w.opts.ExpectSignal, w.opts.Dataset)
	}
	return w.write(dir, prefix+"_run_impacts.sh", "impacts.sh.tmpl", d)
}

// LikelihoodScan writes <prefix>_run_likelihood_fit.sh, a 2D scan of both
// production signal strengths.
func (w *ScriptWriter) LikelihoodScan(dir, prefix, thdm string) (string, error) {
	d, err := w.data(dir, prefix, LikelihoodFit)
	if err != nil {
		return "", err
	}
	w.setSignals(&d, thdm)
	return w.write(dir, prefix+"_run_likelihood_fit.sh", "likelihood.sh.tmpl", d)
}

func (w *ScriptWriter) write(dir, name, tmpl string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl, err)
	}
	path, err := writeFile(dir, name, buf.Bytes(), 0755)
	if err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	w.logger.Debug("Wrote fit script", "path", path)
	return path, nil
}
