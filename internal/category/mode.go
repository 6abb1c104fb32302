package category

import (
	"fmt"
	"regexp"
	"strings"

	zerrors "zastat/internal/errors"
	"zastat/internal/masspoint"
)

// Mode is the discriminating variable the fit is run on.
type Mode string

const (
	DNN   Mode = "dnn"
	MBB   Mode = "mbb"
	MLLBB Mode = "mllbb"

	// No longer produced upstream; accepted on the command line only to
	// report a clear error.
	Ellipse     Mode = "ellipse"
	MjjAndMlljj Mode = "mjj_and_mlljj"
	MjjVsMlljj  Mode = "mjj_vs_mlljj"
)

// Modes lists every recognised mode.
var Modes = []Mode{DNN, MBB, MLLBB, Ellipse, MjjAndMlljj, MjjVsMlljj}

// ParseMode returns the Mode named s.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !contains(Modes, m) {
		return "", zerrors.New(zerrors.ConfigurationError, fmt.Sprintf("unknown mode %q", s), nil)
	}
	return m, nil
}

// Deprecated reports whether m can no longer produce datacards.
func (m Mode) Deprecated() bool {
	return m == Ellipse || m == MjjAndMlljj || m == MjjVsMlljj
}

func (m Mode) deprecatedError() error {
	return zerrors.New(zerrors.ConfigurationError,
		fmt.Sprintf("mode %q is deprecated and has no datacard categories", m), nil)
}

// CategoryLabel returns the datacard bin label for a mass point:
// "dnn_MH_500.0_MA_300.0" for the DNN, the mode name otherwise.
func (m Mode) CategoryLabel(thdm string, p masspoint.MassPoint) (string, error) {
	switch m {
	case DNN:
		return string(m) + "_" + p.Tag(thdm), nil
	case MBB, MLLBB:
		return string(m), nil
	}
	if m.Deprecated() {
		return "", m.deprecatedError()
	}
	return "", zerrors.New(zerrors.ConfigurationError, fmt.Sprintf("unknown mode %q", m), nil)
}

// LabelSuffix is what follows the mode in a category label, "" for mbb.
func (m Mode) LabelSuffix(label string) string {
	if i := strings.LastIndex(label, string(m)); i >= 0 {
		return label[i+len(m):]
	}
	return ""
}

// HistogramName returns the name of the nominal template for a leaf channel.
func (m Mode) HistogramName(thdm string, flavor Flavor, btag BTag, reg Region, taggerWP string, p masspoint.MassPoint) (string, error) {
	h, a := masspoint.Bosons(thdm)
	switch m {
	case DNN:
		return fmt.Sprintf("DNNOutput_Z%snode_%s_%s_%s_%s_METCut_M%s_%s_M%s_%s",
			a, flavor, btag, reg, taggerWP, h, masspoint.MassToStr(p.Heavy), a, masspoint.MassToStr(p.Light)), nil
	case MBB, MLLBB:
		return fmt.Sprintf("%s_%s_METCut_NobJetER_bTagWgt_%s_%s_%s", flavor, reg, m, taggerWP, btag), nil
	}
	if m.Deprecated() {
		return "", m.deprecatedError()
	}
	return "", zerrors.New(zerrors.ConfigurationError, fmt.Sprintf("unknown mode %q", m), nil)
}

// HistogramPattern matches a nominal histogram name and its systematic
// variations, "<name>__<syst>up" and "<name>__<syst>down".
func HistogramPattern(name string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(name) + "(__.*(up|down))?$")
}

// SignalProcesses returns the signal process names of a production.
func SignalProcesses(thdm string, prod Production, twoPOIs, multiSignal bool) []string {
	h, _ := masspoint.Bosons(thdm)
	switch {
	case twoPOIs && multiSignal:
		return []string{"gg" + h, "bb" + h}
	case twoPOIs:
		return []string{strings.SplitN(string(prod), "_", 2)[0] + h}
	}
	return []string{"gg" + h + "PLusbb" + h}
}

// SignalsForBTag narrows the multi-signal model to the process each b-tag
// regime is sensitive to: gg fusion in nb2, bb-associated in nb3.
func SignalsForBTag(thdm string, btag BTag, procs []string, multiSignal bool) []string {
	if !multiSignal {
		return procs
	}
	h, _ := masspoint.Bosons(thdm)
	switch btag {
	case NB2:
		return []string{"gg" + h}
	case NB3:
		return []string{"bb" + h}
	}
	return procs
}

// Productions returns the productions datacards are built for.
func Productions(twoPOIs, multiSignal bool) []Production {
	if twoPOIs && !multiSignal {
		return []Production{GGFusion, BBAssociated}
	}
	return []Production{Combined}
}
