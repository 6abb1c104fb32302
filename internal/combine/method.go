package combine

import (
	"fmt"

	zerrors "zastat/internal/errors"
)

// Method is the statistical procedure the generated scripts run.
type Method string

const (
	Asymptotic     Method = "asymptotic"
	HybridNew      Method = "hybridnew"
	Fit            Method = "fit"
	Impacts        Method = "impacts"
	GenerateToys   Method = "generatetoys"
	SignalStrength Method = "signal_strength"
	PValue         Method = "pvalue"
	GoodnessOfFit  Method = "goodness_of_fit"
	LikelihoodFit  Method = "likelihood_fit"
)

type methodInfo struct {
	group string
	args  string
}

var methods = map[Method]methodInfo{
	Asymptotic:     {"limits", "-M AsymptoticLimits"},
	HybridNew:      {"limits", "-M HybridNew"},
	Fit:            {"fit", "-M FitDiagnostics"},
	Impacts:        {"pulls-impacts", "-M Impacts"},
	GenerateToys:   {"generatetoys", "-M GenerateOnly"},
	SignalStrength: {"signal_strength", "-M MultiDimFit"},
	PValue:         {"pvalue-significance", "-M Significance"},
	GoodnessOfFit:  {"goodness_of_fit", "-M GoodnessOfFit"},
	LikelihoodFit:  {"likelihood_fit", "-M MultiDimFit"},
}

// ParseMethod returns the Method named s.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if _, ok := methods[m]; !ok {
		return "", zerrors.New(zerrors.ConfigurationError, fmt.Sprintf("unknown method %q", s), nil)
	}
	return m, nil
}

// Group is the output directory the method writes under.
func (m Method) Group() string { return methods[m].group }

// CombineArgs is the -M selection passed to combine.
func (m Method) CombineArgs() string { return methods[m].args }

// BuildsCombinations reports whether b-tag, region and production merges run.
func (m Method) BuildsCombinations() bool {
	return m != Fit && m != GenerateToys
}

// MergesFlavors reports whether lepton flavour merges run.
func (m Method) MergesFlavors(mergeCards bool) bool {
	return mergeCards && m != GenerateToys
}

// CombinesProductions reports whether gg-fusion and bb-associated cards are
// merged when both signal strengths float.
func (m Method) CombinesProductions() bool {
	return m == Asymptotic || m == LikelihoodFit
}

// DriverSuffix is appended to the driver script name.
func (m Method) DriverSuffix() string {
	switch m {
	case Fit:
		return "prepost"
	case Impacts:
		return "pulls"
	case Asymptotic, HybridNew:
		return "limits"
	}
	return ""
}
