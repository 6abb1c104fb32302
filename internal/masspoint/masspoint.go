// Package masspoint identifies simulated signal hypotheses by their
// (heavy, light) boson masses.
package masspoint

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	zerrors "zastat/internal/errors"
)

// MassPoint is one signal hypothesis, masses in GeV.
type MassPoint struct {
	Heavy float64 `json:"heavy" toml:"heavy"`
	Light float64 `json:"light" toml:"light"`
}

// String returns "(500, 300)".
func (p MassPoint) String() string {
	return fmt.Sprintf("(%s, %s)", strconv.FormatFloat(p.Heavy, 'f', -1, 64), strconv.FormatFloat(p.Light, 'f', -1, 64))
}

// MassToStr formats a mass with two decimals and 'p' for the point: 500 -> "500p00".
func MassToStr(m float64) string {
	return strings.Replace(strconv.FormatFloat(m, 'f', 2, 64), ".", "p", 1)
}

// Format returns "MH_500p00_MA_300p00", the form used in histogram names.
func (p MassPoint) Format() string {
	return "MH_" + MassToStr(p.Heavy) + "_MA_" + MassToStr(p.Light)
}

// PlainMass formats a mass the way the datacard tree does: at least one
// decimal, no trailing zeros beyond it. 500 -> "500.0", 125.5 -> "125.5".
func PlainMass(m float64) string {
	s := strconv.FormatFloat(m, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Bosons returns the heavy and light boson letters of a decay chain: HToZA -> H, A.
func Bosons(thdm string) (heavy, light string) {
	if thdm == "" {
		return "", ""
	}
	return thdm[:1], thdm[len(thdm)-1:]
}

// DirName returns the per-point output directory: "MH-500.0_MA-300.0" for HToZA.
func (p MassPoint) DirName(thdm string) string {
	h, a := Bosons(thdm)
	return fmt.Sprintf("M%s-%s_M%s-%s", h, PlainMass(p.Heavy), a, PlainMass(p.Light))
}

// Tag returns "MH_500.0_MA_300.0", the mass part of a category label.
func (p MassPoint) Tag(thdm string) string {
	h, a := Bosons(thdm)
	return fmt.Sprintf("M%s_%s_M%s_%s", h, PlainMass(p.Heavy), a, PlainMass(p.Light))
}

// ParseFilename extracts the mass point from a signal sample file name.
// Both "..To2L2B_MH_500p00_MA_300p00_tb_1p50_..root" and the older
// "HToZATo2L2B_MH-500_MA-300.root" forms are understood.
func ParseFilename(name string) (MassPoint, error) {
	base := strings.TrimSuffix(filepath.Base(name), ".root")
	i := strings.LastIndex(base, "To2L2B_")
	if i < 0 {
		return MassPoint{}, parseError(name, "no To2L2B_ marker")
	}
	fields := strings.Split(base[i+len("To2L2B_"):], "_")

	var heavy, light string
	switch {
	case len(fields) >= 4 && !strings.Contains(fields[0], "-"):
		heavy, light = fields[1], fields[3]
	case len(fields) >= 2 && strings.Contains(fields[0], "-") && strings.Contains(fields[1], "-"):
		heavy = fields[0][strings.Index(fields[0], "-")+1:]
		light = fields[1][strings.Index(fields[1], "-")+1:]
	default:
		return MassPoint{}, parseError(name, "unrecognized mass fields")
	}

	mh, err := parseMass(heavy)
	if err != nil {
		return MassPoint{}, parseError(name, err.Error())
	}
	ma, err := parseMass(light)
	if err != nil {
		return MassPoint{}, parseError(name, err.Error())
	}
	return MassPoint{Heavy: mh, Light: ma}, nil
}

// ParseFlag parses "500,300" as given on the command line.
func ParseFlag(s string) (MassPoint, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return MassPoint{}, zerrors.New(zerrors.ParseError, fmt.Sprintf("mass point %q must be heavy,light", s), nil)
	}
	mh, err := parseMass(strings.TrimSpace(parts[0]))
	if err != nil {
		return MassPoint{}, zerrors.New(zerrors.ParseError, fmt.Sprintf("mass point %q", s), err)
	}
	ma, err := parseMass(strings.TrimSpace(parts[1]))
	if err != nil {
		return MassPoint{}, zerrors.New(zerrors.ParseError, fmt.Sprintf("mass point %q", s), err)
	}
	return MassPoint{Heavy: mh, Light: ma}, nil
}

func parseMass(s string) (float64, error) {
	m, err := strconv.ParseFloat(strings.Replace(s, "p", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("bad mass %q", s)
	}
	if m <= 0 {
		return 0, fmt.Errorf("mass %q must be positive", s)
	}
	return m, nil
}

func parseError(name, reason string) error {
	return zerrors.New(zerrors.ParseError, fmt.Sprintf("%s: %s", name, reason), nil)
}
