// Package samples sorts the histogram files produced by the event selection
// and normalizes simulated samples to the integrated luminosity.
package samples

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind is the physics role of a sample file.
type Kind string

const (
	Data   Kind = "data"
	MC     Kind = "mc"
	Signal Kind = "signal"
)

// Background groups of simulated samples.
const (
	GroupDY        = "DY"
	GroupTTbar     = "ttbar"
	GroupSingleTop = "SingleTop"
)

const skeletonPrefix = "__skeleton__"

var (
	dataMarkers   = []string{"MuonEG", "DoubleEG", "EGamma", "DoubleMuon", "SingleMuon"}
	signalMarkers = []string{"AToZH", "HToZA", "GluGlu"}
	ttbarMarkers  = []string{"TTTo2L2Nu", "ttbar", "TTToSemiLept"}
)

// Name returns the sample name of a file: its base name without ".root".
func Name(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".root")
}

// KindOf classifies a sample by name. Anything that is neither collision
// data nor signal is simulated background.
func KindOf(name string) Kind {
	switch {
	case containsAny(name, dataMarkers):
		return Data
	case containsAny(name, signalMarkers):
		return Signal
	}
	return MC
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Discover returns the ROOT files below dir matching pattern, "*.root" when
// empty, sorted. Skeleton files are left out.
func Discover(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.root"
	}
	matches, err := doublestar.FilepathGlob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	files := matches[:0]
	for _, m := range matches {
		if strings.HasPrefix(filepath.Base(m), skeletonPrefix) {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// Sorted holds sample files by role. The Tot* lists are the summed files
// written by Normalizer.Sum for one era.
type Sorted struct {
	Data   []string
	MC     map[string][]string // by background group
	Signal []string

	TotData   []string
	TotMC     []string
	TotSignal []string

	// Unknown lists files matching no rule.
	Unknown []string
}

// Classify sorts files by role for era ("2017", "fullrun2", ...).
func Classify(files []string, era string) *Sorted {
	s := &Sorted{MC: make(map[string][]string)}
	for _, f := range files {
		name := Name(f)
		switch {
		case strings.HasPrefix(name, skeletonPrefix):
			continue
		case strings.Contains(name, "_"+era+"data"):
			s.TotData = append(s.TotData, f)
		case strings.Contains(name, "_"+era+"mc"):
			s.TotMC = append(s.TotMC, f)
		case strings.Contains(name, "_"+era+"signal"):
			s.TotSignal = append(s.TotSignal, f)
		case containsAny(name, signalMarkers):
			s.Signal = append(s.Signal, f)
		case containsAny(name, dataMarkers):
			s.Data = append(s.Data, f)
		case strings.Contains(name, "DYJetsToLL"):
			s.MC[GroupDY] = append(s.MC[GroupDY], f)
		case containsAny(name, ttbarMarkers):
			s.MC[GroupTTbar] = append(s.MC[GroupTTbar], f)
		case strings.Contains(name, "ST"):
			s.MC[GroupSingleTop] = append(s.MC[GroupSingleTop], f)
		default:
			s.Unknown = append(s.Unknown, f)
		}
	}
	return s
}

// Backgrounds returns every simulated background file, grouped in
// DY, ttbar, SingleTop order.
func (s *Sorted) Backgrounds() []string {
	var out []string
	for _, g := range []string{GroupDY, GroupTTbar, GroupSingleTop} {
		out = append(out, s.MC[g]...)
	}
	return out
}
