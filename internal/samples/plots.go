package samples

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	zerrors "zastat/internal/errors"
)

// FileEntry is the bookkeeping of one sample in plots.yml.
type FileEntry struct {
	Era             string  `yaml:"era"`
	CrossSection    float64 `yaml:"cross-section"`
	GeneratedEvents float64 `yaml:"generated-events"`
	BranchingRatio  float64 `yaml:"Branching-ratio"`
	Type            string  `yaml:"type"`
}

// PlotsConfig is the plots.yml written next to the selection output.
//
//	configuration:
//	  luminosity:
//	    '2017': 41529.152060112
//	files:
//	  DYJetsToLL_M-50_UL17.root:
//	    era: '2017'
//	    cross-section: 6077.22
//	    generated-events: 102863931.0
type PlotsConfig struct {
	Configuration struct {
		Luminosity map[string]float64 `yaml:"luminosity"`
	} `yaml:"configuration"`
	Files map[string]FileEntry `yaml:"files"`
}

// LoadPlotsConfig reads plots.yml.
func LoadPlotsConfig(path string) (*PlotsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerrors.New(zerrors.ConfigurationError, fmt.Sprintf("read %s", path), err)
	}
	return ParsePlotsConfig(data)
}

// ParsePlotsConfig decodes a plots.yml document.
func ParsePlotsConfig(data []byte) (*PlotsConfig, error) {
	var cfg PlotsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, zerrors.New(zerrors.ParseError, "decode plots.yml", err)
	}
	return &cfg, nil
}

// Luminosity returns the integrated luminosity of era in /pb.
func (c *PlotsConfig) Luminosity(era string) (float64, error) {
	lumi, ok := c.Configuration.Luminosity[era]
	if !ok {
		return 0, zerrors.New(zerrors.ConfigurationError, fmt.Sprintf("no luminosity for era %q", era), nil)
	}
	return lumi, nil
}

// ScaleFactor returns the weight that normalizes the sample in file to its
// era's luminosity: lumi * xsec / generated events, times the branching
// ratio for signal. Collision data is not scaled.
func (c *PlotsConfig) ScaleFactor(file string) (float64, error) {
	base := filepath.Base(file)
	name := Name(base)
	if KindOf(name) == Data {
		return 1, nil
	}

	entry, ok := c.Files[base]
	if !ok {
		return 0, zerrors.New(zerrors.ConfigurationError, fmt.Sprintf("%s not listed in plots.yml", base), nil)
	}
	lumi, err := c.Luminosity(entry.Era)
	if err != nil {
		return 0, err
	}
	if entry.GeneratedEvents <= 0 {
		return 0, zerrors.New(zerrors.ConfigurationError,
			fmt.Sprintf("%s: generated-events must be positive, got %g", base, entry.GeneratedEvents), nil)
	}

	scale := lumi * entry.CrossSection / entry.GeneratedEvents
	if KindOf(name) == Signal {
		if entry.BranchingRatio <= 0 {
			return 0, zerrors.New(zerrors.ConfigurationError, fmt.Sprintf("%s: signal sample without Branching-ratio", base), nil)
		}
		scale *= entry.BranchingRatio
	}
	return scale, nil
}
