package rebin

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	zerrors "zastat/internal/errors"
)

// HistBinning is the target binning of one histogram: explicit edges, or a
// background-only and a signal-only binning to splice.
type HistBinning struct {
	Edges          []float64 `yaml:"edges,omitempty"`
	BackgroundOnly *Binning  `yaml:"background_only,omitempty"`
	SignalOnly     *Binning  `yaml:"signal_only,omitempty"`
}

func (b HistBinning) validate() error {
	switch {
	case len(b.Edges) > 0:
		return nil
	case b.BackgroundOnly != nil && b.SignalOnly != nil:
		return nil
	}
	return fmt.Errorf("needs edges or both background_only and signal_only")
}

// BinningSpec maps histogram names, or glob patterns over them, to binnings.
//
//	default:
//	  edges: [0.0, 0.5, 1.0]
//	histograms:
//	  DNNOutput_ZAnode_*:
//	    background_only: {edges: [...], bins: [...]}
//	    signal_only: {edges: [...], bins: [...]}
type BinningSpec struct {
	Default    *HistBinning           `yaml:"default,omitempty"`
	Histograms map[string]HistBinning `yaml:"histograms"`
}

// LoadBinningSpec reads and validates a YAML binning file.
func LoadBinningSpec(p string) (*BinningSpec, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, zerrors.New(zerrors.ConfigurationError, fmt.Sprintf("read binning file %s", p), err)
	}
	return ParseBinningSpec(data)
}

// ParseBinningSpec decodes a YAML binning document.
func ParseBinningSpec(data []byte) (*BinningSpec, error) {
	var spec BinningSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, zerrors.New(zerrors.ParseError, "decode binning file", err)
	}
	if spec.Default != nil {
		if err := spec.Default.validate(); err != nil {
			return nil, zerrors.New(zerrors.ConfigurationError, "default: "+err.Error(), nil)
		}
	}
	for name, b := range spec.Histograms {
		if !doublestar.ValidatePattern(name) {
			return nil, zerrors.New(zerrors.ConfigurationError, fmt.Sprintf("%s: bad pattern", name), nil)
		}
		if err := b.validate(); err != nil {
			return nil, zerrors.New(zerrors.ConfigurationError, fmt.Sprintf("%s: %v", name, err), nil)
		}
	}
	return &spec, nil
}

// For returns the binning of name: an exact entry first, then the
// lexically first matching pattern, then the default.
func (s *BinningSpec) For(name string) (HistBinning, bool) {
	if s == nil {
		return HistBinning{}, false
	}
	if b, ok := s.Histograms[name]; ok {
		return b, true
	}

	var match string
	for pattern := range s.Histograms {
		if ok, _ := doublestar.Match(pattern, name); ok && (match == "" || pattern < match) {
			match = pattern
		}
	}
	if match != "" {
		return s.Histograms[match], true
	}
	if s.Default != nil {
		return *s.Default, true
	}
	return HistBinning{}, false
}
