package masspoint

import (
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	zerrors "zastat/internal/errors"
)

// Production and region names used as grid keys.
const (
	GGFusion     = "gg_fusion"
	BBAssociated = "bb_associatedProduction"
	Combined     = "gg_fusion_bb_associatedProduction"
)

//go:embed default_grid.toml
var defaultGrid []byte

// Grid lists the simulated mass points per production, region and decay chain.
type Grid struct {
	points map[string]map[string]map[string][]MassPoint
}

type gridFile map[string]map[string]map[string][][]float64

// DefaultGrid returns the built-in grid of simulated signal samples.
func DefaultGrid() *Grid {
	g, err := ParseGrid(defaultGrid)
	if err != nil {
		panic(fmt.Sprintf("masspoint: built-in grid: %v", err))
	}
	return g
}

// LoadGrid reads a TOML grid file. An empty path returns the built-in grid.
//
//	[gg_fusion.resolved]
//	HToZA = [[500.0, 300.0], [200.0, 125.0]]
func LoadGrid(path string) (*Grid, error) {
	if path == "" {
		return DefaultGrid(), nil
	}
	var raw gridFile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, zerrors.New(zerrors.ConfigurationError, fmt.Sprintf("read signal grid %s", path), err)
	}
	return fromRaw(raw)
}

// ParseGrid decodes a TOML grid document.
func ParseGrid(data []byte) (*Grid, error) {
	var raw gridFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, zerrors.New(zerrors.ParseError, "decode signal grid", err)
	}
	return fromRaw(raw)
}

func fromRaw(raw gridFile) (*Grid, error) {
	g := &Grid{points: make(map[string]map[string]map[string][]MassPoint)}
	for prod, regions := range raw {
		for reg, chains := range regions {
			for thdm, pairs := range chains {
				for _, pair := range pairs {
					if len(pair) != 2 {
						return nil, zerrors.New(zerrors.ConfigurationError,
							fmt.Sprintf("%s.%s.%s: point %v must be [heavy, light]", prod, reg, thdm, pair), nil)
					}
					g.add(prod, reg, thdm, MassPoint{Heavy: pair[0], Light: pair[1]})
				}
			}
		}
	}
	return g, nil
}

func (g *Grid) add(prod, reg, thdm string, p MassPoint) {
	if g.points[prod] == nil {
		g.points[prod] = make(map[string]map[string][]MassPoint)
	}
	if g.points[prod][reg] == nil {
		g.points[prod][reg] = make(map[string][]MassPoint)
	}
	g.points[prod][reg][thdm] = append(g.points[prod][reg][thdm], p)
}

// Points returns the grid points of one production, region and decay chain.
// The combined production has the union of both, gg fusion first.
func (g *Grid) Points(prod, reg, thdm string) []MassPoint {
	if prod == Combined {
		return NewSkipSet(append(g.Points(GGFusion, reg, thdm), g.Points(BBAssociated, reg, thdm)...)...).Points()
	}
	return append([]MassPoint(nil), g.points[prod][reg][thdm]...)
}

// Contains reports whether p is simulated for prod, reg and thdm. For the
// combined production a point of either single production counts.
func (g *Grid) Contains(prod, reg, thdm string, p MassPoint) bool {
	if prod == Combined {
		return g.Contains(GGFusion, reg, thdm, p) || g.Contains(BBAssociated, reg, thdm, p)
	}
	for _, q := range g.points[prod][reg][thdm] {
		if q == p {
			return true
		}
	}
	return false
}

// filePrefix is the sample-name prefix that marks a production.
func filePrefix(prod string) string {
	if prod == GGFusion {
		return "GluGluTo"
	}
	return ""
}

// Available returns, in file order, the grid points of prod and reg that have
// an input file. eraTag, when set, must appear in the file name. Files that do
// not parse are skipped.
func (g *Grid) Available(files []string, thdm, prod, reg, eraTag string) []MassPoint {
	seen := NewSkipSet()
	for _, f := range files {
		name := filepath.Base(f)
		if !strings.HasSuffix(name, ".root") {
			continue
		}
		if prod == Combined {
			if !strings.Contains(name, "_tb_") {
				continue
			}
		} else if !strings.HasPrefix(name, filePrefix(prod)+thdm+"To2L2B_") {
			continue
		}
		if eraTag != "" && !strings.Contains(name, eraTag) {
			continue
		}

		p, err := ParseFilename(name)
		if err != nil {
			continue
		}
		if g.Contains(prod, reg, thdm, p) {
			seen.Add(p)
		}
	}
	return seen.Points()
}

// NotInBoth returns the points of gg that are missing from bb.
func NotInBoth(gg, bb []MassPoint) []MassPoint {
	have := NewSkipSet(bb...)
	var out []MassPoint
	for _, p := range gg {
		if !have.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}
