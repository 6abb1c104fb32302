// Package category names the fit channels: production mode, b-tag regime,
// kinematic region and lepton flavours.
package category

import (
	"fmt"
	"strings"

	zerrors "zastat/internal/errors"
)

// Production is a signal production mechanism.
type Production string

const (
	GGFusion     Production = "gg_fusion"
	BBAssociated Production = "bb_associatedProduction"
	// Combined treats both mechanisms as one signal.
	Combined Production = "gg_fusion_bb_associatedProduction"
)

// BTag is a b-tagged jet multiplicity regime.
type BTag string

const (
	NB2        BTag = "nb2"
	NB3        BTag = "nb3"
	NB2PlusNB3 BTag = "nb2PLusnb3"
)

// Region is a kinematic reconstruction region.
type Region string

const (
	Resolved        Region = "resolved"
	Boosted         Region = "boosted"
	ResolvedBoosted Region = "resolved_boosted"
)

// Flavor is a dilepton flavour channel.
type Flavor string

const (
	MuMu Flavor = "MuMu"
	ElEl Flavor = "ElEl"
	MuEl Flavor = "MuEl"
	// OSSF is opposite-sign same-flavour, MuMu and ElEl together.
	OSSF Flavor = "OSSF"
	OSOF Flavor = "OSOF"
)

// Leaf values in iteration order.
var (
	SingleProductions = []Production{GGFusion, BBAssociated}
	LeafBTags         = []BTag{NB2, NB3}
	LeafRegions       = []Region{Resolved, Boosted}
)

var (
	productions = []Production{Combined, GGFusion, BBAssociated} // longest first for decoding
	btags       = []BTag{NB2PlusNB3, NB2, NB3}
	regions     = []Region{ResolvedBoosted, Resolved, Boosted}
	flavors     = []Flavor{MuMu, ElEl, MuEl, OSSF, OSOF}
)

// Category is one channel of the fit, or a merge of several when BTag or
// Region is a combined value or Flavors holds more than one flavour.
type Category struct {
	Production Production
	BTag       BTag
	Region     Region
	Flavors    []Flavor
}

// Encode returns "gg_fusion_nb2_resolved_MuMu_ElEl".
func (c Category) Encode() string {
	parts := []string{string(c.Production), string(c.BTag), string(c.Region)}
	for _, f := range c.Flavors {
		parts = append(parts, string(f))
	}
	return strings.Join(parts, "_")
}

func (c Category) String() string { return c.Encode() }

// Decode parses the output of Encode.
func Decode(s string) (Category, error) {
	var c Category
	rest := s

	var ok bool
	if c.Production, rest, ok = cutPrefix(rest, productions); !ok {
		return Category{}, decodeError(s, "production")
	}
	if c.BTag, rest, ok = cutPrefix(rest, btags); !ok {
		return Category{}, decodeError(s, "b-tag regime")
	}
	if c.Region, rest, ok = cutPrefix(rest, regions); !ok {
		return Category{}, decodeError(s, "region")
	}
	if rest == "" {
		return c, nil
	}
	if !strings.HasPrefix(rest, "_") {
		return Category{}, decodeError(s, "flavour separator")
	}
	for _, tok := range strings.Split(rest[1:], "_") {
		f := Flavor(tok)
		if !contains(flavors, f) {
			return Category{}, decodeError(s, fmt.Sprintf("flavour %q", tok))
		}
		c.Flavors = append(c.Flavors, f)
	}
	return c, nil
}

// cutPrefix strips the first value of options (plus a separating "_") that
// prefixes s. The value must be followed by "_" or end the string.
func cutPrefix[T ~string](s string, options []T) (T, string, bool) {
	s = strings.TrimPrefix(s, "_")
	for _, o := range options {
		v := string(o)
		if s == v {
			return o, "", true
		}
		if strings.HasPrefix(s, v+"_") {
			return o, s[len(v):], true
		}
	}
	var zero T
	return zero, s, false
}

func decodeError(s, what string) error {
	return zerrors.New(zerrors.ParseError, fmt.Sprintf("category %q: bad %s", s, what), nil)
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// LeafFlavors returns the flavour channels a leaf category is split into.
// Low-statistics categories (three b-jets, boosted, or any bb-associated
// signal) merge MuMu and ElEl into OSSF.
func LeafFlavors(prod Production, btag BTag, reg Region) []Flavor {
	if btag == NB3 || reg == Boosted || prod != GGFusion {
		return []Flavor{OSSF, MuEl}
	}
	return []Flavor{MuMu, ElEl, MuEl}
}

// MergeableFlavorGroups are the flavour combinations built from leaf cards.
var MergeableFlavorGroups = [][]Flavor{
	{MuMu, ElEl},
	{MuMu, ElEl, MuEl},
	{OSSF, MuEl},
	{MuMu, MuEl},
	{ElEl, MuEl},
}

// FlavorKey groups merged-flavour channels for the b-tag and region merges.
type FlavorKey string

const (
	KeyOSSF     FlavorKey = "OSSF"
	KeyOSSFMuEl FlavorKey = "OSSF_MuEl"
)

// FlavorKeys in merge order.
var FlavorKeys = []FlavorKey{KeyOSSF, KeyOSSFMuEl}

// BookKey returns the key a flavour group is booked under.
func BookKey(group []Flavor) FlavorKey {
	if contains(group, MuEl) {
		return KeyOSSFMuEl
	}
	return KeyOSSF
}

// Booked reports whether a merged flavour group feeds the higher-level merges.
// Single same-flavour plus MuEl groups are written but not carried further.
func Booked(group []Flavor) bool {
	if len(group) != 2 || !contains(group, MuEl) {
		return true
	}
	return contains(group, OSSF)
}

// HasAll reports whether every flavour of group is in have.
func HasAll(have, group []Flavor) bool {
	for _, f := range group {
		if !contains(have, f) {
			return false
		}
	}
	return true
}

// JoinFlavors returns "MuMu_ElEl".
func JoinFlavors(group []Flavor) string {
	parts := make([]string, len(group))
	for i, f := range group {
		parts[i] = string(f)
	}
	return strings.Join(parts, "_")
}
