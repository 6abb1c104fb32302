package masspoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	zerrors "zastat/internal/errors"
)

func TestFormatting(t *testing.T) {
	p := MassPoint{Heavy: 500, Light: 300}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"MassToStr", MassToStr(125.5), "125p50"},
		{"Format", p.Format(), "MH_500p00_MA_300p00"},
		{"DirName HToZA", p.DirName("HToZA"), "MH-500.0_MA-300.0"},
		{"DirName AToZH", p.DirName("AToZH"), "MA-500.0_MH-300.0"},
		{"Tag", MassPoint{Heavy: 209.9, Light: 30}.Tag("HToZA"), "MH_209.9_MA_30.0"},
		{"String", p.String(), "(500, 300)"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		file string
		want MassPoint
	}{
		{"GluGluToHToZATo2L2B_MH_500p00_MA_300p00_tb_1p50_TuneCP5_13TeV_amcatnlo_pythia8_UL17.root", MassPoint{500, 300}},
		{"/data/results/HToZATo2L2B_MH_609p21_MA_253p57_tb_20p00_TuneCP5_13TeV_amcatnlo_pythia8.root", MassPoint{609.21, 253.57}},
		{"HToZATo2L2B_MH-500_MA-300.root", MassPoint{500, 300}},
		{"AToZHTo2L2B_MA_750p00_MH_610p00_TuneCP5.root", MassPoint{750, 610}},
	}

	for _, tt := range tests {
		got, err := ParseFilename(tt.file)
		if err != nil {
			t.Errorf("ParseFilename(%q) failed: %v", tt.file, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFilename(%q) = %v, want %v", tt.file, got, tt.want)
		}
	}
}

func TestParseFilename_Errors(t *testing.T) {
	for _, file := range []string{
		"DYJetsToLL_M-50_UL17.root",
		"HToZATo2L2B_.root",
		"HToZATo2L2B_MH_abc_MA_300p00_tb_1p50.root",
		"HToZATo2L2B_MH-500.root",
	} {
		_, err := ParseFilename(file)
		if !zerrors.Is(err, zerrors.ParseError) {
			t.Errorf("ParseFilename(%q) error = %v, want PARSE_ERROR", file, err)
		}
	}
}

func TestParseFlag(t *testing.T) {
	got, err := ParseFlag("500, 300")
	if err != nil {
		t.Fatalf("ParseFlag failed: %v", err)
	}
	if got != (MassPoint{500, 300}) {
		t.Errorf("ParseFlag() = %v", got)
	}

	for _, bad := range []string{"500", "500,x", "1,2,3", "-5,10"} {
		if _, err := ParseFlag(bad); !zerrors.Is(err, zerrors.ParseError) {
			t.Errorf("ParseFlag(%q) error = %v, want PARSE_ERROR", bad, err)
		}
	}
}

func TestSkipSet(t *testing.T) {
	var s SkipSet
	a, b, c := MassPoint{500, 300}, MassPoint{200, 125}, MassPoint{800, 140}

	if !s.Add(a) || !s.Add(b) {
		t.Fatal("Add of new points returned false")
	}
	if s.Add(a) {
		t.Error("Add of repeated point returned true")
	}
	if !s.Contains(b) || s.Contains(c) {
		t.Error("Contains mismatch")
	}

	other := NewSkipSet(c, a)
	s.Merge(other)
	if diff := cmp.Diff([]MassPoint{a, b, c}, s.Points()); diff != "" {
		t.Errorf("Points() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]MassPoint{{1, 1}}, s.Filter([]MassPoint{a, {1, 1}, c})); diff != "" {
		t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
	}

	var nilSet *SkipSet
	if nilSet.Contains(a) || nilSet.Len() != 0 || nilSet.Points() != nil {
		t.Error("nil SkipSet is not empty")
	}
}

func TestDefaultGrid(t *testing.T) {
	g := DefaultGrid()

	for _, prod := range []string{GGFusion, BBAssociated} {
		for _, reg := range []string{"resolved", "boosted"} {
			if n := len(g.Points(prod, reg, "HToZA")); n != 13 {
				t.Errorf("%s/%s has %d points, want 13", prod, reg, n)
			}
		}
	}
	if !g.Contains(Combined, "boosted", "AToZH", MassPoint{500, 250}) {
		t.Error("combined production should accept single-production points")
	}
	if g.Contains(GGFusion, "resolved", "HToZA", MassPoint{500, 300}) {
		t.Error("(500, 300) is not simulated")
	}
}

func TestLoadGrid(t *testing.T) {
	doc := `
[gg_fusion.resolved]
HToZA = [[500, 300], [200.0, 125.0]]

[bb_associatedProduction.resolved]
HToZA = [[200.0, 125.0]]
`
	path := filepath.Join(t.TempDir(), "grid.toml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	g, err := LoadGrid(path)
	if err != nil {
		t.Fatalf("LoadGrid failed: %v", err)
	}
	want := []MassPoint{{500, 300}, {200, 125}}
	if diff := cmp.Diff(want, g.Points(GGFusion, "resolved", "HToZA")); diff != "" {
		t.Errorf("Points() mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(want, g.Points(Combined, "resolved", "HToZA")); diff != "" {
		t.Errorf("Points(combined) mismatch (-want +got):\n%s", diff)
	}

	missing := NotInBoth(g.Points(GGFusion, "resolved", "HToZA"), g.Points(BBAssociated, "resolved", "HToZA"))
	if diff := cmp.Diff([]MassPoint{{500, 300}}, missing); diff != "" {
		t.Errorf("NotInBoth() mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseGrid([]byte("[gg_fusion.resolved]\nHToZA = [[1.0, 2.0, 3.0]]\n")); !zerrors.Is(err, zerrors.ConfigurationError) {
		t.Errorf("ParseGrid(bad pair) error = %v, want CONFIGURATION_ERROR", err)
	}
	if _, err := ParseGrid([]byte("not = [toml")); !zerrors.Is(err, zerrors.ParseError) {
		t.Errorf("ParseGrid(bad toml) error = %v, want PARSE_ERROR", err)
	}
}

func TestAvailable(t *testing.T) {
	g, err := ParseGrid([]byte(`
[gg_fusion.resolved]
HToZA = [[500.0, 300.0], [200.0, 125.0]]
[bb_associatedProduction.resolved]
HToZA = [[800.0, 140.0]]
`))
	if err != nil {
		t.Fatal(err)
	}

	files := []string{
		"in/GluGluToHToZATo2L2B_MH_500p00_MA_300p00_tb_1p50_TuneCP5_UL17.root",
		"in/GluGluToHToZATo2L2B_MH_500p00_MA_300p00_tb_1p50_TuneCP5_UL18.root",
		"in/GluGluToHToZATo2L2B_MH_650p00_MA_50p00_tb_1p50_TuneCP5_UL17.root",
		"in/HToZATo2L2B_MH_800p00_MA_140p00_tb_20p00_TuneCP5_UL17.root",
		"in/GluGluToHToZATo2L2B_MH_200p00_MA_125p00_tb_1p50_TuneCP5_UL18.root",
		"in/DYJetsToLL_M-50_UL17.root",
		"in/GluGluToHToZATo2L2B_MH_200p00_MA_125p00.txt",
	}

	tests := []struct {
		name   string
		prod   string
		eraTag string
		want   []MassPoint
	}{
		{"gg fusion, one era", GGFusion, "UL17", []MassPoint{{500, 300}}},
		{"gg fusion, full run 2", GGFusion, "", []MassPoint{{500, 300}, {200, 125}}},
		{"bb associated", BBAssociated, "UL17", []MassPoint{{800, 140}}},
		{"combined", Combined, "", []MassPoint{{500, 300}, {800, 140}, {200, 125}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Available(files, "HToZA", tt.prod, "resolved", tt.eraTag)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Available() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
