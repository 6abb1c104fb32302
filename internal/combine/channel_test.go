package combine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"zastat/internal/category"
	zerrors "zastat/internal/errors"
)

func TestRenumber(t *testing.T) {
	in := []Channel{
		{"ch1_mbb_ggH_nb2_resolved_MuMu", "a.dat"},
		{"ch2_mbb_ggH_nb2_resolved_ElEl", "b.dat"},
		{"ch1_mbb_ggH_nb3_resolved_OSSF", "c.dat"},
		{"UL17", "d.dat"},
	}
	want := []Channel{
		{"ch1_mbb_ggH_nb2_resolved_MuMu", "a.dat"},
		{"ch2_mbb_ggH_nb2_resolved_ElEl", "b.dat"},
		{"ch3_mbb_ggH_nb3_resolved_OSSF", "c.dat"},
		{"ch4_UL17", "d.dat"},
	}
	if diff := cmp.Diff(want, Renumber(in)); diff != "" {
		t.Errorf("Renumber() mismatch (-want +got):\n%s", diff)
	}
	if in[2].Name != "ch1_mbb_ggH_nb3_resolved_OSSF" {
		t.Error("Renumber modified its input")
	}
}

func TestDedup(t *testing.T) {
	a, b := Channel{"ch1_x", "a.dat"}, Channel{"ch2_y", "b.dat"}
	got := Dedup([]Channel{a, b, a, {"ch1_x", "c.dat"}, b})
	want := []Channel{a, b, {"ch1_x", "c.dat"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dedup() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseChannel(t *testing.T) {
	c, ok := ParseChannel("UL16=/data/cards/a=b.dat")
	if !ok {
		t.Fatal("ParseChannel failed")
	}
	if c.Name != "UL16" || c.Card != "/data/cards/a=b.dat" {
		t.Errorf("ParseChannel() = %+v", c)
	}
	if c.Arg() != "UL16=/data/cards/a=b.dat" {
		t.Errorf("Arg() = %q", c.Arg())
	}
	if _, ok := ParseChannel("no-separator"); ok {
		t.Error("ParseChannel accepted an argument without '='")
	}
}

func TestMethods(t *testing.T) {
	tests := []struct {
		method  Method
		group   string
		combos  bool
		prods   bool
		suffix  string
		flavors bool
	}{
		{Asymptotic, "limits", true, true, "limits", true},
		{HybridNew, "limits", true, false, "limits", true},
		{Fit, "fit", false, false, "prepost", true},
		{Impacts, "pulls-impacts", true, false, "pulls", true},
		{GenerateToys, "generatetoys", false, false, "", false},
		{LikelihoodFit, "likelihood_fit", true, true, "", true},
	}

	for _, tt := range tests {
		if got := tt.method.Group(); got != tt.group {
			t.Errorf("%s.Group() = %q, want %q", tt.method, got, tt.group)
		}
		if got := tt.method.BuildsCombinations(); got != tt.combos {
			t.Errorf("%s.BuildsCombinations() = %v, want %v", tt.method, got, tt.combos)
		}
		if got := tt.method.CombinesProductions(); got != tt.prods {
			t.Errorf("%s.CombinesProductions() = %v, want %v", tt.method, got, tt.prods)
		}
		if got := tt.method.DriverSuffix(); got != tt.suffix {
			t.Errorf("%s.DriverSuffix() = %q, want %q", tt.method, got, tt.suffix)
		}
		if got := tt.method.MergesFlavors(true); got != tt.flavors {
			t.Errorf("%s.MergesFlavors(true) = %v, want %v", tt.method, got, tt.flavors)
		}
		if tt.method.MergesFlavors(false) {
			t.Errorf("%s.MergesFlavors(false) = true", tt.method)
		}
	}

	if _, err := ParseMethod("bayesian"); !zerrors.Is(err, zerrors.ConfigurationError) {
		t.Errorf("ParseMethod(bayesian) error = %v, want CONFIGURATION_ERROR", err)
	}
	if m, err := ParseMethod("pvalue"); err != nil || m != PValue {
		t.Errorf("ParseMethod(pvalue) = %v, %v", m, err)
	}
}

func TestLayout(t *testing.T) {
	l := Layout{Output: "out", Mode: category.DNN, Method: Impacts, TwoPOIs: false, TanBeta: "1.5"}

	if got, want := l.Root(), filepath.Join("out", "pulls-impacts", "dnn", "1POIs_r", "tanbeta_1.5"); got != want {
		t.Errorf("Root() = %q, want %q", got, want)
	}
	if got := LeafCard("HToZA", category.GGFusion, category.NB2, category.Resolved, category.MuMu, "mbb"); got != "HToZATo2L2B_gg_fusion_nb2_resolved_MuMu_mbb.dat" {
		t.Errorf("LeafCard() = %q", got)
	}
	if got := LeafChannel(2, category.MBB, []string{"ggH", "bbH"}, category.NB3, category.Boosted, category.MuEl); got != "ch2_mbb_ggH_bbH_nb3_boosted_MuEl" {
		t.Errorf("LeafChannel() = %q", got)
	}
	if got := DriverScriptName(category.DNN, Fit, false); got != "run_combined_dnn_fitprepost.sh" {
		t.Errorf("DriverScriptName() = %q", got)
	}
}

func TestAddAutoMCStats(t *testing.T) {
	dir := t.TempDir()
	card := filepath.Join(dir, "MH-500.0_MA-300.0", "card.dat")
	if err := os.MkdirAll(filepath.Dir(card), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(card, []byte("imax *\nbin ch1"), 0644); err != nil {
		t.Fatal(err)
	}

	changed, err := AddAutoMCStats(card, 10)
	if err != nil || !changed {
		t.Fatalf("AddAutoMCStats() = %v, %v, want true, nil", changed, err)
	}
	changed, err = AddAutoMCStats(card, 10)
	if err != nil || changed {
		t.Fatalf("second AddAutoMCStats() = %v, %v, want false, nil", changed, err)
	}

	data, _ := os.ReadFile(card)
	if got, want := string(data), "imax *\nbin ch1\n* autoMCStats 10\n"; got != want {
		t.Errorf("card = %q, want %q", got, want)
	}

	n, err := AddAutoMCStatsTree(dir, 10, nil)
	if err != nil || n != 0 {
		t.Errorf("AddAutoMCStatsTree() = %d, %v, want 0, nil", n, err)
	}
}

func TestExecCombiner_MissingTool(t *testing.T) {
	c := NewExecCombiner("zastat-no-such-combine-tool", nil)
	_, err := c.Combine(context.Background(), t.TempDir(), []Channel{{"ch1", "a.dat"}})
	if !zerrors.Is(err, zerrors.ExternalToolFailure) {
		t.Fatalf("Combine() error = %v, want EXTERNAL_TOOL_FAILURE", err)
	}
	if !strings.Contains(err.Error(), "zastat-no-such-combine-tool ch1=a.dat") {
		t.Errorf("error does not show the command line: %v", err)
	}
	if NewExecCombiner("", nil).Tool != DefaultTool {
		t.Error("empty tool did not default to combineCards.py")
	}
}

func TestEraCombiner(t *testing.T) {
	dir := t.TempDir()
	rel := filepath.Join("MH-500.0_MA-300.0", "card.dat")
	var roots []EraRoot
	for _, tag := range []string{"UL16", "UL17"} {
		root := filepath.Join(dir, tag)
		if err := os.MkdirAll(filepath.Join(root, filepath.Dir(rel)), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, rel), []byte(tag), 0644); err != nil {
			t.Fatal(err)
		}
		roots = append(roots, EraRoot{Tag: tag, Root: root})
	}
	roots = append(roots, EraRoot{Tag: "UL18", Root: filepath.Join(dir, "UL18")})

	fc := &fakeCombiner{}
	out := filepath.Join(dir, "fullrun2")
	e := NewEraCombiner(fc, newTestScripts(), Asymptotic, nil, nil)
	n, err := e.Run(context.Background(), roots, out)
	if err != nil || n != 1 {
		t.Fatalf("Run() = %d, %v, want 1, nil", n, err)
	}

	data, err := os.ReadFile(filepath.Join(out, rel))
	if err != nil {
		t.Fatalf("combined card not written: %v", err)
	}
	want := "UL16=" + filepath.Join(dir, "UL16", rel) + "\nUL17=" + filepath.Join(dir, "UL17", rel) + "\n"
	if string(data) != want {
		t.Errorf("combined card = %q, want %q", data, want)
	}
	if _, err := os.Stat(filepath.Join(out, "MH-500.0_MA-300.0", "card_run_asymptotic.sh")); err != nil {
		t.Errorf("asymptotic script not written: %v", err)
	}
}
