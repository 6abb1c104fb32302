package combine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zastat/internal/category"
	"zastat/internal/testutil"
)

const goldenPrefix = "HToZATo2L2B_gg_fusion_nb2_resolved_MuMu_ElEl_mbb"

func newTestScripts() *ScriptWriter {
	return NewScriptWriter(ScriptOptions{Mass: "125", ExpectSignal: 1, Dataset: "asimov"}, nil)
}

func readScript(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Errorf("%s is not executable: %v", path, info.Mode())
	}
	return string(data)
}

func TestGoldenScripts(t *testing.T) {
	w := newTestScripts()

	tests := []struct {
		golden string
		file   string
		write  func(dir string) (string, error)
	}{
		{"asymptotic", goldenPrefix + "_run_asymptotic.sh", func(dir string) (string, error) {
			return w.Asymptotic(dir, goldenPrefix)
		}},
		{"multisignal", goldenPrefix + "_r_bbH_run_asymptotic.sh", func(dir string) (string, error) {
			return w.MultiSignal(dir, goldenPrefix, "HToZA", "r_bbH")
		}},
		{"impacts", goldenPrefix + "_run_impacts.sh", func(dir string) (string, error) {
			return w.Impacts(dir, goldenPrefix, ImpactsTag{Flavors: "MuMu_ElEl", Production: "gg_fusion", Reco: "nb2_resolved"})
		}},
		{"likelihood", goldenPrefix + "_run_likelihood_fit.sh", func(dir string) (string, error) {
			return w.LikelihoodScan(dir, goldenPrefix, "HToZA")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.golden, func(t *testing.T) {
			dir := t.TempDir()
			path, err := tt.write(dir)
			if err != nil {
				t.Fatalf("write failed: %v", err)
			}
			if filepath.Base(path) != tt.file {
				t.Errorf("script name = %s, want %s", filepath.Base(path), tt.file)
			}
			testutil.CompareGolden(t, tt.golden, readScript(t, path), dir, "$DIR")
		})
	}
}

func TestGoldenDriverScripts(t *testing.T) {
	tests := []struct {
		golden string
		era    string
		slurm  bool
		name   string
	}{
		{"driver_fullrun2", "fullrun2", false, "run_combined_mbb_asymptoticlimits.sh"},
		{"driver_slurm", "2017", true, "run_combined_mbb_asymptoticlimits_onSlurm.sh"},
	}

	for _, tt := range tests {
		t.Run(tt.golden, func(t *testing.T) {
			dir := t.TempDir()
			l := Layout{Output: dir, Mode: category.MBB, Method: Asymptotic, TwoPOIs: true}
			path, err := WriteDriverScript(dir, l, tt.era, tt.slurm)
			if err != nil {
				t.Fatalf("WriteDriverScript failed: %v", err)
			}
			if filepath.Base(path) != tt.name {
				t.Errorf("driver name = %s, want %s", filepath.Base(path), tt.name)
			}
			testutil.CompareGolden(t, tt.golden, readScript(t, path), dir, "$DIR")
		})
	}
}

func TestLimitOptions(t *testing.T) {
	tests := []struct {
		opts ScriptOptions
		want string
	}{
		{ScriptOptions{ExpectSignal: 1}, "--noFitAsimov --run blind"},
		{ScriptOptions{ExpectSignal: 0}, "--noFitAsimov --rule CLsplusb --run blind"},
		{ScriptOptions{ExpectSignal: 1, Unblind: true}, "--noFitAsimov"},
	}

	for _, tt := range tests {
		got := NewScriptWriter(tt.opts, nil).limitOptions()
		if got != tt.want {
			t.Errorf("limitOptions(%+v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}

func TestImpactsTag(t *testing.T) {
	tag := ImpactsTag{Flavors: "OSSF", Production: "bb_associatedProduction", Reco: "nb2PLusnb3_boosted"}

	tests := []struct {
		opts ScriptOptions
		want string
		opt  string
	}{
		{ScriptOptions{ExpectSignal: 0, Dataset: "toys"}, "impacts__OSSF_bb_associatedProduction_nb2PLusnb3_boosted_expectSignal0_toysdataset.json", "-t 8 -s -1 --expectSignal 0"},
		{ScriptOptions{Unblind: true}, "impacts__OSSF_bb_associatedProduction_nb2PLusnb3_boosted_realdataset.json", ""},
	}

	for _, tt := range tests {
		dir := t.TempDir()
		path, err := NewScriptWriter(tt.opts, nil).Impacts(dir, "card", tag)
		if err != nil {
			t.Fatalf("Impacts failed: %v", err)
		}
		script := readScript(t, path)
		if !strings.Contains(script, tt.want) {
			t.Errorf("script for %+v does not name %s:\n%s", tt.opts, tt.want, script)
		}
		if tt.opt != "" && !strings.Contains(script, "-m 125 "+tt.opt+" --doInitialFit") {
			t.Errorf("script for %+v lacks options %q:\n%s", tt.opts, tt.opt, script)
		}
		if tt.opt == "" && strings.Contains(script, "expectSignal") {
			t.Errorf("unblinded script sets a signal expectation:\n%s", script)
		}
	}
}

func TestMultiSignal_UnknownPOI(t *testing.T) {
	if _, err := newTestScripts().MultiSignal(t.TempDir(), "card", "HToZA", "r_qqH"); err == nil {
		t.Error("MultiSignal with unknown POI succeeded")
	}
}

func TestPOIs(t *testing.T) {
	got := POIs("AToZH")
	if len(got) != 2 || got[0] != "r_ggA" || got[1] != "r_bbA" {
		t.Errorf("POIs(AToZH) = %v, want [r_ggA r_bbA]", got)
	}
}
