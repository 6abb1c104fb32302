package category

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	zerrors "zastat/internal/errors"
	"zastat/internal/masspoint"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		encoded string
		want    Category
	}{
		{"gg_fusion_nb2_resolved_MuMu", Category{GGFusion, NB2, Resolved, []Flavor{MuMu}}},
		{"bb_associatedProduction_nb3_boosted_OSSF_MuEl", Category{BBAssociated, NB3, Boosted, []Flavor{OSSF, MuEl}}},
		{"gg_fusion_bb_associatedProduction_nb2PLusnb3_resolved_boosted_MuMu_ElEl_MuEl",
			Category{Combined, NB2PlusNB3, ResolvedBoosted, []Flavor{MuMu, ElEl, MuEl}}},
		{"gg_fusion_nb2PLusnb3_resolved", Category{GGFusion, NB2PlusNB3, Resolved, nil}},
	}

	for _, tt := range tests {
		t.Run(tt.encoded, func(t *testing.T) {
			got, err := Decode(tt.encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
			if enc := got.Encode(); enc != tt.encoded {
				t.Errorf("Encode() = %q, want %q", enc, tt.encoded)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, s := range []string{
		"",
		"vbf_nb2_resolved_MuMu",
		"gg_fusion_nb4_resolved_MuMu",
		"gg_fusion_nb2_merged_MuMu",
		"gg_fusion_nb2_resolved_TauTau",
		"gg_fusion_nb2_resolvedMuMu",
	} {
		if _, err := Decode(s); !zerrors.Is(err, zerrors.ParseError) {
			t.Errorf("Decode(%q) error = %v, want PARSE_ERROR", s, err)
		}
	}
}

func TestLeafFlavors(t *testing.T) {
	split := []Flavor{MuMu, ElEl, MuEl}
	merged := []Flavor{OSSF, MuEl}

	tests := []struct {
		prod Production
		btag BTag
		reg  Region
		want []Flavor
	}{
		{GGFusion, NB2, Resolved, split},
		{GGFusion, NB3, Resolved, merged},
		{GGFusion, NB2, Boosted, merged},
		{BBAssociated, NB2, Resolved, merged},
		{Combined, NB2, Resolved, merged},
	}

	for _, tt := range tests {
		got := LeafFlavors(tt.prod, tt.btag, tt.reg)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("LeafFlavors(%s, %s, %s) mismatch (-want +got):\n%s", tt.prod, tt.btag, tt.reg, diff)
		}
	}
}

func TestFlavorGroups(t *testing.T) {
	tests := []struct {
		group  []Flavor
		key    FlavorKey
		booked bool
	}{
		{[]Flavor{MuMu, ElEl}, KeyOSSF, true},
		{[]Flavor{MuMu, ElEl, MuEl}, KeyOSSFMuEl, true},
		{[]Flavor{OSSF, MuEl}, KeyOSSFMuEl, true},
		{[]Flavor{MuMu, MuEl}, KeyOSSFMuEl, false},
		{[]Flavor{ElEl, MuEl}, KeyOSSFMuEl, false},
	}

	for _, tt := range tests {
		name := JoinFlavors(tt.group)
		if got := BookKey(tt.group); got != tt.key {
			t.Errorf("BookKey(%s) = %s, want %s", name, got, tt.key)
		}
		if got := Booked(tt.group); got != tt.booked {
			t.Errorf("Booked(%s) = %v, want %v", name, got, tt.booked)
		}
	}

	if !HasAll([]Flavor{MuMu, ElEl, MuEl}, []Flavor{MuEl, MuMu}) {
		t.Error("HasAll() = false for a subset")
	}
	if HasAll([]Flavor{OSSF, MuEl}, []Flavor{MuMu, ElEl}) {
		t.Error("HasAll() = true for a missing flavour")
	}
}

func TestCategoryLabel(t *testing.T) {
	p := masspoint.MassPoint{Heavy: 500, Light: 300}

	tests := []struct {
		mode   Mode
		thdm   string
		want   string
		suffix string
	}{
		{DNN, "HToZA", "dnn_MH_500.0_MA_300.0", "_MH_500.0_MA_300.0"},
		{DNN, "AToZH", "dnn_MA_500.0_MH_300.0", "_MA_500.0_MH_300.0"},
		{MBB, "HToZA", "mbb", ""},
		{MLLBB, "HToZA", "mllbb", ""},
	}

	for _, tt := range tests {
		got, err := tt.mode.CategoryLabel(tt.thdm, p)
		if err != nil {
			t.Errorf("%s.CategoryLabel failed: %v", tt.mode, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s.CategoryLabel() = %q, want %q", tt.mode, got, tt.want)
		}
		if s := tt.mode.LabelSuffix(got); s != tt.suffix {
			t.Errorf("%s.LabelSuffix(%q) = %q, want %q", tt.mode, got, s, tt.suffix)
		}
	}

	for _, m := range []Mode{Ellipse, MjjAndMlljj, MjjVsMlljj, Mode("bogus")} {
		if _, err := m.CategoryLabel("HToZA", p); !zerrors.Is(err, zerrors.ConfigurationError) {
			t.Errorf("%s.CategoryLabel() error = %v, want CONFIGURATION_ERROR", m, err)
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("mllbb"); err != nil || m != MLLBB {
		t.Errorf("ParseMode(mllbb) = %v, %v", m, err)
	}
	if _, err := ParseMode("bdt"); !zerrors.Is(err, zerrors.ConfigurationError) {
		t.Errorf("ParseMode(bdt) error = %v, want CONFIGURATION_ERROR", err)
	}
	if !Ellipse.Deprecated() || DNN.Deprecated() {
		t.Error("Deprecated() mismatch")
	}
}

func TestHistogramName(t *testing.T) {
	p := masspoint.MassPoint{Heavy: 500, Light: 300}

	got, err := DNN.HistogramName("HToZA", MuMu, NB2, Resolved, "DeepFlavourM", p)
	if err != nil {
		t.Fatal(err)
	}
	want := "DNNOutput_ZAnode_MuMu_nb2_resolved_DeepFlavourM_METCut_MH_500p00_MA_300p00"
	if got != want {
		t.Errorf("HistogramName(dnn) = %q, want %q", got, want)
	}

	got, err = MBB.HistogramName("HToZA", OSSF, NB3, Boosted, "DeepCSVM", p)
	if err != nil {
		t.Fatal(err)
	}
	want = "OSSF_boosted_METCut_NobJetER_bTagWgt_mbb_DeepCSVM_nb3"
	if got != want {
		t.Errorf("HistogramName(mbb) = %q, want %q", got, want)
	}

	if _, err := Ellipse.HistogramName("HToZA", MuMu, NB2, Resolved, "DeepCSVM", p); !zerrors.Is(err, zerrors.ConfigurationError) {
		t.Errorf("HistogramName(ellipse) error = %v, want CONFIGURATION_ERROR", err)
	}
}

func TestHistogramPattern(t *testing.T) {
	re := HistogramPattern("MuMu_resolved_METCut_NobJetER_bTagWgt_mbb_DeepCSVM_nb2")

	tests := []struct {
		name  string
		match bool
	}{
		{"MuMu_resolved_METCut_NobJetER_bTagWgt_mbb_DeepCSVM_nb2", true},
		{"MuMu_resolved_METCut_NobJetER_bTagWgt_mbb_DeepCSVM_nb2__jesup", true},
		{"MuMu_resolved_METCut_NobJetER_bTagWgt_mbb_DeepCSVM_nb2__puweightdown", true},
		{"MuMu_resolved_METCut_NobJetER_bTagWgt_mbb_DeepCSVM_nb2__jes", false},
		{"MuMu_resolved_METCut_NobJetER_bTagWgt_mbb_DeepCSVM_nb22", false},
	}
	for _, tt := range tests {
		if got := re.MatchString(tt.name); got != tt.match {
			t.Errorf("MatchString(%q) = %v, want %v", tt.name, got, tt.match)
		}
	}
}

func TestSignalProcesses(t *testing.T) {
	tests := []struct {
		name        string
		prod        Production
		twoPOIs     bool
		multiSignal bool
		want        []string
	}{
		{"one POI", Combined, false, false, []string{"ggHPLusbbH"}},
		{"two POIs gg", GGFusion, true, false, []string{"ggH"}},
		{"two POIs bb", BBAssociated, true, false, []string{"bbH"}},
		{"multi signal", Combined, true, true, []string{"ggH", "bbH"}},
	}

	for _, tt := range tests {
		got := SignalProcesses("HToZA", tt.prod, tt.twoPOIs, tt.multiSignal)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s: SignalProcesses() mismatch (-want +got):\n%s", tt.name, diff)
		}
	}

	multi := SignalProcesses("AToZH", Combined, true, true)
	if diff := cmp.Diff([]string{"bbA"}, SignalsForBTag("AToZH", NB3, multi, true)); diff != "" {
		t.Errorf("SignalsForBTag(nb3) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(multi, SignalsForBTag("AToZH", NB3, multi, false)); diff != "" {
		t.Errorf("SignalsForBTag(single) mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]Production{GGFusion, BBAssociated}, Productions(true, false)); diff != "" {
		t.Errorf("Productions(two POIs) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Production{Combined}, Productions(true, true)); diff != "" {
		t.Errorf("Productions(multi signal) mismatch (-want +got):\n%s", diff)
	}
}
