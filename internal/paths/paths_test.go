package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCardsDir(t *testing.T) {
	tests := []struct {
		name    string
		twoPOIs bool
		tanbeta string
		want    string
	}{
		{"one POI", false, "", filepath.Join("out", "limits", "dnn", "1POIs_r")},
		{"two POIs", true, "", filepath.Join("out", "limits", "dnn", "2POIs_r")},
		{"tanbeta", false, "1.5", filepath.Join("out", "limits", "dnn", "1POIs_r", "tanbeta_1.5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CardsDir("out", "limits", "dnn", tt.twoPOIs, tt.tanbeta)
			if got != tt.want {
				t.Errorf("CardsDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnsureLogsDir(t *testing.T) {
	out := t.TempDir()

	dir, err := EnsureLogsDir(out)
	if err != nil {
		t.Fatalf("EnsureLogsDir failed: %v", err)
	}
	if dir != filepath.Join(out, LogsSubdir) {
		t.Errorf("EnsureLogsDir() = %q, want %q", dir, filepath.Join(out, LogsSubdir))
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("logs dir was not created: %v", err)
	}

	if got := GetLogPath(out, "combine"); got != filepath.Join(out, "logs", "combine.log") {
		t.Errorf("GetLogPath() = %q", got)
	}
}

func TestCanonicalizePath(t *testing.T) {
	tempDir := t.TempDir()

	testFile := filepath.Join(tempDir, "limits", "HToZATo2L2B_OSSF.dat")
	if err := os.MkdirAll(filepath.Dir(testFile), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if err := os.WriteFile(testFile, []byte("imax *"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	canonical, err := CanonicalizePath(testFile, tempDir)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}

	expected := "limits/HToZATo2L2B_OSSF.dat"
	if canonical != expected {
		t.Errorf("Expected %s, got %s", expected, canonical)
	}
}
