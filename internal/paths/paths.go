package paths

import (
	"os"
	"path/filepath"
)

const (
	// LogsSubdir holds per-subsystem log files under the output root
	LogsSubdir = "logs"
	// OnePOIDir is used when both productions share one signal strength
	OnePOIDir = "1POIs_r"
	// TwoPOIsDir is used when gg-fusion and bb-associated production float separately
	TwoPOIsDir = "2POIs_r"
)

// ModeDir returns <output>/<methodGroup>/<mode>.
func ModeDir(output, methodGroup, mode string) string {
	return filepath.Join(output, methodGroup, mode)
}

// CardsDir returns the directory holding one sub-directory per mass point:
// <output>/<methodGroup>/<mode>/<1POIs_r|2POIs_r>[/tanbeta_<tb>]
func CardsDir(output, methodGroup, mode string, twoPOIs bool, tanbeta string) string {
	poi := OnePOIDir
	if twoPOIs {
		poi = TwoPOIsDir
	}
	dir := filepath.Join(ModeDir(output, methodGroup, mode), poi)
	if tanbeta != "" {
		dir = filepath.Join(dir, "tanbeta_"+tanbeta)
	}
	return dir
}

// GetLogsDir returns <output>/logs
func GetLogsDir(output string) string {
	return filepath.Join(output, LogsSubdir)
}

// EnsureLogsDir creates <output>/logs if needed and returns it
func EnsureLogsDir(output string) (string, error) {
	dir := GetLogsDir(output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetLogPath returns the log file for a subsystem, e.g. <output>/logs/combine.log
func GetLogPath(output, subsystem string) string {
	return filepath.Join(GetLogsDir(output), subsystem+".log")
}

// CanonicalizePath converts an absolute path to a root-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to root
// - Converts backslashes to forward slashes
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}
