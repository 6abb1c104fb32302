package combine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	zerrors "zastat/internal/errors"
	"zastat/internal/slogutil"
)

// DefaultTool is the card combination executable.
const DefaultTool = "combineCards.py"

// Combiner merges datacards. Given channel=card pairs relative to dir it
// returns the merged card text.
type Combiner interface {
	Combine(ctx context.Context, dir string, channels []Channel) ([]byte, error)
}

// ExecCombiner runs an external card combination tool.
type ExecCombiner struct {
	Tool   string
	logger *slog.Logger
}

// NewExecCombiner returns a combiner running tool, DefaultTool when empty.
func NewExecCombiner(tool string, logger *slog.Logger) *ExecCombiner {
	if tool == "" {
		tool = DefaultTool
	}
	return &ExecCombiner{Tool: tool, logger: slogutil.OrDiscard(logger)}
}

// Command returns the command line for channels, for logs and error messages.
func (c *ExecCombiner) Command(channels []Channel) string {
	return strings.Join(append([]string{c.Tool}, Args(channels)...), " ")
}

// Combine runs the tool in dir and returns its standard output.
func (c *ExecCombiner) Combine(ctx context.Context, dir string, channels []Channel) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Tool, Args(channels)...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	line := c.Command(channels)
	c.logger.Debug("Running card combination", "dir", dir, "cmd", line)

	if err := cmd.Run(); err != nil {
		msg := fmt.Sprintf("%s (in %s)", line, dir)
		if s := strings.TrimSpace(stderr.String()); s != "" {
			msg += ": " + s
		}
		return nil, zerrors.New(zerrors.ExternalToolFailure, msg, err)
	}
	return stdout.Bytes(), nil
}

// Source tells the planner which leaf cards exist.
type Source interface {
	Exists(path string) bool
}

// FileSource checks the file system.
type FileSource struct{}

// Exists reports whether path is a regular file.
func (FileSource) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// writeFile writes data to dir/name, creating dir.
func writeFile(dir, name string, data []byte, perm os.FileMode) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, perm); err != nil {
		return "", err
	}
	return path, nil
}
