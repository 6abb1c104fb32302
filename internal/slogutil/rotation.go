package slogutil

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"zastat/internal/config"
	"zastat/internal/paths"
)

// SubsystemLog is the log file of one subsystem, <output>/logs/<subsystem>.log.
// When a write would take a non-empty file past maxSize the file becomes
// <subsystem>.log.1, older parts shift up by one and parts beyond maxBackups
// are removed. A zero maxSize never rotates.
type SubsystemLog struct {
	subsystem  string
	path       string
	maxSize    int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

// OpenSubsystemLog opens, in append mode, the log of subsystem under the
// output root, creating <output>/logs when needed.
func OpenSubsystemLog(output, subsystem string, cfg config.LoggingConfig) (*SubsystemLog, error) {
	if _, err := paths.EnsureLogsDir(output); err != nil {
		return nil, err
	}
	l := &SubsystemLog{
		subsystem:  subsystem,
		path:       paths.GetLogPath(output, subsystem),
		maxSize:    ParseSize(cfg.MaxSize),
		maxBackups: max(cfg.MaxBackups, 0),
	}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *SubsystemLog) open() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s log: %w", l.subsystem, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat %s log: %w", l.subsystem, err)
	}
	l.file = f
	l.size = info.Size()
	return nil
}

// Write appends p, rotating first when p would not fit. One record is never
// split across two files.
func (l *SubsystemLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return 0, fmt.Errorf("%s log is closed", l.subsystem)
	}
	if l.maxSize > 0 && l.size > 0 && l.size+int64(len(p)) > l.maxSize {
		// A failed rotation keeps writing to the current file.
		_ = l.rotate()
	}
	n, err := l.file.Write(p)
	l.size += int64(n)
	return n, err
}

// Close closes the current file.
func (l *SubsystemLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// rotate shifts combine.log.(i) to combine.log.(i+1), drops the part past
// maxBackups and reopens an empty combine.log.
func (l *SubsystemLog) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	l.file = nil

	_ = os.Remove(l.backupPath(l.maxBackups))
	for i := l.maxBackups - 1; i >= 1; i-- {
		_ = os.Rename(l.backupPath(i), l.backupPath(i+1))
	}
	if l.maxBackups > 0 {
		_ = os.Rename(l.path, l.backupPath(1))
	} else {
		_ = os.Remove(l.path)
	}
	return l.open()
}

func (l *SubsystemLog) backupPath(n int) string {
	return fmt.Sprintf("%s.%d", l.path, n)
}

// ParseSize parses a log size such as "10MB" (SI) or "512KiB" (binary) into
// bytes. Empty or invalid strings give 0, which disables rotation.
func ParseSize(s string) int64 {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil || n > math.MaxInt64 {
		return 0
	}
	return int64(n)
}

