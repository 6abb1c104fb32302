// Package archive packs an output tree of datacards, scripts and shapes into
// a zstd-compressed tarball for transfer to the fit cluster.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zstd"

	"zastat/internal/slogutil"
)

// DefaultPatterns select the files a fit needs.
var DefaultPatterns = []string{"**/*.dat", "**/*.sh", "**/*.root"}

// Bundle writes the files below dir matching patterns (DefaultPatterns when
// empty) to out as tar.zst. Paths in the archive are relative to dir. It
// returns the number of files written.
func Bundle(dir, out string, patterns []string, logger *slog.Logger) (int, error) {
	logger = slogutil.OrDiscard(logger)
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	files, err := collect(dir, patterns)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(out)
	if err != nil {
		return 0, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		_ = f.Close()
		return 0, err
	}
	tw := tar.NewWriter(zw)

	n := 0
	for _, rel := range files {
		if err := addFile(tw, dir, rel); err != nil {
			_ = tw.Close()
			_ = zw.Close()
			_ = f.Close()
			return n, fmt.Errorf("add %s: %w", rel, err)
		}
		n++
	}

	if err := tw.Close(); err != nil {
		_ = zw.Close()
		_ = f.Close()
		return n, err
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return n, err
	}
	if err := f.Close(); err != nil {
		return n, err
	}
	logger.Info("Wrote bundle", "path", out, "files", n)
	return n, nil
}

// collect returns the sorted, de-duplicated slash paths below dir matching
// any pattern.
func collect(dir string, patterns []string) ([]string, error) {
	fsys := os.DirFS(dir)
	seen := make(map[string]struct{})
	for _, p := range patterns {
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		for _, m := range matches {
			seen[m] = struct{}{}
		}
	}
	files := make([]string, 0, len(seen))
	for m := range seen {
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

func addFile(tw *tar.Writer, dir, rel string) error {
	path := filepath.Join(dir, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = rel
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(tw, src)
	return err
}

// Extract unpacks a bundle into dir and returns the extracted relative paths.
func Extract(in, dir string) ([]string, error) {
	f, err := os.Open(in)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var out []string
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		target := filepath.Join(dir, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(dir)+string(filepath.Separator)) {
			return out, fmt.Errorf("invalid file path: %q", hdr.Name)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return out, err
		}
		dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
		if err != nil {
			return out, err
		}
		if _, err := io.Copy(dst, tr); err != nil {
			_ = dst.Close()
			return out, err
		}
		if err := dst.Close(); err != nil {
			return out, err
		}
		out = append(out, hdr.Name)
	}
	return out, nil
}
