// Package loader discovers manifest files on disk, reads them for validation
// and writes validation reports and rule document overrides back out.
package loader

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
)

// ManifestFileNames are the exact file names recognized as manifests
var ManifestFileNames = []string{"manifest.webapp", "manifest.json"}

// ManifestExtensions are the extensions recognized as manifests
var ManifestExtensions = []string{".webapp"}

// ScannedFile is a discovered manifest
type ScannedFile struct {
	Path     string // Full path to the file
	Explicit bool   // Named directly rather than found in a directory
}

// Scanner finds manifests under files and directories
type Scanner struct{}

// NewScanner creates a new Scanner
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan resolves every path to manifest files. Files named directly are always
// included; directories are walked recursively for recognized manifest names,
// skipping hidden directories. Results are de-duplicated and sorted.
func (s *Scanner) Scan(ctx context.Context, paths []string) ([]ScannedFile, error) {
	seen := make(map[string]struct{})
	var files []ScannedFile

	add := func(f ScannedFile) {
		if _, ok := seen[f.Path]; ok {
			return
		}
		seen[f.Path] = struct{}{}
		files = append(files, f)
	}

	for _, p := range paths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, domain.NewAppErrorWithCause(
					domain.ErrManifestNotFound,
					"Manifest path does not exist",
					404,
					err,
					map[string]any{"path": p},
				)
			}
			return nil, domain.NewAppErrorWithCause(
				domain.ErrManifestReadError,
				"Manifest path cannot be read",
				500,
				err,
				map[string]any{"path": p},
			)
		}

		if !info.IsDir() {
			add(ScannedFile{Path: filepath.Clean(p), Explicit: true})
			continue
		}

		found, err := s.scanDirectory(ctx, p)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// scanDirectory recursively scans a directory for manifest files
func (s *Scanner) scanDirectory(ctx context.Context, rootDir string) ([]ScannedFile, error) {
	var files []ScannedFile

	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// Skip inaccessible directories/files but continue scanning
			return nil
		}

		if d.IsDir() {
			if path != rootDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsManifestFile(path) {
			return nil
		}

		files = append(files, ScannedFile{Path: filepath.Clean(path)})
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// IsManifestFile reports whether path names a recognized manifest file
func IsManifestFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, name := range ManifestFileNames {
		if base == name {
			return true
		}
	}
	for _, ext := range ManifestExtensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}
