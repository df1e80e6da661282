package loader

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// ManifestLoader finds and reads manifests from the file system
type ManifestLoader interface {
	// LoadAll resolves paths to manifests and reads every one of them
	LoadAll(ctx context.Context, paths []string) ([]ManifestFile, []LoadError, error)
	// GetLoadErrors returns errors from the last load operation
	GetLoadErrors() []LoadError
}

// FileManifestLoader implements ManifestLoader
type FileManifestLoader struct {
	scanner    *Scanner
	parser     *Parser
	mu         sync.RWMutex
	loadErrors []LoadError
}

// NewFileManifestLoader creates a loader; maxSize bounds each manifest file
func NewFileManifestLoader(maxSize int64) *FileManifestLoader {
	return &FileManifestLoader{
		scanner:    NewScanner(),
		parser:     NewParser(maxSize),
		loadErrors: make([]LoadError, 0),
	}
}

// LoadAll scans paths and reads every discovered manifest. Unreadable files
// are returned as load errors; a fatal error means scanning itself failed.
func (l *FileManifestLoader) LoadAll(ctx context.Context, paths []string) ([]ManifestFile, []LoadError, error) {
	scannedFiles, err := l.scanner.Scan(ctx, paths)
	if err != nil {
		return nil, nil, err
	}

	var manifests []ManifestFile
	var loadErrors []LoadError

	for _, scannedFile := range scannedFiles {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		manifest, loadErr := l.parser.ParseFile(scannedFile)
		if loadErr != nil {
			log.Warn().
				Str("path", loadErr.FilePath).
				Str("error", loadErr.Error).
				Msg("Skipping unreadable manifest")
			loadErrors = append(loadErrors, *loadErr)
			continue
		}

		manifests = append(manifests, *manifest)
	}

	l.mu.Lock()
	l.loadErrors = loadErrors
	l.mu.Unlock()

	log.Debug().
		Int("manifests", len(manifests)).
		Int("load_errors", len(loadErrors)).
		Msg("Manifests loaded")

	return manifests, loadErrors, nil
}

// GetLoadErrors returns errors from the last load operation
func (l *FileManifestLoader) GetLoadErrors() []LoadError {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]LoadError, len(l.loadErrors))
	copy(result, l.loadErrors)
	return result
}

// ErrorCount returns the number of load errors from the last operation
func (l *FileManifestLoader) ErrorCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.loadErrors)
}
