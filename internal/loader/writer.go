package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// FileReport is the validation outcome of one manifest file
type FileReport struct {
	Path        string              `json:"path" yaml:"path"`
	Valid       bool                `json:"valid" yaml:"valid"`
	Errors      map[string]string   `json:"errors" yaml:"errors"`
	Warnings    map[string]string   `json:"warnings" yaml:"warnings"`
	Diagnostics []domain.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	SyntaxLine  int                 `json:"syntax_line,omitempty" yaml:"syntax_line,omitempty"`
	LoadError   string              `json:"load_error,omitempty" yaml:"load_error,omitempty"`
}

// NewFileReport builds the report of a validated manifest
func NewFileReport(manifest ManifestFile, result *domain.Result) FileReport {
	report := FileReport{
		Path:        manifest.Path,
		Valid:       result.Valid(),
		Errors:      result.Errors,
		Warnings:    result.Warnings,
		Diagnostics: result.Diagnostics,
	}
	if result.HasError(domain.CodeInvalidJSON) {
		report.SyntaxLine = manifest.SyntaxLine
	}
	return report
}

// NewLoadErrorReport builds the report of a manifest that could not be read
func NewLoadErrorReport(loadErr LoadError) FileReport {
	return FileReport{
		Path:        loadErr.FilePath,
		Errors:      map[string]string{},
		Warnings:    map[string]string{},
		Diagnostics: []domain.Diagnostic{},
		LoadError:   loadErr.Error,
	}
}

// Writer writes validation reports to disk
type Writer struct{}

// NewWriter creates a new Writer
func NewWriter() *Writer {
	return &Writer{}
}

// WriteReports writes reports to path, as YAML when the path ends in .yaml or
// .yml and as indented JSON otherwise.
// Uses atomic write pattern: temp file → sync → rename
func (w *Writer) WriteReports(reports []FileReport, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := EncodeReports(reports, formatOf(path))
	if err != nil {
		return err
	}

	return atomicWrite(path, data)
}

// EncodeReports renders reports as "json" or "yaml"
func EncodeReports(reports []FileReport, format string) ([]byte, error) {
	if reports == nil {
		reports = []FileReport{}
	}

	switch format {
	case "yaml":
		data, err := yaml.Marshal(reports)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal reports to YAML: %w", err)
		}
		return data, nil
	case "json":
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal reports to JSON: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// atomicWrite performs an atomic file write using temp file → sync → rename pattern
func atomicWrite(targetPath string, data []byte) error {
	// Create temp file in the same directory to ensure same filesystem
	dir := filepath.Dir(targetPath)
	tempFile, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return fmt.Errorf("failed to rename temp file to target: %w", err)
	}

	success = true
	return nil
}
