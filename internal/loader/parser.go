package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// utf8BOM is stripped from manifest content before validation
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ManifestFile is a manifest read from disk
type ManifestFile struct {
	Path    string `json:"path"`
	Content []byte `json:"-"`

	// SyntaxLine is the 1-based line of the first JSON syntax error, or 0
	SyntaxLine int `json:"syntax_line,omitempty"`
}

// LoadError represents an error that occurred while reading a specific file
type LoadError struct {
	FilePath string `json:"file_path"`
	Error    string `json:"error"`
	Line     int    `json:"line,omitempty"`
}

// Parser reads manifest files
type Parser struct {
	maxSize int64
}

// DefaultMaxManifestSize bounds the size of a manifest file
const DefaultMaxManifestSize = 4 << 20

// NewParser creates a new Parser. A non-positive maxSize uses
// DefaultMaxManifestSize.
func NewParser(maxSize int64) *Parser {
	if maxSize <= 0 {
		maxSize = DefaultMaxManifestSize
	}
	return &Parser{maxSize: maxSize}
}

// ParseFile reads a manifest. Content that is not valid JSON is still returned
// so the validator can report it; only unreadable files are load errors.
func (p *Parser) ParseFile(scannedFile ScannedFile) (*ManifestFile, *LoadError) {
	info, err := os.Stat(scannedFile.Path)
	if err != nil {
		return nil, &LoadError{
			FilePath: scannedFile.Path,
			Error:    fmt.Sprintf("failed to stat file: %v", err),
		}
	}
	if info.Size() > p.maxSize {
		return nil, &LoadError{
			FilePath: scannedFile.Path,
			Error:    fmt.Sprintf("file exceeds maximum manifest size of %d bytes", p.maxSize),
		}
	}

	data, err := os.ReadFile(scannedFile.Path)
	if err != nil {
		return nil, &LoadError{
			FilePath: scannedFile.Path,
			Error:    fmt.Sprintf("failed to read file: %v", err),
		}
	}

	return p.ParseContent(data, scannedFile.Path), nil
}

// ParseContent prepares manifest bytes from a non-file source
func (p *Parser) ParseContent(data []byte, path string) *ManifestFile {
	content := bytes.TrimPrefix(data, utf8BOM)
	return &ManifestFile{
		Path:       path,
		Content:    content,
		SyntaxLine: syntaxErrorLine(content),
	}
}

// syntaxErrorLine locates the first JSON syntax error in data
func syntaxErrorLine(data []byte) int {
	var doc any
	err := json.Unmarshal(data, &doc)
	if err == nil {
		return 0
	}

	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return 0
	}
	return lineAt(data, syntaxErr.Offset)
}

// lineAt converts a byte offset into a 1-based line number
func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	if offset < 0 {
		offset = 0
	}
	return bytes.Count(data[:offset], []byte{'\n'}) + 1
}
