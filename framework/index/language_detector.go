package index

import (
	"path/filepath"
	"strings"
)

// Dialect identifies which LPL document form a file holds.
type Dialect string

const (
	DialectBusinessClass Dialect = "busclass"
	DialectKeyField      Dialect = "keyfield"
	DialectUnknown       Dialect = "unknown"
)

// DefaultExtensions are the file extensions scanned when none are
// configured.
var DefaultExtensions = []string{".busclass", ".keyfield"}

// LanguageDetector maps file extensions to LPL dialects.
type LanguageDetector struct {
	extensionMap map[string]Dialect
}

// NewLanguageDetector seeds the detector with extensions. Extensions
// containing "keyfield" map to the key-field dialect, everything else to
// business classes.
func NewLanguageDetector(extensions []string) *LanguageDetector {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	ld := &LanguageDetector{extensionMap: make(map[string]Dialect)}
	for _, ext := range extensions {
		ld.Add(ext)
	}
	return ld
}

// Add registers one more extension.
func (ld *LanguageDetector) Add(ext string) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.Contains(ext, "keyfield") {
		ld.extensionMap[ext] = DialectKeyField
		return
	}
	ld.extensionMap[ext] = DialectBusinessClass
}

// Detect returns the dialect of path.
func (ld *LanguageDetector) Detect(path string) Dialect {
	if path == "" {
		return DialectUnknown
	}
	if d, ok := ld.extensionMap[strings.ToLower(filepath.Ext(path))]; ok {
		return d
	}
	return DialectUnknown
}

// Supported reports whether path should be indexed.
func (ld *LanguageDetector) Supported(path string) bool {
	return ld.Detect(path) != DialectUnknown
}
