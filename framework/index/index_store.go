package index

import (
	"time"

	"github.com/lexcodex/lplsense/framework/lpl"
)

// IndexStore persists a snapshot of indexed documents and their symbols.
type IndexStore interface {
	SaveFile(record *FileRecord) error
	GetFile(fileID string) (*FileRecord, error)
	GetFileByPath(path string) (*FileRecord, error)
	ListFiles(dialect Dialect) ([]*FileRecord, error)
	DeleteFile(fileID string) error
	SaveSymbols(symbols []*SymbolRecord) error
	GetSymbolsByFile(fileID string) ([]*SymbolRecord, error)
	GetSymbolsByName(name string) ([]*SymbolRecord, error)
	SearchSymbols(query SymbolQuery) ([]*SymbolRecord, error)
	BeginTransaction() (Transaction, error)
	Vacuum() error
	GetStats() (*IndexStats, error)
	Close() error
}

// FileRecord is the stored metadata of one document.
type FileRecord struct {
	ID            string    `json:"id"`
	Path          string    `json:"path"`
	Dialect       Dialect   `json:"dialect"`
	ClassName     string    `json:"class_name"`
	LineCount     int       `json:"line_count"`
	SymbolCount   int       `json:"symbol_count"`
	ContentHash   string    `json:"content_hash"`
	IndexedAt     time.Time `json:"indexed_at"`
	ParserVersion string    `json:"parser_version"`
}

// SymbolRecord is one stored declaration.
type SymbolRecord struct {
	ID        string         `json:"id"`
	FileID    string         `json:"file_id"`
	Name      string         `json:"name"`
	Kind      lpl.SymbolKind `json:"kind"`
	Container string         `json:"container"`
	StartLine int            `json:"start_line"`
	StartCol  int            `json:"start_col"`
	EndLine   int            `json:"end_line"`
	EndCol    int            `json:"end_col"`
	Detail    bool           `json:"detail"`
	Path      string         `json:"path,omitempty"`
}

// Symbol converts the record back into a core symbol.
func (r *SymbolRecord) Symbol() lpl.Symbol {
	return lpl.Symbol{
		Name:      r.Name,
		Kind:      r.Kind,
		Container: r.Container,
		File:      r.Path,
		Range: lpl.Range{
			Start: lpl.Position{Line: r.StartLine, Character: r.StartCol},
			End:   lpl.Position{Line: r.EndLine, Character: r.EndCol},
		},
		Detail: r.Detail,
	}
}

// SymbolQuery filters symbols.
type SymbolQuery struct {
	Kinds       []lpl.SymbolKind
	Containers  []string
	NamePattern string
	FileIDs     []string
	WithDetail  bool
	Limit       int
	Offset      int
}

// Transaction batches writes for one document.
type Transaction interface {
	SaveFile(record *FileRecord) error
	SaveSymbols(symbols []*SymbolRecord) error
	DeleteFile(fileID string) error
	Commit() error
	Rollback() error
}

// IndexStats exposes counts.
type IndexStats struct {
	TotalFiles     int
	TotalSymbols   int
	TotalClasses   int
	SymbolsByKind  map[string]int
	FilesByDialect map[Dialect]int
	DatabaseSize   int64
}
