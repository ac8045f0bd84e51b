package index

import (
	"database/sql"
	"errors"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lexcodex/lplsense/framework/lpl"
)

// SQLiteStore persists the symbol snapshot in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens/creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		dialect TEXT,
		class_name TEXT,
		line_count INTEGER,
		symbol_count INTEGER,
		content_hash TEXT,
		indexed_at TIMESTAMP,
		parser_version TEXT
	);
	CREATE TABLE IF NOT EXISTS symbols (
		id TEXT PRIMARY KEY,
		file_id TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		container TEXT,
		start_line INTEGER,
		start_col INTEGER,
		end_line INTEGER,
		end_col INTEGER,
		detail BOOLEAN,
		FOREIGN KEY(file_id) REFERENCES files(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS symbols_name ON symbols(name);
	CREATE INDEX IF NOT EXISTS symbols_container ON symbols(container);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Prepare(query string) (*sql.Stmt, error)
}

// SaveFile upserts a file record.
func (s *SQLiteStore) SaveFile(record *FileRecord) error {
	return upsertFile(s.db, record)
}

func upsertFile(db execer, record *FileRecord) error {
	if record == nil {
		return errors.New("file record required")
	}
	_, err := db.Exec(`
	INSERT INTO files (
		id, path, dialect, class_name, line_count, symbol_count,
		content_hash, indexed_at, parser_version
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		path=excluded.path,
		dialect=excluded.dialect,
		class_name=excluded.class_name,
		line_count=excluded.line_count,
		symbol_count=excluded.symbol_count,
		content_hash=excluded.content_hash,
		indexed_at=excluded.indexed_at,
		parser_version=excluded.parser_version
	`,
		record.ID,
		record.Path,
		record.Dialect,
		record.ClassName,
		record.LineCount,
		record.SymbolCount,
		record.ContentHash,
		record.IndexedAt,
		record.ParserVersion,
	)
	return err
}

const fileColumns = `id, path, dialect, class_name, line_count, symbol_count,
	content_hash, indexed_at, parser_version`

func (s *SQLiteStore) GetFile(id string) (*FileRecord, error) {
	row := s.db.QueryRow(`SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	return scanFile(row)
}

func (s *SQLiteStore) GetFileByPath(path string) (*FileRecord, error) {
	row := s.db.QueryRow(`SELECT `+fileColumns+` FROM files WHERE path = ?`, path)
	return scanFile(row)
}

func (s *SQLiteStore) ListFiles(dialect Dialect) ([]*FileRecord, error) {
	var rows *sql.Rows
	var err error
	if dialect == "" {
		rows, err = s.db.Query(`SELECT ` + fileColumns + ` FROM files ORDER BY path`)
	} else {
		rows, err = s.db.Query(`SELECT `+fileColumns+` FROM files WHERE dialect = ? ORDER BY path`, dialect)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

func (s *SQLiteStore) DeleteFile(id string) error {
	_, err := s.db.Exec(`DELETE FROM files WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) SaveSymbols(symbols []*SymbolRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := insertSymbols(tx, symbols); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertSymbols(db execer, symbols []*SymbolRecord) error {
	if len(symbols) == 0 {
		return nil
	}
	stmt, err := db.Prepare(`INSERT OR REPLACE INTO symbols (
		id, file_id, name, kind, container,
		start_line, start_col, end_line, end_col, detail
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, sym := range symbols {
		if sym == nil {
			continue
		}
		if _, err := stmt.Exec(
			sym.ID,
			sym.FileID,
			sym.Name,
			sym.Kind.String(),
			sym.Container,
			sym.StartLine,
			sym.StartCol,
			sym.EndLine,
			sym.EndCol,
			sym.Detail,
		); err != nil {
			return err
		}
	}
	return nil
}

const symbolSelect = `SELECT s.id, s.file_id, s.name, s.kind, s.container,
	s.start_line, s.start_col, s.end_line, s.end_col, s.detail, f.path
	FROM symbols s JOIN files f ON f.id = s.file_id`

func (s *SQLiteStore) GetSymbolsByFile(fileID string) ([]*SymbolRecord, error) {
	rows, err := s.db.Query(symbolSelect+` WHERE s.file_id = ? ORDER BY s.start_line`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

func (s *SQLiteStore) GetSymbolsByName(name string) ([]*SymbolRecord, error) {
	rows, err := s.db.Query(symbolSelect+` WHERE s.name = ? ORDER BY f.path, s.start_line`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SearchSymbols filters symbols. NamePattern uses LIKE semantics and is
// wrapped in % when it carries no wildcard of its own.
func (s *SQLiteStore) SearchSymbols(query SymbolQuery) ([]*SymbolRecord, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0)
	builder.WriteString(symbolSelect + ` WHERE 1=1`)
	if len(query.Kinds) > 0 {
		builder.WriteString(" AND s.kind IN (")
		builder.WriteString(placeholders(len(query.Kinds)))
		builder.WriteString(")")
		for _, k := range query.Kinds {
			args = append(args, k.String())
		}
	}
	if len(query.Containers) > 0 {
		builder.WriteString(" AND s.container IN (")
		builder.WriteString(placeholders(len(query.Containers)))
		builder.WriteString(")")
		for _, c := range query.Containers {
			args = append(args, c)
		}
	}
	if len(query.FileIDs) > 0 {
		builder.WriteString(" AND s.file_id IN (")
		builder.WriteString(placeholders(len(query.FileIDs)))
		builder.WriteString(")")
		for _, id := range query.FileIDs {
			args = append(args, id)
		}
	}
	if !query.WithDetail {
		builder.WriteString(" AND s.detail = 0")
	}
	if query.NamePattern != "" {
		pattern := query.NamePattern
		if !strings.ContainsAny(pattern, "%_") {
			pattern = "%" + pattern + "%"
		}
		builder.WriteString(" AND s.name LIKE ?")
		args = append(args, pattern)
	}
	builder.WriteString(" ORDER BY f.path, s.start_line")
	if query.Limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, query.Limit)
		if query.Offset > 0 {
			builder.WriteString(" OFFSET ?")
			args = append(args, query.Offset)
		}
	}
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

func (s *SQLiteStore) BeginTransaction() (Transaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) SaveFile(record *FileRecord) error {
	return upsertFile(t.tx, record)
}

func (t *sqliteTx) SaveSymbols(symbols []*SymbolRecord) error {
	return insertSymbols(t.tx, symbols)
}

func (t *sqliteTx) DeleteFile(fileID string) error {
	_, err := t.tx.Exec(`DELETE FROM files WHERE id = ?`, fileID)
	return err
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (s *SQLiteStore) Vacuum() error {
	_, err := s.db.Exec(`VACUUM`)
	return err
}

func (s *SQLiteStore) GetStats() (*IndexStats, error) {
	stats := &IndexStats{
		SymbolsByKind:  make(map[string]int),
		FilesByDialect: make(map[Dialect]int),
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&stats.TotalFiles); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM symbols`).Scan(&stats.TotalSymbols); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT class_name) FROM files WHERE class_name != ''`).Scan(&stats.TotalClasses); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM symbols GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.SymbolsByKind[kind] = count
	}
	rows.Close()
	rows, err = s.db.Query(`SELECT dialect, COUNT(*) FROM files GROUP BY dialect`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var d Dialect
		var count int
		if err := rows.Scan(&d, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.FilesByDialect[d] = count
	}
	rows.Close()
	var pageCount, pageSize int
	s.db.QueryRow(`PRAGMA page_count`).Scan(&pageCount)
	s.db.QueryRow(`PRAGMA page_size`).Scan(&pageSize)
	stats.DatabaseSize = int64(pageCount * pageSize)
	return stats, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFileRow(row scanner) (*FileRecord, error) {
	rec := &FileRecord{}
	var dialect string
	err := row.Scan(
		&rec.ID,
		&rec.Path,
		&dialect,
		&rec.ClassName,
		&rec.LineCount,
		&rec.SymbolCount,
		&rec.ContentHash,
		&rec.IndexedAt,
		&rec.ParserVersion,
	)
	if err != nil {
		return nil, err
	}
	rec.Dialect = Dialect(dialect)
	return rec, nil
}

// scanFile returns nil, nil when the row does not exist.
func scanFile(row *sql.Row) (*FileRecord, error) {
	rec, err := scanFileRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func scanFiles(rows *sql.Rows) ([]*FileRecord, error) {
	var out []*FileRecord
	for rows.Next() {
		rec, err := scanFileRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanSymbols(rows *sql.Rows) ([]*SymbolRecord, error) {
	var out []*SymbolRecord
	for rows.Next() {
		rec := &SymbolRecord{}
		var kind string
		if err := rows.Scan(
			&rec.ID,
			&rec.FileID,
			&rec.Name,
			&kind,
			&rec.Container,
			&rec.StartLine,
			&rec.StartCol,
			&rec.EndLine,
			&rec.EndCol,
			&rec.Detail,
			&rec.Path,
		); err != nil {
			return nil, err
		}
		rec.Kind = lpl.ParseSymbolKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}
