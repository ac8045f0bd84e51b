package cliutils

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lexcodex/lplsense/cmd/internal/logging"
	"github.com/lexcodex/lplsense/cmd/internal/workspacecfg"
	"github.com/lexcodex/lplsense/framework/index"
	"github.com/lexcodex/lplsense/framework/lpl"
)

// Session bundles what a command needs to query a workspace.
type Session struct {
	Config  *workspacecfg.Config
	Logger  *zap.Logger
	Manager *index.IndexManager
	store   *index.SQLiteStore
}

// SessionOptions tunes OpenSession.
type SessionOptions struct {
	// UseStore opens Config.IndexDB, when set, as the snapshot store.
	UseStore bool
	// DocumentKey overrides how file paths become registry keys.
	DocumentKey func(path string) string
	// Logger replaces the logger built from the config.
	Logger *zap.Logger
}

// OpenSession builds the logger, optional SQLite store and index manager
// for cfg. Close releases them.
func OpenSession(cfg *workspacecfg.Config, opts SessionOptions) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("workspace config missing")
	}
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.LogLevel, cfg.LogPath)
		if err != nil {
			return nil, err
		}
	}
	s := &Session{Config: cfg, Logger: logger}
	var store index.IndexStore
	if opts.UseStore && cfg.IndexDB != "" {
		sqlStore, err := index.NewSQLiteStore(cfg.IndexDB)
		if err != nil {
			return nil, fmt.Errorf("open index db: %w", err)
		}
		s.store = sqlStore
		store = sqlStore
	}
	s.Manager = index.NewIndexManager(lpl.NewRegistry(logger), store, index.IndexConfig{
		WorkspacePath:   cfg.Workspace,
		ParallelWorkers: cfg.ParallelWorkers,
		IgnorePatterns:  cfg.Ignore,
		Extensions:      cfg.Extensions,
		TabWidth:        cfg.TabWidth,
		DocumentKey:     opts.DocumentKey,
	}, logger)
	return s, nil
}

// Close flushes the logger and closes the store.
func (s *Session) Close() error {
	_ = s.Logger.Sync()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// ResolvePath makes path absolute relative to the workspace.
func ResolvePath(workspace, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(workspace, path)
}

// ParsePosition parses a one-based "line:column" pair into a zero-based
// position.
func ParsePosition(value string) (lpl.Position, error) {
	lineText, colText, ok := strings.Cut(value, ":")
	if !ok {
		return lpl.Position{}, fmt.Errorf("position %q: want line:column", value)
	}
	line, err := strconv.Atoi(strings.TrimSpace(lineText))
	if err != nil || line < 1 {
		return lpl.Position{}, fmt.Errorf("position %q: bad line", value)
	}
	col, err := strconv.Atoi(strings.TrimSpace(colText))
	if err != nil || col < 1 {
		return lpl.Position{}, fmt.Errorf("position %q: bad column", value)
	}
	return lpl.Position{Line: line - 1, Character: col - 1}, nil
}

// FormatRange renders r one-based for terminal output.
func FormatRange(r lpl.Range) string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line+1, r.Start.Character+1, r.End.Line+1, r.End.Character+1)
}
