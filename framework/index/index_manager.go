package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lexcodex/lplsense/framework/lpl"
)

// ParserVersion is recorded with every stored file.
const ParserVersion = "lpl-stack-1"

var (
	// ErrNotIndexed is returned for documents the manager has not seen.
	ErrNotIndexed = errors.New("document not indexed")
	// ErrNoStore is returned by snapshot queries when no store is wired.
	ErrNoStore = errors.New("no index store configured")
)

// IndexConfig configures the IndexManager.
type IndexConfig struct {
	WorkspacePath   string
	ParallelWorkers int
	IgnorePatterns  []string
	Extensions      []string
	TabWidth        int
	// DocumentKey maps a file path to the key documents are registered
	// under. Defaults to the path itself.
	DocumentKey func(path string) string
}

// IndexManager feeds documents through the parser into a registry and
// optionally mirrors the result into an IndexStore.
type IndexManager struct {
	registry         *lpl.Registry
	store            IndexStore
	languageDetector *LanguageDetector
	logger           *zap.Logger
	mu               sync.Mutex
	indexing         map[string]chan struct{}
	hashes           map[string]string
	config           IndexConfig
	pathFilter       func(path string, isDir bool) bool
}

// NewIndexManager builds a manager. store and logger may be nil.
func NewIndexManager(registry *lpl.Registry, store IndexStore, config IndexConfig, logger *zap.Logger) *IndexManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = lpl.NewRegistry(logger)
	}
	if config.DocumentKey == nil {
		config.DocumentKey = func(path string) string { return path }
	}
	return &IndexManager{
		registry:         registry,
		store:            store,
		languageDetector: NewLanguageDetector(config.Extensions),
		logger:           logger,
		indexing:         make(map[string]chan struct{}),
		hashes:           make(map[string]string),
		config:           config,
	}
}

// SetPathFilter installs an optional filter consulted before indexing a
// file from disk.
func (im *IndexManager) SetPathFilter(filter func(path string, isDir bool) bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.pathFilter = filter
}

// SetWorkspace changes the root IndexWorkspace walks.
func (im *IndexManager) SetWorkspace(path string) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.config.WorkspacePath = path
}

// Workspace returns the configured workspace root.
func (im *IndexManager) Workspace() string {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.config.WorkspacePath
}

// Registry exposes the registry documents are linked into.
func (im *IndexManager) Registry() *lpl.Registry {
	return im.registry
}

// Store exposes the snapshot store, which may be nil.
func (im *IndexManager) Store() IndexStore {
	return im.store
}

// Detector exposes the dialect detector.
func (im *IndexManager) Detector() *LanguageDetector {
	return im.languageDetector
}

// IndexFile reads path from disk and indexes it.
func (im *IndexManager) IndexFile(ctx context.Context, path string) (*lpl.ParseResult, error) {
	im.mu.Lock()
	filter := im.pathFilter
	im.mu.Unlock()
	if filter != nil && !filter(path, false) {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return im.IndexContent(ctx, im.config.DocumentKey(path), string(content))
}

// IndexContent parses content as the document key and links it. Content
// identical to the last indexed version is not parsed again. Calls for the
// same key run one at a time, in arrival order of the lock.
func (im *IndexManager) IndexContent(ctx context.Context, key, content string) (*lpl.ParseResult, error) {
	contentHash := HashContent(content)
	im.mu.Lock()
	for {
		busy, running := im.indexing[key]
		if !running {
			break
		}
		im.mu.Unlock()
		select {
		case <-busy:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		im.mu.Lock()
	}
	if im.hashes[key] == contentHash {
		if doc, ok := im.registry.Document(key); ok {
			im.mu.Unlock()
			return doc, nil
		}
	}
	done := make(chan struct{})
	im.indexing[key] = done
	im.mu.Unlock()
	defer func() {
		im.mu.Lock()
		delete(im.indexing, key)
		im.mu.Unlock()
		close(done)
	}()

	result, err := lpl.ParseContext(ctx, key, content, lpl.Options{
		TabWidth: im.config.TabWidth,
		Logger:   im.logger,
	})
	if err != nil {
		return nil, err
	}
	im.registry.Link(result)
	im.mu.Lock()
	im.hashes[key] = contentHash
	im.mu.Unlock()
	if err := im.persist(key, result, contentHash); err != nil {
		return result, fmt.Errorf("persist %s: %w", key, err)
	}
	return result, nil
}

// Remove forgets a document.
func (im *IndexManager) Remove(key string) error {
	im.registry.Forget(key)
	im.mu.Lock()
	delete(im.hashes, key)
	im.mu.Unlock()
	if im.store == nil {
		return nil
	}
	existing, err := im.store.GetFileByPath(key)
	if err != nil || existing == nil {
		return err
	}
	return im.store.DeleteFile(existing.ID)
}

// Document returns the last parse of key.
func (im *IndexManager) Document(key string) (*lpl.ParseResult, error) {
	doc, ok := im.registry.Document(key)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotIndexed)
	}
	return doc, nil
}

// WorkspaceResult summarizes one workspace pass.
type WorkspaceResult struct {
	Files    int
	Indexed  int
	Failed   map[string]error
	Duration time.Duration
}

// IndexWorkspace discovers and indexes every document in the workspace.
// Per-file failures are logged and collected; the pass continues.
func (im *IndexManager) IndexWorkspace(ctx context.Context) (*WorkspaceResult, error) {
	root := im.Workspace()
	if root == "" {
		root = "."
	}
	start := time.Now()
	files, err := Discover(root, im.languageDetector, im.config.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	im.mu.Lock()
	filter := im.pathFilter
	im.mu.Unlock()
	if filter != nil {
		kept := files[:0]
		for _, f := range files {
			if filter(f, false) {
				kept = append(kept, f)
			}
		}
		files = kept
	}
	res := &WorkspaceResult{Files: len(files), Failed: make(map[string]error)}
	if im.config.ParallelWorkers > 1 {
		im.indexFilesParallel(ctx, files, res)
	} else {
		im.indexFilesSequential(ctx, files, res)
	}
	res.Indexed = res.Files - len(res.Failed)
	res.Duration = time.Since(start)
	im.logger.Info("workspace indexed",
		zap.String("root", root),
		zap.Int("files", res.Files),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("duration", res.Duration))
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func (im *IndexManager) indexFilesSequential(ctx context.Context, files []string, res *WorkspaceResult) {
	for _, file := range files {
		if ctx.Err() != nil {
			return
		}
		if _, err := im.IndexFile(ctx, file); err != nil {
			im.logger.Warn("index failed", zap.String("file", file), zap.Error(err))
			res.Failed[file] = err
		}
	}
}

func (im *IndexManager) indexFilesParallel(ctx context.Context, files []string, res *WorkspaceResult) {
	workerCount := im.config.ParallelWorkers
	var wg sync.WaitGroup
	var failMu sync.Mutex
	fileCh := make(chan string)
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range fileCh {
				if _, err := im.IndexFile(ctx, file); err != nil {
					im.logger.Warn("index failed", zap.String("file", file), zap.Error(err))
					failMu.Lock()
					res.Failed[file] = err
					failMu.Unlock()
				}
			}
		}()
	}
feed:
	for _, file := range files {
		select {
		case fileCh <- file:
		case <-ctx.Done():
			break feed
		}
	}
	close(fileCh)
	wg.Wait()
}

func (im *IndexManager) persist(key string, result *lpl.ParseResult, contentHash string) error {
	if im.store == nil {
		return nil
	}
	existing, err := im.store.GetFileByPath(key)
	if err != nil {
		return err
	}
	if existing != nil && existing.ContentHash == contentHash {
		return nil
	}
	tx, err := im.store.BeginTransaction()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if existing != nil {
		if err := tx.DeleteFile(existing.ID); err != nil {
			return fmt.Errorf("delete previous snapshot: %w", err)
		}
	}
	fileID := GenerateFileID(key)
	record := &FileRecord{
		ID:            fileID,
		Path:          key,
		Dialect:       im.languageDetector.Detect(key),
		ClassName:     result.ClassName(),
		LineCount:     len(result.Lines),
		SymbolCount:   len(result.Symbols),
		ContentHash:   contentHash,
		IndexedAt:     time.Now().UTC(),
		ParserVersion: ParserVersion,
	}
	if err := tx.SaveFile(record); err != nil {
		return err
	}
	if err := tx.SaveSymbols(symbolRecords(fileID, result.Symbols)); err != nil {
		return err
	}
	return tx.Commit()
}

func symbolRecords(fileID string, symbols []lpl.Symbol) []*SymbolRecord {
	records := make([]*SymbolRecord, 0, len(symbols))
	seen := make(map[string]int)
	for _, sym := range symbols {
		base := symbolID(fileID, sym.Name, sym.Range.Start.Line)
		id := base
		if n := seen[base]; n > 0 {
			id = fmt.Sprintf("%s#%d", base, n)
		}
		seen[base]++
		records = append(records, &SymbolRecord{
			ID:        id,
			FileID:    fileID,
			Name:      sym.Name,
			Kind:      sym.Kind,
			Container: sym.Container,
			StartLine: sym.Range.Start.Line,
			StartCol:  sym.Range.Start.Character,
			EndLine:   sym.Range.End.Line,
			EndCol:    sym.Range.End.Character,
			Detail:    sym.Detail,
			Path:      sym.File,
		})
	}
	return records
}

// QuerySymbol searches the snapshot for symbols whose name matches
// pattern.
func (im *IndexManager) QuerySymbol(pattern string) ([]*SymbolRecord, error) {
	return im.SearchSymbols(SymbolQuery{NamePattern: pattern, Limit: 100})
}

// SearchSymbols routes to the underlying store.
func (im *IndexManager) SearchSymbols(query SymbolQuery) ([]*SymbolRecord, error) {
	if im.store == nil {
		return nil, ErrNoStore
	}
	return im.store.SearchSymbols(query)
}

// Stats proxies store.GetStats for callers.
func (im *IndexManager) Stats() (*IndexStats, error) {
	if im.store == nil {
		return nil, ErrNoStore
	}
	return im.store.GetStats()
}

// LastIndexedAt fetches the timestamp recorded for key, if any.
func (im *IndexManager) LastIndexedAt(key string) (time.Time, error) {
	if im.store == nil {
		return time.Time{}, ErrNoStore
	}
	file, err := im.store.GetFileByPath(key)
	if err != nil {
		return time.Time{}, err
	}
	if file == nil {
		return time.Time{}, nil
	}
	return file.IndexedAt, nil
}
