package lpl

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrNoClass is returned when a query names a class the registry has not
// seen.
var ErrNoClass = errors.New("class not indexed")

// Registry owns every ClassCache of a session. All reads and merges go
// through its lock, so a query never observes a half-merged class.
type Registry struct {
	mu          sync.RWMutex
	byClassName map[string]*ClassCache
	byFilePath  map[string]*ClassCache
	documents   map[string]*ParseResult
	logger      *zap.Logger
}

// NewRegistry returns an empty registry. logger may be nil.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byClassName: make(map[string]*ClassCache),
		byFilePath:  make(map[string]*ClassCache),
		documents:   make(map[string]*ParseResult),
		logger:      logger,
	}
}

// Link merges a finished parse into the registry. The file's previous
// contribution, including one to a differently named class, is replaced.
func (r *Registry) Link(result *ParseResult) {
	if result == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	file := result.File
	r.documents[file] = result
	name := result.ClassName()
	if prev, ok := r.byFilePath[file]; ok && prev.Name != name {
		prev.RemoveFile(file)
		delete(r.byFilePath, file)
		r.prune(prev)
	}
	if result.Class == nil {
		delete(r.byFilePath, file)
		return
	}
	if existing, ok := r.byClassName[name]; ok {
		existing.Merge(result.Class)
		r.byFilePath[file] = existing
		r.logger.Debug("merged class contribution",
			zap.String("class", name),
			zap.String("file", file),
			zap.Int("files", len(existing.Files())))
		return
	}
	merged := NewClassCache(name)
	merged.Merge(result.Class)
	r.byClassName[name] = merged
	r.byFilePath[file] = merged
	r.logger.Debug("registered class", zap.String("class", name), zap.String("file", file))
}

// Forget removes every contribution of file.
func (r *Registry) Forget(file string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cache, ok := r.byFilePath[file]; ok {
		cache.RemoveFile(file)
		delete(r.byFilePath, file)
		r.prune(cache)
	}
	delete(r.documents, file)
}

// prune drops a class no file contributes to any more.
func (r *Registry) prune(cache *ClassCache) {
	if len(cache.Definitions) > 0 {
		return
	}
	if r.byClassName[cache.Name] == cache {
		delete(r.byClassName, cache.Name)
		r.logger.Debug("dropped empty class", zap.String("class", cache.Name))
	}
}

// Document returns the last parse linked for file.
func (r *Registry) Document(file string) (*ParseResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[file]
	return doc, ok
}

// Outline returns the outline of the last parse of file.
func (r *Registry) Outline(file string, deep bool) []Symbol {
	doc, ok := r.Document(file)
	if !ok {
		return nil
	}
	return doc.Outline(deep)
}

// Files lists every linked file, sorted.
func (r *Registry) Files() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	files := make([]string, 0, len(r.documents))
	for f := range r.documents {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// ClassNames lists every registered class, sorted.
func (r *Registry) ClassNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byClassName))
	for n := range r.byClassName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ClassForFile returns the name of the class file contributes to.
func (r *Registry) ClassForFile(file string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cache, ok := r.byFilePath[file]
	if !ok {
		return "", false
	}
	return cache.Name, true
}

// ClassSummary is a read-only snapshot of one class.
type ClassSummary struct {
	Name      string
	Files     []string
	Fields    []string
	Relations []string
	Actions   []string
	Forms     []string
	Lists     []string
}

// Summary snapshots the named class.
func (r *Registry) Summary(name string) (ClassSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cache, ok := r.byClassName[name]
	if !ok {
		return ClassSummary{}, fmt.Errorf("%s: %w", name, ErrNoClass)
	}
	return ClassSummary{
		Name:      cache.Name,
		Files:     cache.Files(),
		Fields:    sortedKeys(cache.Fields),
		Relations: sortedKeys(cache.Relations),
		Actions:   sortedKeys(cache.Actions),
		Forms:     sortedKeys(cache.Forms),
		Lists:     sortedKeys(cache.Lists),
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DuplicateClasses reports classes declared by BusinessClass files that do
// not sit under a common parent directory, e.g. bl/Foo and ui/Foo are
// siblings but a/x/Foo and b/y/Foo are not.
func (r *Registry) DuplicateClasses() []Diagnostic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var diags []Diagnostic
	for _, name := range sortedKeys(r.byClassName) {
		cache := r.byClassName[name]
		roots := make(map[string]struct{})
		var decls []*Symbol
		for _, def := range cache.Definitions {
			if def.Kind != KindClass {
				continue
			}
			decls = append(decls, def)
			roots[filepath.Dir(filepath.Dir(def.File))] = struct{}{}
		}
		if len(roots) < 2 {
			continue
		}
		for _, def := range decls {
			diags = append(diags, Diagnostic{
				File:     def.File,
				Range:    def.NameRange(),
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("class %s is also declared in unrelated directories; declarations were merged", name),
			})
		}
	}
	return diags
}
