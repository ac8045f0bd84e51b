package lpl

import (
	"sort"
)

// FieldStorage records which section declared a field.
type FieldStorage int

const (
	StoragePersistent FieldStorage = iota
	StorageTransient
	StorageLocal
	StorageDerived
	StorageCondition
	StorageContext
	StorageKey
)

// ImportExclude is the annotation value that removes a field from import
// validation.
const ImportExclude = "Exclude"

// FieldCache describes a field, condition, derived field or parameter.
type FieldCache struct {
	Definition  *Symbol
	HoverText   string
	ImportAlias string
	Storage     FieldStorage
}

// RelationCache describes a relation. TargetRelation is set when the
// relation is an indirection through a relation on TargetClass.
type RelationCache struct {
	Definition     *Symbol
	TargetClass    string
	TargetRelation string
	HoverText      string
}

// TargetsRelation reports whether the relation points at another relation
// rather than directly at a class.
func (r *RelationCache) TargetsRelation() bool {
	return r.TargetRelation != ""
}

// ActionCache holds an action and its nested scopes.
type ActionCache struct {
	Definition  *Symbol
	HoverText   string
	Parameters  map[string]*FieldCache
	LocalFields map[string]*FieldCache
	RuleBlocks  map[string]*Symbol
	Restricted  bool
	ValidWhen   string
	ImportAlias string
}

func newActionCache(def *Symbol, hover string) *ActionCache {
	return &ActionCache{
		Definition:  def,
		HoverText:   hover,
		Parameters:  make(map[string]*FieldCache),
		LocalFields: make(map[string]*FieldCache),
		RuleBlocks:  make(map[string]*Symbol),
	}
}

// FormCache is a UI view, optionally bound to an action.
type FormCache struct {
	Definition  *Symbol
	BoundAction string
}

// ActionState is a list's explicit setting for one action.
type ActionState int

const (
	ActionEnabled ActionState = iota + 1
	ActionDisabled
	ActionRestricted
	ActionConditional
)

// ListCache is a UI list with its per-action settings.
type ListCache struct {
	Definition  *Symbol
	Parent      string
	Actions     map[string]ActionState
	ActionOrder []string
}

func (l *ListCache) setAction(name string, state ActionState) {
	if _, seen := l.Actions[name]; !seen {
		l.ActionOrder = append(l.ActionOrder, name)
	}
	l.Actions[name] = state
}

// ImportSource records that a class imports into another class.
type ImportSource struct {
	File        string
	TargetClass string
	ViaAction   string
	Explicit    bool
	Ambiguous   bool
}

// ClassCache is the merged symbol space of one class name across every
// file that declares it.
type ClassCache struct {
	Name         string
	Fields       map[string]*FieldCache
	Relations    map[string]*RelationCache
	RuleBlocks   map[string]*Symbol
	Actions      map[string]*ActionCache
	Forms        map[string]*FormCache
	Lists        map[string]*ListCache
	Sets         map[string]*Symbol
	Definitions  []*Symbol
	Index        map[string][]Symbol
	ImportSource *ImportSource

	parts map[string]*ClassCache
}

// NewClassCache returns an empty cache for name.
func NewClassCache(name string) *ClassCache {
	return &ClassCache{
		Name:       name,
		Fields:     make(map[string]*FieldCache),
		Relations:  make(map[string]*RelationCache),
		RuleBlocks: make(map[string]*Symbol),
		Actions:    make(map[string]*ActionCache),
		Forms:      make(map[string]*FormCache),
		Lists:      make(map[string]*ListCache),
		Sets:       make(map[string]*Symbol),
		Index:      make(map[string][]Symbol),
	}
}

// IndexSymbol inserts sym into the per-file index keeping it sorted by
// start line.
func (c *ClassCache) IndexSymbol(file string, sym Symbol) {
	entries := c.Index[file]
	n := len(entries)
	if n == 0 || entries[n-1].Range.Start.Line < sym.Range.Start.Line {
		c.Index[file] = append(entries, sym)
		return
	}
	pos := sort.Search(n, func(i int) bool {
		return entries[i].Range.Start.Line >= sym.Range.Start.Line
	})
	if pos < n && entries[pos].Range.Start.Line == sym.Range.Start.Line {
		entries[pos] = sym
		return
	}
	entries = append(entries, Symbol{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = sym
	c.Index[file] = entries
}

// FindSymbolByLine returns the index of the entry containing line, or the
// insertion index and false when no entry contains it.
func (c *ClassCache) FindSymbolByLine(file string, line int) (int, bool) {
	entries := c.Index[file]
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		r := entries[mid].Range
		switch {
		case line < r.Start.Line:
			hi = mid
		case line > r.End.Line:
			lo = mid + 1
		default:
			return mid, true
		}
	}
	return lo, false
}

// SymbolAt returns the indexed symbol enclosing line, if any.
func (c *ClassCache) SymbolAt(file string, line int) (Symbol, bool) {
	idx, ok := c.FindSymbolByLine(file, line)
	if !ok {
		return Symbol{}, false
	}
	return c.Index[file][idx], true
}

// Files lists every file contributing to the class, sorted.
func (c *ClassCache) Files() []string {
	seen := make(map[string]struct{}, len(c.Definitions))
	var files []string
	for _, def := range c.Definitions {
		if _, ok := seen[def.File]; ok {
			continue
		}
		seen[def.File] = struct{}{}
		files = append(files, def.File)
	}
	sort.Strings(files)
	return files
}

// RemoveFile drops every entry attributable to file. Entries of the same
// name declared by other files become visible again.
func (c *ClassCache) RemoveFile(file string) {
	c.ensureParts()
	delete(c.parts, file)
	c.rebuild()
}

// Merge replaces each of other's files in c with other's contribution.
// Every file's contribution is kept, and the named maps are rebuilt from
// them in path order, so merge order does not change the result.
func (c *ClassCache) Merge(other *ClassCache) {
	if other == nil || other == c {
		return
	}
	c.ensureParts()
	for _, file := range other.Files() {
		if part, ok := other.parts[file]; ok {
			c.parts[file] = part
			continue
		}
		c.parts[file] = other.contribution(file)
	}
	c.rebuild()
}

func (c *ClassCache) ensureParts() {
	if c.parts != nil {
		return
	}
	c.parts = make(map[string]*ClassCache)
	for _, file := range c.Files() {
		c.parts[file] = c.contribution(file)
	}
}

// contribution copies out the entries file declared.
func (c *ClassCache) contribution(file string) *ClassCache {
	part := NewClassCache(c.Name)
	part.Fields = ownedBy(c.Fields, file, func(f *FieldCache) string { return f.Definition.File })
	part.Relations = ownedBy(c.Relations, file, func(r *RelationCache) string { return r.Definition.File })
	part.RuleBlocks = ownedBy(c.RuleBlocks, file, symbolFile)
	part.Actions = ownedBy(c.Actions, file, func(a *ActionCache) string { return a.Definition.File })
	part.Forms = ownedBy(c.Forms, file, func(f *FormCache) string { return f.Definition.File })
	part.Lists = ownedBy(c.Lists, file, func(l *ListCache) string { return l.Definition.File })
	part.Sets = ownedBy(c.Sets, file, symbolFile)
	for _, def := range c.Definitions {
		if def.File == file {
			part.Definitions = append(part.Definitions, def)
		}
	}
	if entries, ok := c.Index[file]; ok {
		part.Index[file] = append([]Symbol(nil), entries...)
	}
	if c.ImportSource != nil && c.ImportSource.File == file {
		part.ImportSource = c.ImportSource
	}
	return part
}

func symbolFile(s *Symbol) string { return s.File }

func ownedBy[V any](m map[string]V, file string, fileOf func(V) string) map[string]V {
	out := make(map[string]V)
	for name, v := range m {
		if fileOf(v) == file {
			out[name] = v
		}
	}
	return out
}

// rebuild recomputes the merged view from parts. For a shared name the
// file that sorts first wins, except that key and context stubs never
// shadow a declared field.
func (c *ClassCache) rebuild() {
	files := make([]string, 0, len(c.parts))
	for file := range c.parts {
		files = append(files, file)
	}
	sort.Strings(files)

	fresh := NewClassCache(c.Name)
	for _, file := range files {
		part := c.parts[file]
		for name, f := range part.Fields {
			if cur, ok := fresh.Fields[name]; !ok || (cur.stub() && !f.stub()) {
				fresh.Fields[name] = f
			}
		}
		fillMissing(fresh.Relations, part.Relations)
		fillMissing(fresh.RuleBlocks, part.RuleBlocks)
		fillMissing(fresh.Actions, part.Actions)
		fillMissing(fresh.Forms, part.Forms)
		fillMissing(fresh.Lists, part.Lists)
		fillMissing(fresh.Sets, part.Sets)
		fresh.Definitions = append(fresh.Definitions, part.Definitions...)
		for f, entries := range part.Index {
			fresh.Index[f] = append([]Symbol(nil), entries...)
		}
		if fresh.ImportSource == nil && part.ImportSource != nil {
			fresh.ImportSource = part.ImportSource
		}
	}
	fresh.parts = c.parts
	*c = *fresh
}

func fillMissing[V any](dst, src map[string]V) {
	for name, v := range src {
		if _, ok := dst[name]; !ok {
			dst[name] = v
		}
	}
}

// stub reports whether the field was synthesized from a key field.
func (f *FieldCache) stub() bool {
	return f.Storage == StorageKey || f.Storage == StorageContext
}
