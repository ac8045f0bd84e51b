package lpl

import (
	"regexp"
)

// MaxRelationHops bounds relation-to-relation chasing so cycles terminate.
const MaxRelationHops = 10

// ResolutionKind tags what a resolved token refers to.
type ResolutionKind int

const (
	ResolvedNone ResolutionKind = iota
	ResolvedField
	ResolvedRelation
	ResolvedAction
	ResolvedSection
	ResolvedClass
	ResolvedRuleBlock
)

var resolutionNames = [...]string{"none", "field", "relation", "action", "section", "class", "rule_block"}

func (k ResolutionKind) String() string {
	if int(k) < len(resolutionNames) {
		return resolutionNames[k]
	}
	return "unknown"
}

// Resolution is the answer to "what does this token refer to". It holds
// copies, never live cache entries.
type Resolution struct {
	Kind        ResolutionKind
	Name        string
	Class       string
	Definitions []Symbol
	HoverText   string
}

// Found reports whether anything was resolved.
func (r Resolution) Found() bool {
	return r.Kind != ResolvedNone
}

var (
	reInclude = regexp.MustCompile(`^\s*include\s+(\w+)`)
	reInvoke  = regexp.MustCompile(`^\s*invoke\s+(\w+)(?:\s+(\w+))?`)
)

// Resolve answers which declaration the token at pos in file refers to.
// lines is the current text of file.
func (r *Registry) Resolve(file string, lines []string, pos Position) Resolution {
	if pos.Line < 0 || pos.Line >= len(lines) {
		return Resolution{}
	}
	line := lines[pos.Line]
	token, start := wordAt(line, pos.Character)
	if token == "" {
		return Resolution{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := &resolver{
		registry: r,
		file:     file,
		line:     line,
		token:    token,
		active:   r.byFilePath[file],
	}
	return res.resolve(pos, start)
}

type resolver struct {
	registry *Registry
	file     string
	line     string
	token    string
	active   *ClassCache
	switched bool
	action   *ActionCache
}

func (rs *resolver) resolve(pos Position, start int) Resolution {
	if prev := precedingContext(rs.line, start); prev != "" {
		rs.switchContext(prev)
	}
	if rs.active == nil && !rs.switched {
		return rs.className()
	}
	if rs.active == nil {
		return Resolution{}
	}
	if !rs.switched {
		if res, ok := rs.actionScope(pos); ok {
			return res
		}
	}
	if m := reInclude.FindStringSubmatch(rs.line); m != nil && m[1] == rs.token {
		if rs.action != nil {
			if sym, ok := rs.action.RuleBlocks[rs.token]; ok {
				return ruleBlockResolution(rs.active.Name, sym)
			}
		}
		if sym, ok := rs.active.RuleBlocks[rs.token]; ok {
			return ruleBlockResolution(rs.active.Name, sym)
		}
	}
	if m := reInvoke.FindStringSubmatch(rs.line); m != nil && m[1] == rs.token {
		target := rs.active
		if m[2] != "" {
			target = rs.registry.byClassName[m[2]]
		}
		if target != nil {
			if a, ok := target.Actions[rs.token]; ok {
				return actionResolution(target.Name, a)
			}
		}
	}
	return rs.fallback()
}

// switchContext makes the class named by a "prev." prefix the active one,
// following relations to their concrete target class.
func (rs *resolver) switchContext(prev string) {
	if rs.active != nil {
		if rel, ok := rs.active.Relations[prev]; ok {
			if target := rs.registry.chase(rel); target != nil {
				rs.active = target
				rs.switched = true
			}
			return
		}
	}
	if cache, ok := rs.registry.byClassName[prev]; ok {
		rs.active = cache
		rs.switched = true
	}
}

// chase follows relation indirections up to MaxRelationHops and returns
// the concrete target class, or nil.
func (r *Registry) chase(rel *RelationCache) *ClassCache {
	for hops := 0; rel != nil && rel.TargetsRelation(); hops++ {
		if hops >= MaxRelationHops {
			return nil
		}
		owner, ok := r.byClassName[rel.TargetClass]
		if !ok {
			return nil
		}
		rel = owner.Relations[rel.TargetRelation]
	}
	if rel == nil || rel.TargetClass == "" {
		return nil
	}
	return r.byClassName[rel.TargetClass]
}

func (rs *resolver) actionScope(pos Position) (Resolution, bool) {
	sym, ok := rs.active.SymbolAt(rs.file, pos.Line)
	if !ok {
		return Resolution{}, false
	}
	switch sym.Kind {
	case KindMethod:
		rs.action = rs.active.Actions[sym.Name]
	case KindInterface:
		if form, ok := rs.active.Forms[sym.Name]; ok && form.BoundAction != "" {
			rs.action = rs.active.Actions[form.BoundAction]
		}
	}
	if rs.action == nil {
		return Resolution{}, false
	}
	if m := reInclude.FindStringSubmatch(rs.line); m != nil && m[1] == rs.token {
		if rb, ok := rs.action.RuleBlocks[rs.token]; ok {
			return ruleBlockResolution(rs.active.Name, rb), true
		}
	}
	if f, ok := rs.action.Parameters[rs.token]; ok {
		return fieldResolution(rs.active.Name, rs.token, f), true
	}
	if f, ok := rs.action.LocalFields[rs.token]; ok {
		return fieldResolution(rs.active.Name, rs.token, f), true
	}
	return Resolution{}, false
}

func (rs *resolver) fallback() Resolution {
	c := rs.active
	if rel, ok := c.Relations[rs.token]; ok {
		return Resolution{
			Kind:        ResolvedRelation,
			Name:        rs.token,
			Class:       c.Name,
			Definitions: []Symbol{*rel.Definition},
			HoverText:   rel.HoverText,
		}
	}
	if f, ok := c.Fields[rs.token]; ok {
		return fieldResolution(c.Name, rs.token, f)
	}
	if sym, ok := c.Sets[rs.token]; ok {
		return Resolution{
			Kind:        ResolvedSection,
			Name:        rs.token,
			Class:       c.Name,
			Definitions: []Symbol{*sym},
		}
	}
	if !rs.switched {
		if res := rs.className(); res.Found() {
			return res
		}
	}
	if a, ok := c.Actions[rs.token]; ok {
		return actionResolution(c.Name, a)
	}
	if sym, ok := c.RuleBlocks[rs.token]; ok {
		return ruleBlockResolution(c.Name, sym)
	}
	return Resolution{}
}

func (rs *resolver) className() Resolution {
	cache, ok := rs.registry.byClassName[rs.token]
	if !ok {
		return Resolution{}
	}
	res := Resolution{Kind: ResolvedClass, Name: cache.Name, Class: cache.Name}
	for _, def := range cache.Definitions {
		if def.Kind == KindClass {
			res.Definitions = append(res.Definitions, *def)
		}
	}
	if len(res.Definitions) == 0 {
		for _, def := range cache.Definitions {
			res.Definitions = append(res.Definitions, *def)
		}
	}
	res.HoverText = cache.Name + " is a BusinessClass"
	return res
}

func fieldResolution(class, name string, f *FieldCache) Resolution {
	return Resolution{
		Kind:        ResolvedField,
		Name:        name,
		Class:       class,
		Definitions: []Symbol{*f.Definition},
		HoverText:   f.HoverText,
	}
}

func actionResolution(class string, a *ActionCache) Resolution {
	return Resolution{
		Kind:        ResolvedAction,
		Name:        a.Definition.Name,
		Class:       class,
		Definitions: []Symbol{*a.Definition},
		HoverText:   a.HoverText,
	}
}

func ruleBlockResolution(class string, sym *Symbol) Resolution {
	return Resolution{
		Kind:        ResolvedRuleBlock,
		Name:        sym.Name,
		Class:       class,
		Definitions: []Symbol{*sym},
		HoverText:   sym.Name,
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// wordAt returns the identifier under character and its start offset.
func wordAt(line string, character int) (string, int) {
	if character < 0 || character > len(line) {
		return "", 0
	}
	start, end := character, character
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	for end < len(line) && isWordByte(line[end]) {
		end++
	}
	if start == end {
		return "", 0
	}
	return line[start:end], start
}

// precedingContext returns the identifier before a '.' that immediately
// precedes the token starting at start.
func precedingContext(line string, start int) string {
	if start == 0 || line[start-1] != '.' {
		return ""
	}
	end := start - 1
	begin := end
	for begin > 0 && isWordByte(line[begin-1]) {
		begin--
	}
	return line[begin:end]
}
