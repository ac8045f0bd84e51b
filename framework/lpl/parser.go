package lpl

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Options configures a parse.
type Options struct {
	TabWidth int
	Logger   *zap.Logger
}

// KeyFieldCache is the result of parsing the key-field dialect.
type KeyFieldCache struct {
	Definition     *Symbol
	ClassName      string
	Context        []*Symbol
	Representation []string
	HoverText      string
}

// ParseResult is everything one parse of one file produced.
type ParseResult struct {
	File     string
	Class    *ClassCache
	KeyField *KeyFieldCache
	Symbols  []Symbol
	Lines    []string
}

// ClassName returns the declared class, or "" when the file declared none.
func (r *ParseResult) ClassName() string {
	if r == nil || r.Class == nil {
		return ""
	}
	return r.Class.Name
}

// Outline lists the file's symbols ordered by position. Detail-only leaves
// are included only when deep is set.
func (r *ParseResult) Outline(deep bool) []Symbol {
	if r == nil {
		return nil
	}
	out := make([]Symbol, 0, len(r.Symbols))
	for _, sym := range r.Symbols {
		if sym.Detail && !deep {
			continue
		}
		out = append(out, sym)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Range, out[j].Range
		if a.Start.Line != b.Start.Line {
			return a.Start.Line < b.Start.Line
		}
		return a.End.Line > b.End.Line
	})
	return out
}

// frame is one open scope on the indentation stack. scope carries the
// payload of heading-kind frames; leaves leave it nil.
type frame struct {
	headingIndent int
	contentIndent int
	hasContent    bool
	block         blockType
	pending       *Symbol
	scope         scope
	indexed       bool
}

type scope interface {
	isScope()
}

type classScope struct{ cache *ClassCache }

type actionScope struct{ action *ActionCache }

type relationScope struct{ relation *RelationCache }

type uiScope struct {
	form *FormCache
	list *ListCache
}

type keyFieldScope struct{ key *KeyFieldCache }

func (*classScope) isScope()    {}
func (*actionScope) isScope()   {}
func (*relationScope) isScope() {}
func (*uiScope) isScope()       {}
func (*keyFieldScope) isScope() {}

// closer is implemented by scopes that finish work when their frame pops.
type closer interface {
	close(p *parser)
}

func nearest[T scope](stack []*frame) T {
	for i := len(stack) - 1; i >= 0; i-- {
		if s, ok := stack[i].scope.(T); ok {
			return s
		}
	}
	var zero T
	return zero
}

type parser struct {
	file      string
	opts      Options
	logger    *zap.Logger
	stack     []*frame
	last      sourceLine
	className string
	class     *ClassCache
	result    *ParseResult
}

// Parse parses text as the contents of file.
func Parse(file, text string, opts Options) *ParseResult {
	result, _ := ParseLines(context.Background(), file, SplitLines(text), opts)
	return result
}

// ParseContext is Parse with cancellation checked between lines. A
// cancelled parse returns ctx.Err() and no result.
func ParseContext(ctx context.Context, file, text string, opts Options) (*ParseResult, error) {
	return ParseLines(ctx, file, SplitLines(text), opts)
}

// SplitLines splits text on newlines, dropping carriage returns.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// ParseLines runs the indentation stack parser over lines.
func ParseLines(ctx context.Context, file string, lines []string, opts Options) (*ParseResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &parser{
		file:   file,
		opts:   opts,
		logger: logger,
		stack:  []*frame{{headingIndent: -1, block: blockFile}},
		result: &ParseResult{File: file, Lines: lines},
	}
	for number, text := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if Classify(text) != LineContent {
			continue
		}
		p.step(newSourceLine(number, text, opts.TabWidth))
	}
	for len(p.stack) > 1 {
		p.pop()
	}
	p.result.Class = p.class
	return p.result, nil
}

func (p *parser) top() *frame {
	return p.stack[len(p.stack)-1]
}

func (p *parser) step(ln sourceLine) {
	for len(p.stack) > 1 && ln.indent <= p.top().headingIndent && p.top().pending != nil {
		p.pop()
	}
	top := p.top()
	atContent := !top.hasContent || ln.indent == top.contentIndent
	p.dispatch(top, ln, atContent)
	p.last = ln
}

func (p *parser) dispatch(top *frame, ln sourceLine, atContent bool) {
	rules, ok := grammar[top.block]
	if !ok {
		p.logger.Debug("no grammar for block",
			zap.String("file", p.file),
			zap.Int("line", ln.number),
			zap.Stringer("block", top.block))
		return
	}
	for _, rule := range rules {
		if !atContent && !rule.anyDepth {
			continue
		}
		m := rule.match(ln)
		if m == nil {
			continue
		}
		child := rule.apply(p, ln, m)
		if child == nil {
			break
		}
		child.indexed = rule.indexed
		if !top.hasContent {
			top.contentIndent = ln.indent
			top.hasContent = true
		}
		p.stack = append(p.stack, child)
		return
	}
	if atContent && !top.hasContent {
		top.contentIndent = ln.indent
		top.hasContent = true
	}
}

func (p *parser) pop() {
	top := p.top()
	p.stack = p.stack[:len(p.stack)-1]
	sym := top.pending
	if sym == nil {
		return
	}
	if p.last.number >= sym.Range.Start.Line {
		sym.Range.End = Position{Line: p.last.number, Character: p.last.length}
	}
	if c, ok := top.scope.(closer); ok {
		c.close(p)
	}
	p.result.Symbols = append(p.result.Symbols, *sym)
	if top.indexed && p.class != nil {
		p.class.IndexSymbol(p.file, *sym)
	}
}

func (p *parser) newSymbol(ln sourceLine, name string, kind SymbolKind, detail bool) *Symbol {
	return &Symbol{
		Name:      name,
		Kind:      kind,
		Container: p.className,
		File:      p.file,
		Range: Range{
			Start: Position{Line: ln.number, Character: ln.column},
			End:   Position{Line: ln.number, Character: ln.length},
		},
		Detail: detail,
	}
}

func (p *parser) open(ln sourceLine, block blockType, sym *Symbol, sc scope) *frame {
	return &frame{
		headingIndent: ln.indent,
		block:         block,
		pending:       sym,
		scope:         sc,
	}
}

func (p *parser) ensureClass(name string) *ClassCache {
	if p.class == nil {
		p.class = NewClassCache(name)
		p.className = name
	}
	return p.class
}
