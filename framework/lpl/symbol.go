// Package lpl parses LPL business class documents into a symbol registry
// and answers outline, definition, hover and validation queries over it.
package lpl

import (
	"encoding/json"
	"fmt"
)

// Position is a 0-based line/character pair.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range spans from a declaring line to the last line of its body.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// ContainsLine reports whether line falls inside the range, inclusive.
func (r Range) ContainsLine(line int) bool {
	return line >= r.Start.Line && line <= r.End.Line
}

// SymbolKind classifies declarations.
type SymbolKind int

const (
	KindClass SymbolKind = iota + 1
	KindSection
	KindField
	KindProperty
	KindVariable
	KindBoolean
	KindMethod
	KindFunction
	KindInterface
	KindEnum
	KindEnumMember
	KindKey
)

var kindNames = map[SymbolKind]string{
	KindClass:      "class",
	KindSection:    "section",
	KindField:      "field",
	KindProperty:   "property",
	KindVariable:   "variable",
	KindBoolean:    "boolean",
	KindMethod:     "method",
	KindFunction:   "function",
	KindInterface:  "interface",
	KindEnum:       "enum",
	KindEnumMember: "enum_member",
	KindKey:        "key",
}

func (k SymbolKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseSymbolKind is the inverse of SymbolKind.String.
func ParseSymbolKind(name string) SymbolKind {
	for kind, n := range kindNames {
		if n == name {
			return kind
		}
	}
	return 0
}

// MarshalJSON encodes the kind by name.
func (k SymbolKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON accepts a kind name or its numeric value.
func (k *SymbolKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("symbol kind: %w", err)
		}
		*k = SymbolKind(n)
		return nil
	}
	kind := ParseSymbolKind(name)
	if kind == 0 {
		return fmt.Errorf("unknown symbol kind %q", name)
	}
	*k = kind
	return nil
}

// Symbol is one declaration found in a document.
type Symbol struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Container string     `json:"container"`
	File      string     `json:"file"`
	Range     Range      `json:"range"`
	// Detail marks leaves hidden from the outline unless deep detail is on.
	Detail bool `json:"detail"`
}

// NameRange is the span of the symbol's name on its declaring line.
func (s Symbol) NameRange() Range {
	start := s.Range.Start
	return Range{
		Start: start,
		End:   Position{Line: start.Line, Character: start.Character + len(s.Name)},
	}
}
