package lpl

import (
	"fmt"
	"sort"
)

// Severity mirrors the LSP diagnostic severities this package emits.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// Diagnostic is a problem anchored in a file.
type Diagnostic struct {
	File     string   `json:"file"`
	Range    Range    `json:"range"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidateImports checks every import source class against the persistent
// fields of its target class. Results are sorted by file and line.
func (r *Registry) ValidateImports() []Diagnostic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var diags []Diagnostic
	for _, name := range sortedKeys(r.byClassName) {
		importer := r.byClassName[name]
		src := importer.ImportSource
		if src == nil {
			continue
		}
		diags = append(diags, r.validateImport(importer, src)...)
	}
	sortDiagnostics(diags)
	return diags
}

func (r *Registry) validateImport(importer *ClassCache, src *ImportSource) []Diagnostic {
	anchor := Diagnostic{File: src.File, Severity: SeverityWarning}
	if action, ok := importer.Actions[src.ViaAction]; ok {
		anchor.File = action.Definition.File
		anchor.Range = action.Definition.NameRange()
	}
	if src.TargetClass == "" {
		anchor.Message = fmt.Sprintf("cannot determine which class %s imports into; add an explicit @Import=<ClassName> annotation to action %s",
			importer.Name, src.ViaAction)
		return []Diagnostic{anchor}
	}
	target, ok := r.byClassName[src.TargetClass]
	if !ok {
		anchor.Message = fmt.Sprintf("import target class %s of action %s was not found", src.TargetClass, src.ViaAction)
		return []Diagnostic{anchor}
	}
	var diags []Diagnostic
	for _, fieldName := range sortedKeys(target.Fields) {
		field := target.Fields[fieldName]
		if field.Storage != StoragePersistent || field.ImportAlias == ImportExclude {
			continue
		}
		expected := fieldName
		if field.ImportAlias != "" {
			expected = field.ImportAlias
		}
		if _, ok := importer.Fields[expected]; ok {
			continue
		}
		diags = append(diags, Diagnostic{
			File:     field.Definition.File,
			Range:    field.Definition.NameRange(),
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("field %s is not declared by importing class %s", expected, importer.Name),
		})
	}
	return diags
}

// Validate runs every cross-class check.
func (r *Registry) Validate() []Diagnostic {
	diags := append(r.ValidateImports(), r.DuplicateClasses()...)
	sortDiagnostics(diags)
	return diags
}

func sortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].File != diags[j].File {
			return diags[i].File < diags[j].File
		}
		return diags[i].Range.Start.Line < diags[j].Range.Start.Line
	})
}
