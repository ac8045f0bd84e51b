package lpl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const importTarget = `Target is a BusinessClass
    Persistent Fields
        a is Alpha 10
        b is Alpha 10
        c is Alpha 10
        note is Alpha 40 // @Import=Exclude
        label is Alpha 30 // @Import=Description
    Transient Fields
        scratch is Alpha 10`

const importer = `Importer is a BusinessClass
    Persistent Fields
        a is Alpha 10
        b is Alpha 10
        Description is Alpha 30
    Actions
        CreateSingleTarget is an Action
            Action Rules
                if (a entered)
                    invoke Import Target`

func TestValidateImportsReportsMissingField(t *testing.T) {
	r := NewRegistry(nil)
	link(t, r, "Target.busclass", importTarget)
	link(t, r, "Importer.busclass", importer)

	diags := r.ValidateImports()
	require.Len(t, diags, 1)
	d := diags[0]
	require.Equal(t, "Target.busclass", d.File)
	require.Equal(t, Range{Start: Position{4, 8}, End: Position{4, 9}}, d.Range)
	require.Equal(t, SeverityWarning, d.Severity)
	require.Contains(t, d.Message, "c")
	require.Contains(t, d.Message, "Importer")
}

func TestValidateImportsExplicitAnnotationWins(t *testing.T) {
	r := NewRegistry(nil)
	link(t, r, "Target.busclass", importTarget)
	link(t, r, "Other.busclass", `Other is a BusinessClass
    Persistent Fields
        z is Alpha 1`)
	link(t, r, "Importer.busclass", `Importer is a BusinessClass
    Persistent Fields
        a is Alpha 10
        b is Alpha 10
        c is Alpha 10
        Description is Alpha 30
    Actions
        CreateSingleTarget is an Action // @Import=Target
            Action Rules
                invoke Create Other`)

	src := r.byClassName["Importer"].ImportSource
	require.NotNil(t, src)
	require.True(t, src.Explicit)
	require.Equal(t, "Target", src.TargetClass)
	require.Empty(t, r.ValidateImports())
}

func TestValidateImportsUnknownTarget(t *testing.T) {
	r := NewRegistry(nil)
	link(t, r, "Importer.busclass", `Importer is a BusinessClass
    Actions
        CreateSingleThing is an Action
            Action Rules
                invoke Create`)

	diags := r.ValidateImports()
	require.Len(t, diags, 1)
	require.Equal(t, "Importer.busclass", diags[0].File)
	require.Equal(t, 2, diags[0].Range.Start.Line)
	require.Contains(t, diags[0].Message, "@Import")
}

func TestValidateImportsAmbiguousTarget(t *testing.T) {
	r := NewRegistry(nil)
	link(t, r, "Importer.busclass", `Importer is a BusinessClass
    Actions
        CreateSingleThing is an Action
            Action Rules
                invoke Create Alpha
                invoke Create Beta`)

	src := r.byClassName["Importer"].ImportSource
	require.True(t, src.Ambiguous)
	diags := r.ValidateImports()
	require.Len(t, diags, 1)
	require.Contains(t, diags[0].Message, "@Import")
}

func TestValidateImportsMissingTargetClass(t *testing.T) {
	r := NewRegistry(nil)
	link(t, r, "Importer.busclass", importer)

	diags := r.ValidateImports()
	require.Len(t, diags, 1)
	require.Contains(t, diags[0].Message, "Target")
	require.Contains(t, diags[0].Message, "not found")
}

func TestValidateCombinesChecks(t *testing.T) {
	r := NewRegistry(nil)
	link(t, r, "x/a/Target.busclass", importTarget)
	link(t, r, "y/b/Target.busclass", importTarget)
	link(t, r, "Importer.busclass", importer)

	diags := r.Validate()
	require.Len(t, diags, 3)
	require.Equal(t, "x/a/Target.busclass", diags[0].File)
	require.Equal(t, 0, diags[0].Range.Start.Line)
	require.Equal(t, "x/a/Target.busclass", diags[1].File)
	require.Equal(t, 4, diags[1].Range.Start.Line)
	require.Equal(t, "y/b/Target.busclass", diags[2].File)
}

func TestValidateImportsSeesFieldsBehindKeyFieldContext(t *testing.T) {
	r := NewRegistry(nil)
	link(t, r, "k/TargetKey.keyfield", `TargetKey is a KeyField
    business class is Target
    Context
        c`)
	link(t, r, "z/bl/Target.busclass", importTarget)
	link(t, r, "z/bl/Importer.busclass", importer)

	diags := r.ValidateImports()
	require.Len(t, diags, 1)
	require.Equal(t, "z/bl/Target.busclass", diags[0].File)
	require.Contains(t, diags[0].Message, "field c ")
}
