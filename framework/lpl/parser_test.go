package lpl

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// locate returns the position of the first occurrence of needle in text.
func locate(t *testing.T, text, needle string) Position {
	t.Helper()
	for i, line := range SplitLines(text) {
		if col := strings.Index(line, needle); col >= 0 {
			return Position{Line: i, Character: col}
		}
	}
	t.Fatalf("%q not found", needle)
	return Position{}
}

func names(symbols []Symbol) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = s.Name
	}
	return out
}

func findSymbol(t *testing.T, symbols []Symbol, name string) Symbol {
	t.Helper()
	for _, s := range symbols {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("symbol %s not found", name)
	return Symbol{}
}

const persistentOnly = `Foo is a BusinessClass
  Persistent Fields
    bar is a String
    baz is a Number`

func TestParseOutlineHidesDetailLeaves(t *testing.T) {
	res := Parse("Foo.busclass", persistentOnly, Options{})
	require.Equal(t, "Foo", res.ClassName())

	shallow := res.Outline(false)
	require.Equal(t, []string{"Foo", "Persistent Fields"}, names(shallow))
	require.Equal(t, KindClass, shallow[0].Kind)
	require.Equal(t, Range{Start: Position{0, 0}, End: Position{3, 19}}, shallow[0].Range)
	require.Equal(t, KindSection, shallow[1].Kind)
	require.Equal(t, 1, shallow[1].Range.Start.Line)
	require.Equal(t, 3, shallow[1].Range.End.Line)

	deep := res.Outline(true)
	require.Equal(t, []string{"Foo", "Persistent Fields", "bar", "baz"}, names(deep))
	bar := findSymbol(t, deep, "bar")
	require.Equal(t, KindField, bar.Kind)
	require.Equal(t, "Foo", bar.Container)
	require.Equal(t, Range{Start: Position{2, 4}, End: Position{2, 19}}, bar.Range)

	require.Contains(t, res.Class.Fields, "bar")
	require.Equal(t, "bar is a String", res.Class.Fields["bar"].HoverText)
	require.Equal(t, StoragePersistent, res.Class.Fields["baz"].Storage)
}

const actionClass = `Foo is a BusinessClass
    Actions
        DoThing is an Action
            Parameters
                x is a Number`

func TestParseActionParametersAreDetail(t *testing.T) {
	res := Parse("Foo.busclass", actionClass, Options{})
	require.Equal(t, []string{"Foo", "Actions", "DoThing"}, names(res.Outline(false)))
	require.Equal(t, []string{"Foo", "Actions", "DoThing", "Parameters", "x"}, names(res.Outline(true)))

	action := res.Class.Actions["DoThing"]
	require.NotNil(t, action)
	require.Equal(t, KindMethod, action.Definition.Kind)
	require.Contains(t, action.Parameters, "x")
	require.NotContains(t, res.Class.Fields, "x")
	require.Equal(t, 4, action.Definition.Range.End.Line)
}

const sectionedClass = `Foo is a BusinessClass
    Persistent Fields
        bar is a String
        baz is Numeric 10
    Conditions
        IsActive
            when (bar entered)
    Relations
        owner
            one-to-one Bar
    Derived Fields
        total is a ComputeField
            baz + 1
    Actions
        DoThing is an Action
            restricted
            Parameters
                x is a Number
            Action Rules
                invoke Import Bar`

func TestParseSectionsPartitionTheClass(t *testing.T) {
	res := Parse("Foo.busclass", sectionedClass, Options{})
	var sections []Symbol
	for _, s := range res.Outline(true) {
		if s.Kind == KindSection && s.Range.Start.Character == 4 {
			sections = append(sections, s)
		}
	}
	require.Equal(t, []string{"Persistent Fields", "Conditions", "Relations", "Derived Fields", "Actions"}, names(sections))
	for i := 1; i < len(sections); i++ {
		require.Less(t, sections[i-1].Range.End.Line, sections[i].Range.Start.Line)
	}
	lines := SplitLines(sectionedClass)
	for n := 1; n < len(lines); n++ {
		covered := 0
		for _, s := range sections {
			if s.Range.ContainsLine(n) {
				covered++
			}
		}
		require.Equal(t, 1, covered, "line %d", n)
	}
	require.Equal(t, len(lines)-1, sections[len(sections)-1].Range.End.Line)
}

func TestParseSectionContents(t *testing.T) {
	res := Parse("Foo.busclass", sectionedClass, Options{})
	c := res.Class

	cond := c.Fields["IsActive"]
	require.NotNil(t, cond)
	require.Equal(t, StorageCondition, cond.Storage)
	require.Equal(t, KindBoolean, cond.Definition.Kind)
	require.Equal(t, 6, cond.Definition.Range.End.Line)

	require.Equal(t, StorageDerived, c.Fields["total"].Storage)

	owner := c.Relations["owner"]
	require.NotNil(t, owner)
	require.Equal(t, "Bar", owner.TargetClass)
	require.False(t, owner.TargetsRelation())

	action := c.Actions["DoThing"]
	require.True(t, action.Restricted)
	require.Contains(t, action.Parameters, "x")

	// only CreateSingle actions make the class an import source
	require.Nil(t, c.ImportSource)
}

func TestParseIndexIsSortedAndDisjoint(t *testing.T) {
	res := Parse("Foo.busclass", sectionedClass, Options{})
	entries := res.Class.Index["Foo.busclass"]
	require.Equal(t, []string{"bar", "baz", "IsActive", "owner", "total", "DoThing"}, names(entries))
	for i := 1; i < len(entries); i++ {
		require.Less(t, entries[i-1].Range.End.Line, entries[i].Range.Start.Line)
	}
}

const uiClass = `Foo is a BusinessClass
    Actions
        Approve is an Action
            restricted
        Edit is an Action
            valid when (bar entered)
        Purge is an Action
    Ui
        MainList is a List
            Actions
                Approve
                Purge is disabled
            ChildList is a List
                Actions
                    Edit
        EditForm is a Form
            action is Edit
        WarningMessage is a ConfirmationMessage`

func TestParseUIContainers(t *testing.T) {
	res := Parse("Foo.busclass", uiClass, Options{})
	c := res.Class

	main := c.Lists["MainList"]
	require.NotNil(t, main)
	require.Empty(t, main.Parent)
	require.Equal(t, []string{"Approve", "Purge"}, main.ActionOrder)
	require.Equal(t, ActionEnabled, main.Actions["Approve"])
	require.Equal(t, ActionDisabled, main.Actions["Purge"])

	child := c.Lists["ChildList"]
	require.NotNil(t, child)
	require.Equal(t, "MainList", child.Parent)
	require.Equal(t, ActionEnabled, child.Actions["Edit"])

	require.Equal(t, "Edit", c.Forms["EditForm"].BoundAction)
	require.Contains(t, c.Forms, "WarningMessage")
	require.Equal(t, "bar entered", c.Actions["Edit"].ValidWhen)

	indexed := names(c.Index["Foo.busclass"])
	require.Equal(t, []string{"Approve", "Edit", "Purge", "MainList", "EditForm", "WarningMessage"}, indexed)
}

func TestParseCommentsAndDirectivesAreSkipped(t *testing.T) {
	text := `// leading comment
Foo is a BusinessClass
#ifdef EXTRA
    Persistent Fields
        // bar is ignored
        bar is a String // trailing note

        baz is a String
#endif`
	res := Parse("Foo.busclass", text, Options{})
	require.Equal(t, []string{"Foo", "Persistent Fields", "bar", "baz"}, names(res.Outline(true)))
	bar := findSymbol(t, res.Symbols, "bar")
	require.Equal(t, 5, bar.Range.Start.Line)
	require.Equal(t, 5, bar.Range.End.Line)
	require.Equal(t, "bar is a String // trailing note", res.Class.Fields["bar"].HoverText)
	section := findSymbol(t, res.Symbols, "Persistent Fields")
	require.Equal(t, 7, section.Range.End.Line)
}

func TestParseTabsUseTabWidth(t *testing.T) {
	text := "Foo is a BusinessClass\n\tPersistent Fields\n\t\tbar is a String\n        baz is a String"
	res := Parse("Foo.busclass", text, Options{TabWidth: 4})
	require.Contains(t, res.Class.Fields, "bar")
	require.Contains(t, res.Class.Fields, "baz")

	res = Parse("Foo.busclass", text, Options{TabWidth: 8})
	require.Contains(t, res.Class.Fields, "bar")
	require.NotContains(t, res.Class.Fields, "baz")
}

func TestParseSecondClassIsNotLinked(t *testing.T) {
	text := `Foo is a BusinessClass
    Persistent Fields
        bar is a String
Other is a BusinessClass
    Persistent Fields
        qux is a String`
	res := Parse("Foo.busclass", text, Options{})
	require.Equal(t, "Foo", res.ClassName())
	other := findSymbol(t, res.Symbols, "Other")
	require.Equal(t, KindClass, other.Kind)
	require.Contains(t, res.Class.Fields, "bar")
	require.NotContains(t, res.Class.Fields, "qux")
}

func TestParseNoClass(t *testing.T) {
	res := Parse("notes.busclass", "just some text\n  more text", Options{})
	require.Nil(t, res.Class)
	require.Empty(t, res.ClassName())
	require.Empty(t, res.Symbols)
}

const keyField = `Customer is a KeyField
    business class is CustomerMaster
    Context
        company
        region is Alpha 4
    Representation
        company "-" Customer`

func TestParseKeyField(t *testing.T) {
	res := Parse("Customer.keyfield", keyField, Options{})
	require.NotNil(t, res.KeyField)
	require.Equal(t, "CustomerMaster", res.KeyField.ClassName)
	require.Equal(t, `company "-" Customer`, res.KeyField.HoverText)
	require.Equal(t, "CustomerMaster", res.ClassName())

	key := res.Class.Fields["Customer"]
	require.NotNil(t, key)
	require.Equal(t, StorageKey, key.Storage)
	require.Equal(t, "CustomerMaster", key.Definition.Container)
	require.Equal(t, StorageContext, res.Class.Fields["company"].Storage)
	require.Equal(t, StorageContext, res.Class.Fields["region"].Storage)

	sym, ok := res.Class.SymbolAt("Customer.keyfield", 4)
	require.True(t, ok)
	require.Equal(t, "Customer", sym.Name)

	require.Equal(t, []string{"Customer"}, names(res.Outline(false)))
	require.Equal(t, []string{"Customer", "Context", "company", "region", "Representation"}, names(res.Outline(true)))
}

func TestParseContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := ParseContext(ctx, "Foo.busclass", persistentOnly, Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, res)
}

func TestSplitLinesDropsCarriageReturns(t *testing.T) {
	require.Equal(t, []string{"a", "b", ""}, SplitLines("a\r\nb\r\n"))
}
