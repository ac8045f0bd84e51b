package tui

import (
	"fmt"
	"strings"

	"github.com/lexcodex/lplsense/framework/index"
	"github.com/lexcodex/lplsense/framework/lpl"
)

func renderClassList(reg *lpl.Registry, filter string) string {
	names := reg.ClassNames()
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Classes"))
	b.WriteString("\n")
	shown := 0
	lower := strings.ToLower(filter)
	for _, name := range names {
		if lower != "" && !strings.Contains(strings.ToLower(name), lower) {
			continue
		}
		b.WriteString("  " + name + "\n")
		shown++
	}
	if shown == 0 {
		b.WriteString(dimStyle.Render("  no classes"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderClass(reg *lpl.Registry, name string) string {
	sum, err := reg.Summary(name)
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(sum.Name))
	b.WriteString("\n")
	for _, f := range sum.Files {
		b.WriteString("  " + filePathStyle.Render(f) + "\n")
	}
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString(sectionHeaderStyle.Render(title) + "\n")
		for _, item := range items {
			b.WriteString("  " + item + "\n")
		}
	}
	section("Fields", sum.Fields)
	section("Relations", sum.Relations)
	section("Actions", sum.Actions)
	section("Forms", sum.Forms)
	section("Lists", sum.Lists)
	return strings.TrimRight(b.String(), "\n")
}

func renderReport(rep *lpl.RestrictionReport) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(rep.Class + " restrictions"))
	b.WriteString("\n")
	header := append([]string{"Action", "Restricted", "ValidWhen"}, rep.Lists...)
	b.WriteString(sectionHeaderStyle.Render(strings.Join(header, " | ")))
	b.WriteString("\n")
	for _, row := range rep.Rows {
		restricted := ""
		if row.Restricted {
			restricted = lpl.CellEnabled
		}
		cells := []string{row.Action, restricted, row.ValidWhen}
		for _, cell := range row.Cells {
			cells = append(cells, renderCell(cell))
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCell(cell string) string {
	switch cell {
	case lpl.CellEnabled:
		return enabledStyle.Render(cell)
	case lpl.CellConditional:
		return warningStyle.Render(cell)
	case lpl.CellRestricted:
		return errorStyle.Render(cell)
	default:
		return dimStyle.Render("-")
	}
}

func renderDiagnostics(diags []lpl.Diagnostic) string {
	if len(diags) == 0 {
		return enabledStyle.Render("no problems found")
	}
	var b strings.Builder
	for _, d := range diags {
		style := warningStyle
		if d.Severity == lpl.SeverityError {
			style = errorStyle
		}
		fmt.Fprintf(&b, "%s:%d %s\n", filePathStyle.Render(d.File), d.Range.Start.Line+1, style.Render(d.Message))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderOutline(file string, symbols []lpl.Symbol) string {
	var b strings.Builder
	b.WriteString(filePathStyle.Render(file))
	b.WriteString("\n")
	for _, sym := range symbols {
		indent := "  "
		if sym.Container != "" && sym.Kind != lpl.KindClass {
			indent = "    "
		}
		fmt.Fprintf(&b, "%s%s %s %s\n", indent, sym.Name, dimStyle.Render(sym.Kind.String()),
			dimStyle.Render(fmt.Sprintf("%d", sym.Range.Start.Line+1)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSymbolRecords(records []*index.SymbolRecord) string {
	if len(records) == 0 {
		return dimStyle.Render("no matching symbols")
	}
	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "%s %s %s\n", rec.Name, dimStyle.Render(rec.Kind.String()), dimStyle.Render(rec.Path))
	}
	return strings.TrimRight(b.String(), "\n")
}
