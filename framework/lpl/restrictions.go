package lpl

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
)

// Cell values of the restriction report.
const (
	CellEnabled     = "X"
	CellDisabled    = ""
	CellRestricted  = "R"
	CellConditional = "V"
)

// RestrictionRow is one action's line in the report.
type RestrictionRow struct {
	Action     string
	Restricted bool
	ValidWhen  string
	Cells      []string
}

// RestrictionReport tabulates how every UI list of a class exposes each
// action.
type RestrictionReport struct {
	Class string
	Lists []string
	Rows  []RestrictionRow
}

// RestrictionReport builds the report for the named class.
func (r *Registry) RestrictionReport(className string) (*RestrictionReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cache, ok := r.byClassName[className]
	if !ok {
		return nil, fmt.Errorf("%s: %w", className, ErrNoClass)
	}
	lists := make([]*ListCache, 0, len(cache.Lists))
	for _, l := range cache.Lists {
		lists = append(lists, l)
	}
	sort.Slice(lists, func(i, j int) bool { return symbolLess(lists[i].Definition, lists[j].Definition) })
	actions := make([]*ActionCache, 0, len(cache.Actions))
	for _, a := range cache.Actions {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return symbolLess(actions[i].Definition, actions[j].Definition) })

	report := &RestrictionReport{Class: className}
	for _, l := range lists {
		report.Lists = append(report.Lists, l.Definition.Name)
	}
	for _, a := range actions {
		row := RestrictionRow{
			Action:     a.Definition.Name,
			Restricted: a.Restricted,
			ValidWhen:  a.ValidWhen,
		}
		for _, l := range lists {
			row.Cells = append(row.Cells, listCell(a, l, cache.Lists))
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

func symbolLess(a, b *Symbol) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	return a.Range.Start.Line < b.Range.Start.Line
}

// listCell decides one cell. An explicit setting in the list wins, though a
// plain listing of an action with a valid-when condition stays conditional;
// failing
// that, the nearest ancestor list with a setting for the action decides,
// and only its disablement of a non-restricted action is inherited.
func listCell(a *ActionCache, list *ListCache, lists map[string]*ListCache) string {
	name := a.Definition.Name
	if st, ok := list.Actions[name]; ok {
		if st == ActionEnabled && a.ValidWhen != "" {
			return CellConditional
		}
		return stateCell(st)
	}
	parent := list.Parent
	for hops := 0; parent != "" && hops < len(lists); hops++ {
		base, ok := lists[parent]
		if !ok {
			break
		}
		if st, ok := base.Actions[name]; ok {
			if st == ActionDisabled && !a.Restricted {
				return CellDisabled
			}
			break
		}
		parent = base.Parent
	}
	switch {
	case a.Restricted:
		return CellDisabled
	case a.ValidWhen != "":
		return CellConditional
	default:
		return CellEnabled
	}
}

func stateCell(st ActionState) string {
	switch st {
	case ActionEnabled:
		return CellEnabled
	case ActionRestricted:
		return CellRestricted
	case ActionConditional:
		return CellConditional
	default:
		return CellDisabled
	}
}

// WriteCSV writes the report with header
// ActionName,IsRestricted,ValidWhen,<lists...>.
func (rep *RestrictionReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{"ActionName", "IsRestricted", "ValidWhen"}, rep.Lists...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rep.Rows {
		restricted := ""
		if row.Restricted {
			restricted = CellEnabled
		}
		record := append([]string{row.Action, restricted, row.ValidWhen}, row.Cells...)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
