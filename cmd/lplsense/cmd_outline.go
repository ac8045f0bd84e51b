package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexcodex/lplsense/cmd/internal/cliutils"
	"github.com/lexcodex/lplsense/framework/lpl"
)

func newOutlineCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "outline <file>",
		Short: "Print the symbol outline of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openWorkspace(cmd, cliutils.SessionOptions{})
			if err != nil {
				return err
			}
			defer session.Close()
			path := cliutils.ResolvePath(session.Config.Workspace, args[0])
			doc, err := session.Manager.IndexFile(cmd.Context(), path)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("%s is excluded from the workspace", args[0])
			}
			symbols := doc.Outline(session.Config.DeepDetail)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(symbols)
			}
			if len(symbols) == 0 {
				return errors.New("no symbols found")
			}
			printOutline(cmd, symbols)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

// printOutline indents each symbol under the nearest enclosing one.
func printOutline(cmd *cobra.Command, symbols []lpl.Symbol) {
	out := cmd.OutOrStdout()
	var stack []lpl.Range
	for _, sym := range symbols {
		for len(stack) > 0 && !contains(stack[len(stack)-1], sym.Range) {
			stack = stack[:len(stack)-1]
		}
		indent := strings.Repeat("  ", len(stack))
		name := sym.Name
		switch sym.Kind {
		case lpl.KindClass:
			name = classStyle.Render(name)
		case lpl.KindSection:
			name = sectionStyle.Render(name)
		}
		fmt.Fprintf(out, "%s%s %s %s\n", indent, name,
			kindStyle.Render(sym.Kind.String()),
			rangeStyle.Render(cliutils.FormatRange(sym.Range)))
		stack = append(stack, sym.Range)
	}
}

func contains(outer, inner lpl.Range) bool {
	return outer.Start.Line <= inner.Start.Line && inner.End.Line <= outer.End.Line
}
