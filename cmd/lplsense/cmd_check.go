package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexcodex/lplsense/cmd/internal/cliutils"
	"github.com/lexcodex/lplsense/framework/lpl"
)

func newValidateCmd() *cobra.Command {
	var strict bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check imports and duplicate classes across the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openWorkspace(cmd, cliutils.SessionOptions{})
			if err != nil {
				return err
			}
			defer session.Close()
			diags := session.Manager.Registry().Validate()
			if asJSON {
				if diags == nil {
					diags = []lpl.Diagnostic{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(diags); err != nil {
					return err
				}
			} else {
				printDiagnostics(cmd, diags)
			}
			if strict && len(diags) > 0 {
				return fmt.Errorf("%d problem(s) found", len(diags))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when problems are found")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func printDiagnostics(cmd *cobra.Command, diags []lpl.Diagnostic) {
	out := cmd.OutOrStdout()
	if len(diags) == 0 {
		fmt.Fprintln(out, "no problems found")
		return
	}
	for _, d := range diags {
		label := warnStyle.Render("warning")
		if d.Severity == lpl.SeverityError {
			label = errorStyle.Render("error")
		}
		fmt.Fprintf(out, "%s:%d:%d: %s: %s\n", pathStyle.Render(d.File),
			d.Range.Start.Line+1, d.Range.Start.Character+1, label, d.Message)
	}
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <class>",
		Short: "Write the action restriction report of a class as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openWorkspace(cmd, cliutils.SessionOptions{})
			if err != nil {
				return err
			}
			defer session.Close()
			rep, err := session.Manager.Registry().RestrictionReport(args[0])
			if err != nil {
				return err
			}
			return rep.WriteCSV(cmd.OutOrStdout())
		},
	}
}
