package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexcodex/lplsense/cmd/internal/cliutils"
	"github.com/lexcodex/lplsense/framework/lpl"
)

// resolveArgs indexes the workspace and resolves <file> <line:col>.
func resolveArgs(cmd *cobra.Command, args []string) (lpl.Resolution, error) {
	session, err := openWorkspace(cmd, cliutils.SessionOptions{})
	if err != nil {
		return lpl.Resolution{}, err
	}
	defer session.Close()
	pos, err := cliutils.ParsePosition(args[1])
	if err != nil {
		return lpl.Resolution{}, err
	}
	path := cliutils.ResolvePath(session.Config.Workspace, args[0])
	doc, err := session.Manager.IndexFile(cmd.Context(), path)
	if err != nil {
		return lpl.Resolution{}, err
	}
	if doc == nil {
		return lpl.Resolution{}, fmt.Errorf("%s is excluded from the workspace", args[0])
	}
	res := session.Manager.Registry().Resolve(path, doc.Lines, pos)
	if !res.Found() {
		return res, errors.New("nothing to resolve at " + args[1])
	}
	return res, nil
}

func newDefinitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "definition <file> <line:col>",
		Short: "Print where the symbol at a position is declared",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := resolveArgs(cmd, args)
			if err != nil {
				return err
			}
			for _, def := range res.Definitions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%s %s\n", pathStyle.Render(def.File),
					cliutils.FormatRange(def.NameRange()), kindStyle.Render(res.Kind.String()))
			}
			return nil
		},
	}
}

func newHoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hover <file> <line:col>",
		Short: "Print the hover text of the symbol at a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := resolveArgs(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.HoverText)
			return nil
		},
	}
}
