package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/lexcodex/lplsense/cmd/internal/cliutils"
	"github.com/lexcodex/lplsense/cmd/internal/workspacecfg"
	"github.com/lexcodex/lplsense/framework/index"
	"github.com/lexcodex/lplsense/framework/lpl"
)

// defaultIndexDB is used by index and symbols when no path is configured.
func defaultIndexDB(workspace string) string {
	return filepath.Join(workspacecfg.ConfigDir(workspace), "index.db")
}

func openSnapshot(cmd *cobra.Command, reindex bool) (*cliutils.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.IndexDB == "" {
		cfg.IndexDB = defaultIndexDB(cfg.Workspace)
	}
	session, err := cliutils.OpenSession(cfg, cliutils.SessionOptions{UseStore: true})
	if err != nil {
		return nil, err
	}
	if reindex {
		res, err := session.Manager.IndexWorkspace(cmd.Context())
		if err != nil {
			session.Close()
			return nil, err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d of %d files in %s\n", res.Indexed, res.Files, res.Duration.Round(time.Millisecond))
		for path, ferr := range res.Failed {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", path, ferr)
		}
	}
	return session, nil
}

func newIndexCmd() *cobra.Command {
	var vacuum bool
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the workspace into the SQLite snapshot and print statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSnapshot(cmd, true)
			if err != nil {
				return err
			}
			defer session.Close()
			if vacuum {
				if err := session.Manager.Store().Vacuum(); err != nil {
					return err
				}
			}
			stats, err := session.Manager.Stats()
			if err != nil {
				return err
			}
			printStats(cmd, stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&vacuum, "vacuum", false, "Compact the database afterwards")
	return cmd
}

func printStats(cmd *cobra.Command, stats *index.IndexStats) {
	rows := [][]string{
		{"files", fmt.Sprint(stats.TotalFiles)},
		{"classes", fmt.Sprint(stats.TotalClasses)},
		{"symbols", fmt.Sprint(stats.TotalSymbols)},
	}
	for _, kind := range sortedCounts(stats.SymbolsByKind) {
		rows = append(rows, []string{"  " + kind, fmt.Sprint(stats.SymbolsByKind[kind])})
	}
	for _, dialect := range sortedCounts(stats.FilesByDialect) {
		rows = append(rows, []string{"dialect " + string(dialect), fmt.Sprint(stats.FilesByDialect[dialect])})
	}
	rows = append(rows, []string{"size", fmt.Sprintf("%d bytes", stats.DatabaseSize)})
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Statistic", "Value"}, rows))
}

// renderTable draws rows with the command palette: headers as sections,
// the first column as names and the rest dimmed.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(kindStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return sectionStyle.Padding(0, 1)
			case col == 0:
				return classStyle.Padding(0, 1)
			case col == len(headers)-1:
				return pathStyle.Padding(0, 1)
			default:
				return kindStyle.Padding(0, 1)
			}
		}).
		String()
}

func sortedCounts[K ~string](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func newSymbolsCmd() *cobra.Command {
	var kinds []string
	var classes []string
	var limit int
	var asJSON bool
	var refresh bool
	cmd := &cobra.Command{
		Use:   "symbols [pattern]",
		Short: "Query the SQLite snapshot for symbols",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSnapshot(cmd, refresh)
			if err != nil {
				return err
			}
			defer session.Close()
			query := index.SymbolQuery{Containers: classes, Limit: limit, WithDetail: session.Config.DeepDetail}
			if len(args) == 1 {
				query.NamePattern = args[0]
			}
			for _, k := range kinds {
				kind := lpl.ParseSymbolKind(strings.ToLower(k))
				if kind == 0 {
					return fmt.Errorf("unknown symbol kind %q", k)
				}
				query.Kinds = append(query.Kinds, kind)
			}
			records, err := session.Manager.SearchSymbols(query)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				return errors.New("no matching symbols; run `lplsense index` first if the snapshot is empty")
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{rec.Name, rec.Kind.String(), rec.Container, fmt.Sprintf("%s:%d", rec.Path, rec.StartLine+1)})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Kind", "Class", "Location"}, rows))
			return err
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Filter by symbol kind (class, field, method, ...)")
	cmd.Flags().StringSliceVar(&classes, "class", nil, "Filter by containing class")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-index the workspace before querying")
	return cmd
}
