package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexcodex/lplsense/cmd/internal/cliutils"
	"github.com/lexcodex/lplsense/cmd/internal/workspacecfg"
)

var version = "dev"

var (
	flagWorkspace string
	flagDeep      bool
	flagTabWidth  int
	flagLogLevel  string
	flagIndexDB   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lplsense",
		Short:         "Language tooling for LPL business class sources",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagWorkspace, "workspace", ".", "Workspace root")
	root.PersistentFlags().BoolVar(&flagDeep, "deep", false, "Include detail symbols in outlines")
	root.PersistentFlags().IntVar(&flagTabWidth, "tab-width", 0, "Columns per tab (default from config)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug,info,warn,error)")
	root.PersistentFlags().StringVar(&flagIndexDB, "index-db", "", "SQLite index snapshot path")

	root.AddCommand(
		newServeCmd(),
		newOutlineCmd(),
		newDefinitionCmd(),
		newHoverCmd(),
		newValidateCmd(),
		newReportCmd(),
		newIndexCmd(),
		newSymbolsCmd(),
		newBrowseCmd(),
		newConfigCmd(),
	)
	return root
}

// loadConfig reads the workspace config and applies explicitly set flags.
func loadConfig(cmd *cobra.Command) (*workspacecfg.Config, error) {
	cfg, err := workspacecfg.Load(flagWorkspace)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("deep") {
		cfg.DeepDetail = flagDeep
	}
	if flags.Changed("tab-width") {
		cfg.TabWidth = flagTabWidth
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("index-db") {
		cfg.IndexDB = flagIndexDB
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openWorkspace loads the config, opens a session and indexes the whole
// workspace so cross-file queries see every class.
func openWorkspace(cmd *cobra.Command, opts cliutils.SessionOptions) (*cliutils.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	session, err := cliutils.OpenSession(cfg, opts)
	if err != nil {
		return nil, err
	}
	res, err := session.Manager.IndexWorkspace(cmd.Context())
	if err != nil {
		session.Close()
		return nil, err
	}
	for path, ferr := range res.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", path, ferr)
	}
	return session, nil
}
