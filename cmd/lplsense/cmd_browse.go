package main

import (
	"github.com/spf13/cobra"

	"github.com/lexcodex/lplsense/app/lplbrowse/tui"
	"github.com/lexcodex/lplsense/cmd/internal/cliutils"
)

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse classes, reports and diagnostics in a terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.LogPath == "" {
				cfg.LogPath = defaultLogPath(cfg.Workspace)
			}
			session, err := cliutils.OpenSession(cfg, cliutils.SessionOptions{UseStore: true})
			if err != nil {
				return err
			}
			defer session.Close()
			return tui.Run(cmd.Context(), session.Manager, cfg.DeepDetail)
		},
	}
}
