package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexcodex/lplsense/cmd/internal/cliutils"
	"github.com/lexcodex/lplsense/server"
)

func newServeCmd() *cobra.Command {
	var httpAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the language server on stdio, or the HTTP query API with --http",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts := cliutils.SessionOptions{UseStore: true}
			if httpAddr == "" {
				opts.DocumentKey = server.DocumentKey
			}
			session, err := cliutils.OpenSession(cfg, opts)
			if err != nil {
				return err
			}
			defer session.Close()

			if httpAddr != "" {
				if _, err := session.Manager.IndexWorkspace(cmd.Context()); err != nil {
					return err
				}
				api := &server.APIServer{
					Manager:    session.Manager,
					DeepDetail: cfg.DeepDetail,
					Logger:     session.Logger,
				}
				cmd.Printf("Serving API for %s on %s\n", cfg.Workspace, httpAddr)
				return api.ServeContext(cmd.Context(), httpAddr)
			}
			srv := server.NewLSPServer(server.Options{
				Workspace:  cfg.Workspace,
				DeepDetail: cfg.DeepDetail,
				Version:    version,
				Manager:    session.Manager,
				Logger:     session.Logger,
			})
			session.Logger.Info("language server starting", zap.String("workspace", cfg.Workspace))
			return srv.Serve(cmd.Context(), server.StdioConn())
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve the HTTP query API on this address instead of LSP")
	return cmd
}
