package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/adebench/adebench/pkg/results/sqlite"
	"github.com/adebench/adebench/pkg/webui"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recorded results over HTTP",
	Long: `Serve the results database over a small HTTP API plus an HTML index
for browsing runs.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		store, err := sqlite.NewStore(ctx, resultsDatabasePath())
		if err != nil {
			return errors.Wrap(err, "opening results database")
		}
		defer store.Close()

		return webui.NewServer(store).Start(ctx, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8648", "Address to listen on")
	serveCmd.Flags().StringVar(&resultsDBPath, "db-path", "", "SQLite results database (default $HOME/.adebench/results.db)")
}
