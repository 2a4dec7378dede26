package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"thyrd_spaces/internal/adapters/directory"
	"thyrd_spaces/internal/adapters/observability"
	"thyrd_spaces/internal/shared"
)

func main() {
	root := &cobra.Command{
		Use:   "thyrdctl",
		Short: "Operator tool for the Thyrd Spaces directory",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := shared.Load()
			log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
		},
		SilenceUsage: true,
	}
	root.AddCommand(syncCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(submitCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newDirectory(cfg shared.Config) (*directory.Client, error) {
	return directory.New(cfg.DirectoryBase, cfg.DirectoryKind, cfg.DirectoryKey, cfg.DirectoryRPS)
}
