// Package cmd contains the command line applications for the project.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/outputvault/pkg/app"
	"github.com/yeisme/outputvault/pkg/configs"
	"github.com/yeisme/outputvault/pkg/internal/storage"
	"github.com/yeisme/outputvault/pkg/internal/storage/db"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "outputvault",
		Short: "A service tracking versioned production deliverables and their derived media",
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP server, scheduler and derivation pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.NewApp(configPath).Run()
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			dbi, err := db.New(cmd.Context())
			if err != nil {
				return err
			}

			return storage.Migrate(dbi)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose debug output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)

	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
