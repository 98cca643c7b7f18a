package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:     "taskboard-server",
		Short:   "Taskboard - users and tasks REST API",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configFile != "" {
				os.Setenv("TASKBOARD_CONFIG_FILE", configFile)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the YAML config file (default taskboard.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL tables and indexes, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}
