package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	api "github.com/GriffinCanCode/nebula/internal/api/http"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/config"
)

// NewRootCmd creates the nebula command. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nebula",
		Short: "Compatibility pipeline server for the Nebula browser shell",
		Long: `Nebula classifies addresses as direct or proxied, fetches proxied pages
through a chain of relay backends, rewrites them so in-page navigation stays
inside the shell, and keeps per-tab browsing state.

Configuration comes from the environment. Use --env-file to load a dotenv
file first; variables already set in the environment take precedence.`,
		Version:       version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runServe,
	}

	cmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the environment")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "log pipeline activity to stderr")
	cmd.Flags().String("port", "", "listen port (overrides PORT)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	api.Version = version()
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --env-file and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}
	return config.LoadFile(path)
}
