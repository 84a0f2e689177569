package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/nebula/internal/infrastructure/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and bridge server",
		Long: `Run the HTTP API, the /bridge socket and /metrics until SIGINT or SIGTERM.
Open tabs and browsing state are saved to the configured store on shutdown.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("port", "", "listen port (overrides PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Server.Port = port
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := srv.Run(ctx)
	closeErr := srv.Close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}
