package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/nebula/internal/infrastructure/config"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/logging"
	"github.com/GriffinCanCode/nebula/internal/providers/browser"
)

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <url>...",
		Short: "Print the render mode and sandbox for each URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			for _, raw := range args {
				mode := p.Classify(raw)
				fmt.Fprintf(out, "%s\t%s\t%s\n", mode, raw, mode.Sandbox())
			}
			return nil
		},
	}
}

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <address>",
		Short: "Fetch a page through the relay chain and print the rewritten HTML",
		Long: `Fetch a page through the configured relay backends in order and print it
as the sandbox receives it, with the base tag and interception script in
place. When every backend fails the fallback document is printed instead.
The address is normalized the same way the address bar does it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			addr, err := p.Address(args[0])
			if err != nil {
				return err
			}
			doc := p.FetchViaProxy(cmd.Context(), addr.URL)

			backend := doc.Backend
			if doc.Fallback {
				backend = "fallback"
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "url: %s\nbackend: %s\ntitle: %s\n", doc.URL, backend, doc.Title)
			fmt.Fprintln(cmd.OutOrStdout(), doc.HTML)
			return nil
		},
	}
}

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and run the interception script self-check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newPipeline(cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.SelfCheck(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "interception script: ok")
			for _, name := range p.Backends() {
				fmt.Fprintf(out, "backend: %s\n", name)
			}
			return nil
		},
	}
}

// newPipeline builds a provider from the environment. Logs are discarded
// unless --verbose is set.
func newPipeline(cmd *cobra.Command) (*browser.Provider, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	policy, err := config.LoadPolicy(cfg.Policy.File)
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		// stdout carries command output
		cfg := logging.DevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		l, err := logging.New(cfg)
		if err != nil {
			return nil, err
		}
		logger = l.Logger
	}
	return browser.New(browser.Options{
		Policy: policy,
		Proxy:  cfg.Proxy,
		Logger: logger,
	})
}
