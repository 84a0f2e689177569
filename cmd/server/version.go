package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	api "github.com/GriffinCanCode/nebula/internal/api/http"
)

// version returns the release set with -ldflags on api.Version, then the
// module version from build info.
func version() string {
	if api.Version != "" && api.Version != "dev" {
		return api.Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func commit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return "unknown"
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nebula version %s\n", version())
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit())
		},
	}
}
