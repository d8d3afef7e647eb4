package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/vango-dev/gigmarket/internal/config"
)

func versionCmd() *cobra.Command {
	var (
		dir   string
		short bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and deployment information",
		Long: `Print the build of this binary together with the deployment it
would serve: the config file in --dir, the backend URL and the session,
upload and search backends.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, buildVersion())
				return nil
			}
			cfg, err := config.LoadOrDefault(dir)
			if err != nil {
				return err
			}
			printVersion(out, cfg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory containing gigmarket.json")
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	return cmd
}

// buildVersion prefers the ldflags version and falls back to the module
// version recorded by go install.
func buildVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

func printVersion(w io.Writer, cfg *config.Config) {
	configPath := cfg.Path()
	if configPath == "" {
		configPath = "(defaults and environment)"
	}
	sessions := "memory"
	if cfg.Session.RedisURL != "" {
		sessions = "redis"
	}
	searchBackend := "memory"
	if cfg.Search.URL != "" {
		searchBackend = "meilisearch (" + cfg.Search.Index + ")"
	}
	backend := cfg.Backend.URL
	if backend == "" {
		backend = "(not set)"
	}

	fmt.Fprintf(w, "gigmarket %s\n\n", buildVersion())
	fmt.Fprintf(w, "  Commit:     %s\n", commit)
	fmt.Fprintf(w, "  Built:      %s\n", date)
	fmt.Fprintf(w, "  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "  Config:     %s\n", configPath)
	fmt.Fprintf(w, "  Backend:    %s\n", backend)
	fmt.Fprintf(w, "  Sessions:   %s\n", sessions)
	fmt.Fprintf(w, "  Uploads:    %s\n", cfg.Upload.Backend)
	fmt.Fprintf(w, "  Search:     %s\n", searchBackend)
}
