package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/vango-dev/gigmarket/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gigmarket",
		Short: "Server-driven console for the gig marketplace",
		Long: `gigmarket serves the marketplace dashboards.

Every browser tab holds a WebSocket session; the server renders the
dashboard state, applies changes optimistically and reconciles them
with the marketplace backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		var ae *apperrors.AppError
		if errors.As(err, &ae) {
			ae.Print()
		} else {
			fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		}
		os.Exit(1)
	}
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
