// Command pmcctl ingests records, chats from the terminal and serves the
// ask_pmc MCP tool.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pmcbot/internal/app"
	"pmcbot/internal/config"
	"pmcbot/internal/contextutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pmcctl",
		Short:         "PMC assistant command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newIngestCmd(), newChatCmd(), newMCPCmd())
	return root
}

// loadApp builds the application. Logs go to stderr so stdout stays free for
// answers and the MCP transport.
func loadApp(cmd *cobra.Command) (context.Context, *app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := app.NewLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)
	ctx := contextutil.WithLogger(cmd.Context(), logger)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return ctx, a, nil
}
