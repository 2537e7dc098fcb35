package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/HamedShams/devops-pulse/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the tracker tools over stdio (Model Context Protocol)",
	Long: `Serve the tracker operations as MCP tools on stdin/stdout.

Tools: get_sprints, get_sprint_work_items, get_current_sprint_metrics,
create_work_item, get_work_item, update_work_item, analyze_sprint,
get_all_tasks, get_boards, get_board_columns. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, log, svc, err := bootstrap(os.Stderr)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info().Str("version", version).Msg("mcp server on stdio")
		if err := mcp.NewServer(svc, log, version).Run(ctx); err != nil {
			log.Error().Err(err).Msg("mcp server stopped")
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}
