package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/rebuttal/internal/judge"
	"github.com/joescharf/rebuttal/internal/mcp"
	"github.com/joescharf/rebuttal/internal/reconcile"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client check review responses directly. Configure with:

  {
    "mcpServers": {
      "rebuttal": { "command": "rebuttal", "args": ["mcp"] }
    }
  }

Available tools: rebuttal_reconcile, rebuttal_judge`,
	RunE: func(cmd *cobra.Command, args []string) error {
		match, err := reconcile.ParseMatchMode(viper.GetString("match"))
		if err != nil {
			return err
		}
		base, err := judgeConfigFromViper()
		if err != nil {
			return err
		}

		newJudge := func(ctx context.Context, trials int) (*judge.Judge, error) {
			m, err := newModelFunc(ctx)
			if err != nil {
				return nil, err
			}
			cfg := base
			cfg.Trials = trials
			return judge.New(m, cfg, logger), nil
		}

		srv := mcp.NewServer(newJudge, match, buildVersion)
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
