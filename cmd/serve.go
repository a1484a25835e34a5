package cmd

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/lanes/internal/api"
	"github.com/papapumpkin/lanes/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the board as a JSON HTTP API",
	Long: `Serves the board over HTTP until interrupted. Requests are handled one at a
time against the board. See /api/board, /api/tasks and /api/next.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve board tools to agents over MCP on stdio",
	Long: `Runs an MCP server on stdin/stdout exposing board_read, task_next,
task_claim, task_done, task_create and task_move. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:7391)")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	// Reconcile once up front so drift is repaired before the first request.
	if _, err := s.svc.Reconcile(cmd.Context()); err != nil {
		return err
	}
	s.printer.Info("serving on http://" + s.cfg.Serve.Addr)
	return api.New(s.svc, s.logger).Run(cmd.Context(), s.cfg.Serve.Addr)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	return mcpserver.New(s.svc, s.logger).Run(cmd.Context(), &mcp.StdioTransport{})
}
