package main

import (
	"log/slog"

	"gitdict/internal/mcpserver"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

const version = mcpserver.Version

func newMCPCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the glossary, notes and quiz questions over MCP (stdio)",
		Long: `Run an MCP server on stdin/stdout so AI agents can search terms, read and
write learning notes and fetch quiz questions. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := mcpserver.New(a.dict, a.quizzes)
			slog.Info("starting MCP server", "version", version, "store", a.cfg.StoreDriver)
			return srv.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
