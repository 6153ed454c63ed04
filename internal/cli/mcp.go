package cli

import (
	"os"

	"github.com/spf13/cobra"

	"rlm/internal/mcp"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve memory tools over MCP on stdio",
		Long: "Run a Model Context Protocol server on stdin/stdout so MCP-capable agents\n" +
			"can recall, store, and extract memories natively.",
		Args: cobra.NoArgs,
		Run:  runServeMCP,
	}

	RootCmd.AddCommand(cmd)
}

func runServeMCP(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger()
	defer log.Sync()

	svc, st := openService(cfg, log)
	defer st.Close()

	server := mcp.NewServer(svc, log)
	if err := server.Run(cmd.Context(), os.Stdin, os.Stdout); err != nil {
		exitErr("serve-mcp", err)
	}
}
