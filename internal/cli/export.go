package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rlm/internal/export"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export-session [session-file]",
		Short: "Export a session JSONL log to a readable transcript",
		Args:  cobra.ExactArgs(1),
		Run:   runExportSession,
	}

	cmd.Flags().String("output", "", "Write to file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExportSession(cmd *cobra.Command, args []string) {
	output, _ := cmd.Flags().GetString("output")

	text, err := export.Session(args[0])
	if err != nil {
		exitErr("export-session", err)
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
			exitErr("write output", err)
		}
		fmt.Printf("Exported to %s (%d chars)\n", output, len(text))
		return
	}
	// Unbounded: hooks pipe this into remember.
	fmt.Print(text)
}
