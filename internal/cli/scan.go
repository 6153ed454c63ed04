package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rlm/internal/scanner"
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a path and produce a metadata summary",
		Long:  "Walk a file or directory and summarize languages, line counts, and structure without reading full content.",
		Args:  cobra.ExactArgs(1),
		Run:   runScan,
	}

	cmd.Flags().Int("depth", 3, "Max directory depth")

	RootCmd.AddCommand(cmd)
}

func runScan(cmd *cobra.Command, args []string) {
	depth, _ := cmd.Flags().GetInt("depth")

	result, err := scanner.Scan(args[0], depth)
	if err != nil {
		exitErr("scan", err)
	}
	fmt.Println(scanner.FormatResult(result))
}
