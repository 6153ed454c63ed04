package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rlm/internal/chunker"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recommend [path]",
		Short: "Suggest chunking strategies for a path",
		Args:  cobra.ExactArgs(1),
		Run:   runRecommend,
	}

	RootCmd.AddCommand(cmd)
}

func runRecommend(cmd *cobra.Command, args []string) {
	recs, err := chunker.Recommend(args[0])
	if err != nil {
		exitErr("recommend", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recommended strategies for: %s\n", args[0])
	for _, r := range recs {
		fmt.Fprintf(&b, "\n  [%d] %s: %s", r.Priority, r.Strategy, r.Reason)
	}
	fmt.Println(b.String())
}
