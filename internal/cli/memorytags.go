package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rlm/internal/bound"
)

func init() {
	cmd := &cobra.Command{
		Use:   "memory-tags",
		Short: "List all tags with counts",
		Args:  cobra.NoArgs,
		Run:   runMemoryTags,
	}

	RootCmd.AddCommand(cmd)
}

func runMemoryTags(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	tags, err := st.TagHistogram(cmd.Context())
	if err != nil {
		exitErr("memory-tags", err)
	}
	if len(tags) == 0 {
		fmt.Println("No tags found. Memory store is empty.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tags (%d unique):\n", len(tags))
	for _, t := range tags {
		fmt.Fprintf(&b, "\n  %s: %d", t.Tag, t.Count)
	}
	fmt.Println(bound.Truncate(b.String(), "memory-tags"))
}
