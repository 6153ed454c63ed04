package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Search memory",
		Long:  "Full-text search over stored memories. Results carry relevance scores and size hints.",
		Args:  cobra.ExactArgs(1),
		Run:   runRecall,
	}

	cmd.Flags().String("tags", "", "Filter by comma-separated tags")
	cmd.Flags().Int("max", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	tagsFlag, _ := cmd.Flags().GetString("tags")
	max, _ := cmd.Flags().GetInt("max")

	cfg := loadConfig()
	svc, st := openService(cfg, newLogger())
	defer st.Close()

	out, err := svc.Recall(cmd.Context(), args[0], splitTags(tagsFlag), max)
	if err != nil {
		exitErr("recall", err)
	}
	fmt.Println(out)
}
