package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "memory-list",
		Short: "List memory entries",
		Args:  cobra.NoArgs,
		Run:   runMemoryList,
	}

	cmd.Flags().String("tags", "", "Filter by comma-separated tags")
	cmd.Flags().Int("offset", 0, "Skip first N entries")
	cmd.Flags().Int("limit", 50, "Max entries to show")

	RootCmd.AddCommand(cmd)
}

func runMemoryList(cmd *cobra.Command, args []string) {
	tagsFlag, _ := cmd.Flags().GetString("tags")
	offset, _ := cmd.Flags().GetInt("offset")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig()
	svc, st := openService(cfg, newLogger())
	defer st.Close()

	out, err := svc.List(cmd.Context(), splitTags(tagsFlag), offset, limit)
	if err != nil {
		exitErr("memory-list", err)
	}
	fmt.Println(out)
}
