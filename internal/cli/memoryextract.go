package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rlm/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "memory-extract [entry-id]",
		Short: "Extract content from a memory entry",
		Long: "Return a memory entry's content: the whole thing, one chunk (--chunk-id), or\n" +
			"grep matches with context (--grep). Full and chunk output is unbounded.",
		Args: cobra.ExactArgs(1),
		Run:  runMemoryExtract,
	}

	cmd.Flags().String("chunk-id", "", "Specific chunk ID")
	cmd.Flags().String("grep", "", "Search pattern within the entry")
	cmd.Flags().Int("context", 3, "Context lines for grep")

	RootCmd.AddCommand(cmd)
}

func runMemoryExtract(cmd *cobra.Command, args []string) {
	chunkID, _ := cmd.Flags().GetString("chunk-id")
	grep, _ := cmd.Flags().GetString("grep")
	grepContext, _ := cmd.Flags().GetInt("context")

	cfg := loadConfig()
	svc, st := openService(cfg, newLogger())
	defer st.Close()

	out, err := svc.Extract(cmd.Context(), memory.ExtractParams{
		ID:      args[0],
		ChunkID: chunkID,
		Grep:    grep,
		Context: grepContext,
	})
	if err != nil {
		exitErr("memory-extract", err)
	}
	fmt.Println(out)
}
