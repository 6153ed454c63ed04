package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rlm/internal/scratchpad"
)

func init() {
	scratchCmd := &cobra.Command{
		Use:   "scratch",
		Short: "Short-lived working memory for in-progress analyses",
	}

	saveCmd := &cobra.Command{
		Use:   "save [content]",
		Short: "Save a scratchpad entry",
		Args:  cobra.ExactArgs(1),
		Run:   runScratchSave,
	}
	saveCmd.Flags().String("label", "", "Short human-readable label")
	saveCmd.Flags().String("tags", "", "Comma-separated tags")
	saveCmd.Flags().Float64("ttl", 24, "Hours until expiry")
	saveCmd.Flags().String("session", "", "Analysis session ID to associate with")

	getCmd := &cobra.Command{
		Use:   "get [entry-id]",
		Short: "Show a scratchpad entry",
		Args:  cobra.ExactArgs(1),
		Run:   runScratchGet,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List scratchpad entries",
		Args:  cobra.NoArgs,
		Run:   runScratchList,
	}
	listCmd.Flags().Bool("all", false, "Include expired entries")

	deleteCmd := &cobra.Command{
		Use:   "delete [entry-id]",
		Short: "Delete a scratchpad entry",
		Args:  cobra.ExactArgs(1),
		Run:   runScratchDelete,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove scratchpad entries",
		Args:  cobra.NoArgs,
		Run:   runScratchClear,
	}
	clearCmd.Flags().Bool("expired", false, "Only remove expired entries")

	promoteCmd := &cobra.Command{
		Use:   "promote [entry-id]",
		Short: "Promote a scratchpad entry to long-term memory",
		Args:  cobra.ExactArgs(1),
		Run:   runScratchPromote,
	}
	promoteCmd.Flags().String("tags", "", "Additional comma-separated tags")
	promoteCmd.Flags().String("summary", "", "Override the memory summary")

	scratchCmd.AddCommand(saveCmd, getCmd, listCmd, deleteCmd, clearCmd, promoteCmd)
	RootCmd.AddCommand(scratchCmd)
}

func openScratchpad() (*scratchpad.Service, func()) {
	cfg := loadConfig()
	svc, st := openService(cfg, newLogger())
	return scratchpad.NewService(st, svc), func() { st.Close() }
}

func runScratchSave(cmd *cobra.Command, args []string) {
	label, _ := cmd.Flags().GetString("label")
	tagsFlag, _ := cmd.Flags().GetString("tags")
	ttl, _ := cmd.Flags().GetFloat64("ttl")
	sessionID, _ := cmd.Flags().GetString("session")

	pad, closeStore := openScratchpad()
	defer closeStore()

	e, err := pad.Save(cmd.Context(), scratchpad.SaveParams{
		Content:         args[0],
		Label:           label,
		Tags:            splitTags(tagsFlag),
		TTL:             time.Duration(ttl * float64(time.Hour)),
		AnalysisSession: sessionID,
	})
	if err != nil {
		exitErr("scratch save", err)
	}
	fmt.Printf("Saved: %s  %s  (%d chars, expires in %.1fh)\n", e.ID, e.Label, len(e.Content), ttl)
}

func runScratchGet(cmd *cobra.Command, args []string) {
	pad, closeStore := openScratchpad()
	defer closeStore()

	e, err := pad.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("scratch get", err)
	}
	fmt.Println(scratchpad.FormatEntry(e))
}

func runScratchList(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")

	pad, closeStore := openScratchpad()
	defer closeStore()

	entries, err := pad.List(cmd.Context(), all)
	if err != nil {
		exitErr("scratch list", err)
	}
	fmt.Println(scratchpad.FormatEntryList(entries))
}

func runScratchDelete(cmd *cobra.Command, args []string) {
	pad, closeStore := openScratchpad()
	defer closeStore()

	found, err := pad.Delete(cmd.Context(), args[0])
	if err != nil {
		exitErr("scratch delete", err)
	}
	if !found {
		fmt.Printf("Not found: %s\n", args[0])
		return
	}
	fmt.Printf("Deleted: %s\n", args[0])
}

func runScratchClear(cmd *cobra.Command, args []string) {
	expired, _ := cmd.Flags().GetBool("expired")

	pad, closeStore := openScratchpad()
	defer closeStore()

	n, err := pad.Clear(cmd.Context(), expired)
	if err != nil {
		exitErr("scratch clear", err)
	}
	fmt.Printf("Cleared %d entries\n", n)
}

func runScratchPromote(cmd *cobra.Command, args []string) {
	tagsFlag, _ := cmd.Flags().GetString("tags")
	summary, _ := cmd.Flags().GetString("summary")

	pad, closeStore := openScratchpad()
	defer closeStore()

	entry, err := pad.Promote(cmd.Context(), args[0], splitTags(tagsFlag), summary)
	if err != nil {
		exitErr("scratch promote", err)
	}
	fmt.Printf("Promoted to memory: %s\n", entry.ID)
	fmt.Printf("Summary: %s\n", entry.Summary)
}
