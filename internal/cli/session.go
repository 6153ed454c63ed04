package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rlm/internal/session"
)

func init() {
	initCmd := &cobra.Command{
		Use:   "init [query] [path]",
		Short: "Create a new analysis session",
		Args:  cobra.ExactArgs(2),
		Run:   runInit,
	}

	statusCmd := &cobra.Command{
		Use:   "status [session-id]",
		Short: "Show session status",
		Args:  cobra.ExactArgs(1),
		Run:   runStatus,
	}

	resultCmd := &cobra.Command{
		Use:   "result [session-id]",
		Short: "Manage session results",
		Long:  "Store a result (--key K --value V), read one back (--key K), or summarize all (--all).",
		Args:  cobra.ExactArgs(1),
		Run:   runResult,
	}
	resultCmd.Flags().String("key", "", "Result key")
	resultCmd.Flags().String("value", "", "Result value to store")
	resultCmd.Flags().Bool("all", false, "Show all results summary")

	finalizeCmd := &cobra.Command{
		Use:   "finalize [session-id]",
		Short: "Mark a session complete",
		Args:  cobra.ExactArgs(1),
		Run:   runFinalize,
	}
	finalizeCmd.Flags().String("answer", "", "Final answer text")

	RootCmd.AddCommand(initCmd, statusCmd, resultCmd, finalizeCmd)
}

func openSessions() *session.Store {
	cfg := loadConfig()
	s, err := session.NewStore(cfg.SessionsDir)
	if err != nil {
		exitErr("open sessions", err)
	}
	return s
}

func runInit(cmd *cobra.Command, args []string) {
	query, path := args[0], args[1]
	cfg := loadConfig()
	sessions, err := session.NewStore(cfg.SessionsDir)
	if err != nil {
		exitErr("open sessions", err)
	}

	id, err := sessions.Init(query, path)
	if err != nil {
		exitErr("init session", err)
	}
	fmt.Printf("Session created: %s\n", id)
	fmt.Printf("Session dir: %s\n", cfg.SessionDir(id))
	fmt.Printf("Query: %s\n", query)
	fmt.Printf("Target: %s\n", path)
}

func runStatus(cmd *cobra.Command, args []string) {
	state, err := openSessions().Get(args[0])
	if err != nil {
		exitErr("session status", err)
	}
	fmt.Println(session.FormatStatus(state))
}

func runResult(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("key")
	value, _ := cmd.Flags().GetString("value")
	all, _ := cmd.Flags().GetBool("all")
	id := args[0]

	sessions := openSessions()
	switch {
	case all:
		state, err := sessions.Get(id)
		if err != nil {
			exitErr("session results", err)
		}
		fmt.Println(session.FormatResults(state))

	case key != "" && value != "":
		if err := sessions.AddResult(id, key, value); err != nil {
			exitErr("store result", err)
		}
		fmt.Printf("Result stored: %s\n", key)

	case key != "":
		v, err := sessions.GetResult(id, key)
		if err != nil {
			exitErr("read result", err)
		}
		fmt.Println(v)

	default:
		exitErr("result", fmt.Errorf("specify --key K --value V to store, --key K to retrieve, or --all for summary"))
	}
}

func runFinalize(cmd *cobra.Command, args []string) {
	answer, _ := cmd.Flags().GetString("answer")
	if err := openSessions().Finalize(args[0], answer); err != nil {
		exitErr("finalize session", err)
	}
	fmt.Printf("Session %s marked as complete\n", args[0])
}
