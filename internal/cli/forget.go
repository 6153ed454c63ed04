package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "forget [entry-id]",
		Short: "Delete a memory entry",
		Args:  cobra.ExactArgs(1),
		Run:   runForget,
	}

	RootCmd.AddCommand(cmd)
}

func runForget(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	svc, st := openService(cfg, newLogger())
	defer st.Close()

	if err := svc.Forget(cmd.Context(), args[0]); err != nil {
		exitErr("forget", err)
	}
	fmt.Printf("Deleted: %s\n", args[0])
}
