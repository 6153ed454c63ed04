package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rlm/internal/strategy"
)

func init() {
	strategyCmd := &cobra.Command{
		Use:   "strategy",
		Short: "Manage recall strategies and the performance log",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show learned retrieval patterns",
		Args:  cobra.NoArgs,
		Run:   runStrategyShow,
	}

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent recall performance records",
		Args:  cobra.NoArgs,
		Run:   runStrategyLog,
	}
	logCmd.Flags().Int("max", 10, "Number of records to show")

	perfCmd := &cobra.Command{
		Use:   "perf",
		Short: "Append a recall performance record",
		Args:  cobra.NoArgs,
		Run:   runStrategyPerf,
	}
	perfCmd.Flags().String("query", "", "Query that was run")
	perfCmd.Flags().String("search-terms", "", "Comma-separated search terms used")
	perfCmd.Flags().Int("entries-found", 0, "Total entries found")
	perfCmd.Flags().Int("entries-relevant", 0, "Relevant entries")
	perfCmd.Flags().Int("subagents", 0, "Subagents dispatched")
	perfCmd.Flags().String("notes", "", "Strategy notes")

	strategyCmd.AddCommand(showCmd, logCmd, perfCmd)
	RootCmd.AddCommand(strategyCmd)
}

func openStrategies() *strategy.Store {
	cfg := loadConfig()
	s, err := strategy.NewStore(cfg.StrategiesDir())
	if err != nil {
		exitErr("open strategies", err)
	}
	return s
}

func runStrategyShow(cmd *cobra.Command, args []string) {
	out, err := openStrategies().Show()
	if err != nil {
		exitErr("strategy show", err)
	}
	fmt.Println(out)
}

func runStrategyLog(cmd *cobra.Command, args []string) {
	max, _ := cmd.Flags().GetInt("max")
	out, err := openStrategies().Log(max)
	if err != nil {
		exitErr("strategy log", err)
	}
	fmt.Println(out)
}

func runStrategyPerf(cmd *cobra.Command, args []string) {
	query, _ := cmd.Flags().GetString("query")
	searchTerms, _ := cmd.Flags().GetString("search-terms")
	entriesFound, _ := cmd.Flags().GetInt("entries-found")
	entriesRelevant, _ := cmd.Flags().GetInt("entries-relevant")
	subagents, _ := cmd.Flags().GetInt("subagents")
	notes, _ := cmd.Flags().GetString("notes")

	err := openStrategies().Perf(strategy.Record{
		Query:         query,
		SearchTerms:   splitTags(searchTerms),
		EntriesFound:  entriesFound,
		EntriesUseful: entriesRelevant,
		Subagents:     subagents,
		Notes:         notes,
	})
	if err != nil {
		exitErr("strategy perf", err)
	}
	fmt.Println("Performance logged.")
}
