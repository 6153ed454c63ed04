package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory store statistics",
		Args:  cobra.NoArgs,
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	stats, err := st.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	var b strings.Builder
	b.WriteString("Memory Statistics\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	fmt.Fprintf(&b, "Entries:        %d\n", stats.TotalEntries)
	fmt.Fprintf(&b, "Total content:  %s\n", fmtChars(stats.TotalChars))
	fmt.Fprintf(&b, "Database size:  %s\n", fmtBytes(stats.DBFileSize))
	fmt.Fprintf(&b, "Unique tags:    %d\n\n", stats.UniqueTags)

	if stats.OldestTS > 0 {
		oldest := time.Unix(int64(stats.OldestTS), 0).Format("2006-01-02")
		newest := time.Unix(int64(stats.NewestTS), 0).Format("2006-01-02")
		fmt.Fprintf(&b, "Date range:     %s to %s\n\n", oldest, newest)
	}

	fmt.Fprintf(&b, "Entry sizes:    avg %s, min %s, max %s\n\n",
		fmtChars(stats.AvgChars), fmtChars(int64(stats.MinChars)), fmtChars(int64(stats.MaxChars)))

	b.WriteString("Size distribution:\n")
	for _, bucket := range []string{"small", "medium", "large", "huge"} {
		count := stats.SizeDist[bucket]
		bar := strings.Repeat("#", min(count, 40))
		fmt.Fprintf(&b, "  %-16s %4d  %s\n", bucket, count, bar)
	}
	b.WriteString("\n")

	if len(stats.BySource) > 0 {
		b.WriteString("By source:\n")
		type sourceCount struct {
			source string
			count  int
		}
		var sources []sourceCount
		for s, c := range stats.BySource {
			sources = append(sources, sourceCount{s, c})
		}
		sort.Slice(sources, func(i, j int) bool {
			if sources[i].count != sources[j].count {
				return sources[i].count > sources[j].count
			}
			return sources[i].source < sources[j].source
		})
		for _, sc := range sources {
			fmt.Fprintf(&b, "  %-12s %4d entries\n", sc.source, sc.count)
		}
		b.WriteString("\n")
	}

	if len(stats.TopTags) > 0 {
		b.WriteString("Top tags:\n")
		for _, t := range stats.TopTags {
			fmt.Fprintf(&b, "  %-24s %4d\n", t.Tag, t.Count)
		}
	}

	fmt.Println(strings.TrimRight(b.String(), "\n"))
}

func fmtChars(chars int64) string {
	switch {
	case chars >= 1_000_000:
		return fmt.Sprintf("%.1fM chars", float64(chars)/1_000_000)
	case chars >= 1_000:
		return fmt.Sprintf("%.1fK chars", float64(chars)/1_000)
	default:
		return fmt.Sprintf("%d chars", chars)
	}
}

func fmtBytes(b int64) string {
	switch {
	case b >= 1_000_000:
		return fmt.Sprintf("%.1f MB", float64(b)/1_000_000)
	case b >= 1_000:
		return fmt.Sprintf("%.1f KB", float64(b)/1_000)
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
