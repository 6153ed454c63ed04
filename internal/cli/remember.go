package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rlm/internal/archive"
	"rlm/internal/export"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Store a memory entry",
		Long: "Store content through the smart pipeline: semantic tags, summary generation\n" +
			"for large content, two-tier storage. With no arguments, archives the most\n" +
			"recent agent session log.",
		Args: cobra.MaximumNArgs(1),
		Run:  runRemember,
	}

	cmd.Flags().String("file", "", "File to store as memory")
	cmd.Flags().Bool("stdin", false, "Read content from stdin")
	cmd.Flags().String("tags", "", "Comma-separated tags")
	cmd.Flags().String("summary", "", "Short description (auto-generated if omitted)")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")
	stdin, _ := cmd.Flags().GetBool("stdin")
	tagsFlag, _ := cmd.Flags().GetString("tags")
	summary, _ := cmd.Flags().GetString("summary")

	ctx := cmd.Context()
	cfg := loadConfig()
	log := newLogger()
	defer log.Sync()

	svc, st := openService(cfg, log)
	defer st.Close()
	arch := archive.New(svc, st, openTagger(ctx, cfg, log), log)

	var content, source, sourceName string
	switch {
	case file != "":
		if strings.HasSuffix(file, ".jsonl") {
			transcript, err := export.Session(file)
			if err != nil {
				exitErr("export session file", err)
			}
			content = transcript
		} else {
			data, err := os.ReadFile(file)
			if err != nil {
				exitErr("read file", err)
			}
			content = string(data)
		}
		source = "file"
		sourceName = file

	case stdin:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		content = string(data)
		source = "stdin"

	case len(args) > 0:
		content = args[0]
		source = "text"

	default:
		// No args: archive the most recent session log.
		home, err := os.UserHomeDir()
		if err != nil {
			exitErr("resolve home", err)
		}
		sessionFile := archive.FindLatestSession(filepath.Join(home, ".claude", "projects"))
		if sessionFile == "" {
			exitErr("remember", fmt.Errorf("no active session found; provide content, --file PATH, or --stdin"))
		}
		cwd, _ := os.Getwd()
		archived, err := arch.ArchiveSession(ctx, sessionFile, cwd)
		if err != nil {
			exitErr("archive session", err)
		}
		if archived {
			fmt.Printf("Session archived: %s\n", filepath.Base(sessionFile))
		} else {
			fmt.Printf("Session already archived (unchanged): %s\n", filepath.Base(sessionFile))
		}
		return
	}

	if strings.TrimSpace(content) == "" {
		exitErr("remember", fmt.Errorf("empty content"))
	}

	result, err := arch.SmartRemember(ctx, archive.SmartRememberParams{
		Content:    content,
		Source:     source,
		SourceName: sourceName,
		Tags:       splitTags(tagsFlag),
		Label:      summary,
		Dedup:      sourceName != "",
	})
	if err != nil {
		exitErr("remember", err)
	}

	fmt.Printf("Memory stored: %s\n", result.SummaryID)
	fmt.Printf("Summary: %s\n", result.Summary)
	fmt.Printf("Tags: %s\n", strings.Join(result.Tags, ", "))
	if result.ContentID != "" {
		fmt.Printf("Full content: %s\n", result.ContentID)
	}
}
