package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rlm/internal/bound"
	"rlm/internal/chunker"
	"rlm/internal/model"
	"rlm/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chunk [path]",
		Short: "Chunk content and save a manifest",
		Long: "Split a file or directory into addressable chunks using the given strategy.\n" +
			"Strategies: lines, functions, headings, semantic, files_directory, files_language, files_balanced.",
		Args: cobra.ExactArgs(1),
		Run:  runChunk,
	}

	cmd.Flags().String("strategy", "", "Chunking strategy (required)")
	cmd.Flags().String("session", "", "Session ID to associate the manifest with")
	cmd.Flags().Int("chunk-size", chunker.DefaultChunkSize, "Lines per chunk (lines strategy)")
	cmd.Flags().Int("overlap", chunker.DefaultOverlap, "Overlap lines (lines strategy)")
	cmd.Flags().Int("heading-level", chunker.DefaultHeadLevel, "Heading level (headings strategy)")
	cmd.Flags().Int("target-size", chunker.DefaultTargetSize, "Target chars (semantic and files_balanced strategies)")
	cmd.MarkFlagRequired("strategy")

	RootCmd.AddCommand(cmd)
}

func runChunk(cmd *cobra.Command, args []string) {
	strategy, _ := cmd.Flags().GetString("strategy")
	sessionID, _ := cmd.Flags().GetString("session")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	overlap, _ := cmd.Flags().GetInt("overlap")
	headingLevel, _ := cmd.Flags().GetInt("heading-level")
	targetSize, _ := cmd.Flags().GetInt("target-size")
	path := args[0]

	var manifest *model.Manifest
	var err error
	switch {
	case strategy == "lines":
		manifest, err = chunker.ByLines(path, chunkSize, overlap)
	case strategy == "functions":
		manifest, err = chunker.ByFunctions(path)
	case strategy == "headings":
		manifest, err = chunker.ByHeadings(path, headingLevel)
	case strategy == "semantic":
		manifest, err = chunker.BySemantic(path, targetSize)
	case strings.HasPrefix(strategy, "files"):
		groupBy := "directory"
		if i := strings.Index(strategy, "_"); i >= 0 {
			groupBy = strategy[i+1:]
		}
		manifest, err = chunker.ByFiles(path, groupBy, targetSize)
	default:
		exitErr("chunk", fmt.Errorf("unknown strategy: %s", strategy))
	}
	if err != nil {
		exitErr("chunk", err)
	}

	if sessionID != "" {
		cfg := loadConfig()
		sessions, err := session.NewStore(cfg.SessionsDir)
		if err != nil {
			exitErr("open sessions", err)
		}
		manifest.ManifestPath, err = sessions.StoreManifest(sessionID, manifest)
		if err != nil {
			exitErr("save manifest", err)
		}
	}

	fmt.Println(bound.Truncate(chunker.FormatManifest(manifest), "chunk"))
}
