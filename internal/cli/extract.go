package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rlm/internal/extractor"
)

func init() {
	cmd := &cobra.Command{
		Use:   "extract [path]",
		Short: "Extract content from a file or manifest",
		Long: "Pull a narrow slice out of a target: a line range, a manifest chunk, or grep\n" +
			"matches with context. Output is unbounded; it is destined for a subagent.",
		Args: cobra.MaximumNArgs(1),
		Run:  runExtract,
	}

	cmd.Flags().String("lines", "", "Line range START:END")
	cmd.Flags().String("chunk-id", "", "Chunk ID to extract")
	cmd.Flags().String("manifest", "", "Manifest file path")
	cmd.Flags().String("grep", "", "Regex pattern to search")
	cmd.Flags().Int("context", extractor.DefaultContext, "Context lines for grep")

	RootCmd.AddCommand(cmd)
}

func runExtract(cmd *cobra.Command, args []string) {
	lines, _ := cmd.Flags().GetString("lines")
	chunkID, _ := cmd.Flags().GetString("chunk-id")
	manifest, _ := cmd.Flags().GetString("manifest")
	grep, _ := cmd.Flags().GetString("grep")
	grepContext, _ := cmd.Flags().GetInt("context")

	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	switch {
	case lines != "":
		start, end, err := parseLineRange(lines)
		if err != nil {
			exitErr("extract", err)
		}
		content, err := extractor.Lines(path, start, end)
		if err != nil {
			exitErr("extract", err)
		}
		fmt.Println(content)

	case chunkID != "" && manifest != "":
		content, err := extractor.Chunk(manifest, chunkID)
		if err != nil {
			exitErr("extract", err)
		}
		fmt.Println(content)

	case grep != "":
		content, err := extractor.Grep(path, grep, grepContext)
		if err != nil {
			exitErr("extract", err)
		}
		fmt.Println(content)

	default:
		exitErr("extract", fmt.Errorf("specify --lines START:END, --chunk-id ID --manifest PATH, or --grep PATTERN"))
	}
}

func parseLineRange(spec string) (int, int, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("--lines format is START:END (e.g., 1:50)")
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start line %q", parts[0])
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end line %q", parts[1])
	}
	return start, end, nil
}
