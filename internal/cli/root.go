// Package cli implements the rlm command-line interface. Every verb
// prints plain text on stdout; logs go to stderr.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rlm/internal/config"
	"rlm/internal/memory"
	"rlm/internal/store"
	"rlm/internal/tagger"
)

var verbose bool

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "rlm",
	Short: "External memory and recursive analysis for LLM orchestrators",
	Long: "rlm lets a context-limited orchestrator analyze corpora far larger than its\n" +
		"window: scan and chunk content into manifests, extract narrow slices, track\n" +
		"analysis sessions, and keep a persistent searchable memory store.",
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging on stderr")
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func newLogger() *zap.Logger {
	log, err := config.NewLogger(verbose)
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func openStore(cfg *config.Config) *store.SQLiteStore {
	s, err := store.NewSQLiteStore(cfg.MemoryDBPath())
	if err != nil {
		exitErr("open memory store", err)
	}
	return s
}

func openService(cfg *config.Config, log *zap.Logger) (*memory.Service, *store.SQLiteStore) {
	s := openStore(cfg)
	return memory.NewService(s, log), s
}

func openTagger(ctx context.Context, cfg *config.Config, log *zap.Logger) *tagger.Tagger {
	t, err := tagger.New(ctx, cfg.GeminiAPIKey, cfg.TaggerModel, log)
	if err != nil {
		log.Warn("tagger unavailable, falling back to keyword extraction", zap.Error(err))
		t, _ = tagger.New(ctx, "", cfg.TaggerModel, log)
	}
	return t
}

func splitTags(csv string) []string {
	if csv == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
