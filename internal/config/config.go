// Package config resolves runtime configuration from the environment
// and provides the standard filesystem layout under the rlm home
// directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the full runtime configuration.
type Config struct {
	// Home is the base directory for persistent state.
	Home string `env:"RLM_HOME"`
	// SessionsDir holds per-analysis-session state directories.
	SessionsDir string `env:"RLM_SESSIONS_DIR"`
	// GeminiAPIKey enables LLM-backed tagging and summarization.
	// Empty means fallback extraction only.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	// TaggerModel overrides the default tagging model.
	TaggerModel string `env:"RLM_TAGGER_MODEL"`
}

// Load reads configuration from the environment, filling defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.Home = filepath.Join(home, ".rlm")
	}
	if cfg.SessionsDir == "" {
		cfg.SessionsDir = filepath.Join(os.TempDir(), "rlm-sessions")
	}
	return cfg, nil
}

// MemoryDir is where the memory database lives.
func (c *Config) MemoryDir() string {
	return filepath.Join(c.Home, "memory")
}

// MemoryDBPath is the SQLite database file.
func (c *Config) MemoryDBPath() string {
	return filepath.Join(c.MemoryDir(), "memory.db")
}

// StrategiesDir holds learned patterns and the performance log.
func (c *Config) StrategiesDir() string {
	return filepath.Join(c.Home, "strategies")
}

// SessionDir is the state directory for one analysis session.
func (c *Config) SessionDir(sessionID string) string {
	return filepath.Join(c.SessionsDir, sessionID)
}

// NewLogger builds the process logger. Output goes to stderr so
// stdout stays clean for orchestrator-facing results.
func NewLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return zcfg.Build()
}
