package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/schemabot/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "schemabot",
	Short: "Chat front end for exploring a BigQuery catalog",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath,
		"config",
		filepath.Join(os.Getenv("HOME"), ".schemabot", "config.json"),
		"config file path")
}

// loadConfig loads the config or exits; commands can assume a valid config.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
