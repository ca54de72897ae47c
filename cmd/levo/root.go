package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ent0n29/levo/internal/config"
	"github.com/ent0n29/levo/internal/logging"
)

var (
	debug   bool
	envFile string
)

var rootCmd = &cobra.Command{
	Use:          "levo",
	Short:        "levo chat backend",
	Long:         `levo forwards prompts to a hosted language model, remembers each user's conversation and enriches replies with links.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file merged into the environment")
}

// loadConfig merges the dotenv file and parses the environment.
func loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func setupLogger(ctx context.Context, cfg config.Config) (context.Context, func()) {
	return logging.NewContextWithLogger(ctx, debug || cfg.Debug)
}
