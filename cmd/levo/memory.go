package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ent0n29/levo/internal/memory"
)

var memoryUser string

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect or seed conversation memory",
}

var memoryDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print a user's memory blob",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return dumpMemory(cmd.Context(), cmd.OutOrStdout(), cfg.DatabaseURL, memoryUser)
	},
}

var memoryAppendCmd = &cobra.Command{
	Use:   "append <text>",
	Short: "Append one record to a user's memory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return appendMemory(cmd.Context(), cfg.DatabaseURL, memoryUser, strings.Join(args, " "))
	},
}

func init() {
	memoryCmd.PersistentFlags().StringVarP(&memoryUser, "user", "u", "", "user id (required)")
	_ = memoryCmd.MarkPersistentFlagRequired("user")
	memoryCmd.AddCommand(memoryDumpCmd, memoryAppendCmd)
	rootCmd.AddCommand(memoryCmd)
}

func dumpMemory(ctx context.Context, out io.Writer, databaseURL, user string) error {
	if strings.TrimSpace(user) == "" {
		return errors.New("--user is required")
	}
	store, err := memory.NewStore(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	blob, err := store.ReadAll(ctx, user)
	if err != nil {
		return fmt.Errorf("read memory: %w", err)
	}
	if blob == "" {
		return nil
	}
	_, err = fmt.Fprintln(out, blob)
	return err
}

func appendMemory(ctx context.Context, databaseURL, user, text string) error {
	if strings.TrimSpace(user) == "" {
		return errors.New("--user is required")
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("text must not be empty")
	}
	store, err := memory.NewStore(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Append(ctx, user, text); err != nil {
		return fmt.Errorf("append memory: %w", err)
	}
	return nil
}
