package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/pagewatch/internal/application/handlers"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  "Creates pagewatch.yaml (or the file named by --config / $PAGEWATCH_CONFIG) with default settings.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	result, err := handlers.NewInitHandler().Handle(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", result.ConfigPath)
	fmt.Fprintf(out, "Snapshot backend: %s", result.SnapshotBackend)
	if result.SQLitePath != "" && result.SnapshotBackend == "sqlite" {
		fmt.Fprintf(out, " (%s)", result.SQLitePath)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Set OPENAI_API_KEY, TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID to enable drafts and approvals.")
	return nil
}
