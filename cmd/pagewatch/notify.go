package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newNotifyTestCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "notify-test",
		Short: "Post a test notification and wait for a decision",
		Long:  "Verifies the approval channel: posts a test message with approve/reject buttons and waits for a click.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotifyTest(cmd, url, timeout)
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "URL to reference in the test post (required)")
	cmd.Flags().DurationVar(&timeout, "approval-timeout", DefaultNotifyTestTimeout, "How long to wait for a click")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func runNotifyTest(cmd *cobra.Command, url string, timeout time.Duration) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if timeout <= 0 {
		return fmt.Errorf("approval timeout must be positive, got %s", timeout)
	}

	opts := depsOptions{
		ApprovalTimeout: timeout,
		Events:          newJSONLineSink(out),
		LogOutput:       cmd.ErrOrStderr(),
	}
	return withDeps(ctx, opts, func(deps *Deps) error {
		return printJSON(out, deps.NotifyHandler.Handle(ctx, url))
	})
}
