package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/ersonp/pagewatch/internal/application/handlers"
	"github.com/ersonp/pagewatch/internal/domain/entities"
)

type runFlags struct {
	url             string
	keywords        []string
	products        []string
	tone            string
	forcePost       bool
	forceChange     bool
	approvalTimeout time.Duration
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check a page for changes and request approval",
		Long: `Fetches the page, compares it with the last approved snapshot and, when it
changed, posts a summary for approval. Prints the approval event (if any)
and the run result as JSON. A non-OK status does not change the exit code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.url, "url", "u", "", "Page URL to watch (required)")
	cmd.Flags().StringSliceVarP(&flags.keywords, "keywords", "k", nil, "Keywords that make a change relevant")
	cmd.Flags().StringSliceVarP(&flags.products, "products", "p", nil, "Product names that make a change relevant")
	cmd.Flags().StringVarP(&flags.tone, "tone", "t", "neutral", fmt.Sprintf("Draft tone %v", validTones))
	cmd.Flags().BoolVar(&flags.forcePost, "force-post", false, "Post even when no candidate clears the relevance threshold")
	cmd.Flags().BoolVar(&flags.forceChange, "force-change", false, "Treat the page as changed even when the digest matches")
	cmd.Flags().DurationVar(&flags.approvalTimeout, "approval-timeout", 0, "How long to wait for a decision (default from config)")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func runWatch(cmd *cobra.Command, flags runFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if !slices.Contains(validTones, flags.tone) {
		return fmt.Errorf("invalid tone %q, valid tones: %v", flags.tone, validTones)
	}
	if flags.approvalTimeout < 0 {
		return fmt.Errorf("approval timeout must be positive, got %s", flags.approvalTimeout)
	}

	opts := depsOptions{
		ApprovalTimeout: flags.approvalTimeout,
		Events:          newJSONLineSink(out),
		LogOutput:       cmd.ErrOrStderr(),
	}
	return withDeps(ctx, opts, func(deps *Deps) error {
		result := deps.WatchHandler.Handle(ctx, handlers.WatchRequest{
			URL:         flags.url,
			Keywords:    flags.keywords,
			Products:    flags.products,
			Tone:        entities.Tone(flags.tone),
			ForcePost:   flags.forcePost,
			ForceChange: flags.forceChange,
		})

		if err := deps.Metrics.Push(ctx); err != nil {
			deps.Logger.Warn("metrics push failed", "error", err)
		}

		return printJSON(out, result)
	})
}
