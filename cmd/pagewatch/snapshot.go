package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ersonp/pagewatch/internal/application/handlers"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect or seed stored page digests",
	}

	cmd.AddCommand(
		newSnapshotGetCmd(),
		newSnapshotSetCmd(),
		newSnapshotListCmd(),
	)

	return cmd
}

func newSnapshotGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <url>",
		Short: "Show the stored digest for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd.Context(), func(h *handlers.SnapshotHandler) error {
				snap, err := h.HandleGet(cmd.Context(), args[0])
				if errors.Is(err, handlers.ErrSnapshotNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "No snapshot stored for %s\n", args[0])
					return nil
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), snap)
			})
		},
	}
}

func newSnapshotSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <url> [hash]",
		Short: "Store a digest for a URL",
		Long: fmt.Sprintf(`Stores hash as the last approved digest for url. Without a hash, %q is
stored, which makes the next run see the page as changed.`, handlers.DefaultManualHash),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := ""
			if len(args) == 2 {
				hash = args[1]
			}
			return withSnapshots(cmd.Context(), func(h *handlers.SnapshotHandler) error {
				snap, err := h.HandleSet(cmd.Context(), args[0], hash)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s -> %s\n", snap.URL, snap.Hash)
				return nil
			})
		},
	}
}

func newSnapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every stored digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd.Context(), func(h *handlers.SnapshotHandler) error {
				snaps, err := h.HandleList(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(snaps) == 0 {
					fmt.Fprintln(out, "No snapshots stored.")
					return nil
				}
				for _, s := range snaps {
					fmt.Fprintf(out, "%s  %s  %s\n", s.UpdatedAt.UTC().Format(time.RFC3339), s.Hash, s.URL)
				}
				return nil
			})
		},
	}
}
