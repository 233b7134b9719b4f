package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage full copies of the player store",
	}
	cmd.AddCommand(snapshotListCmd())
	cmd.AddCommand(snapshotCreateCmd())
	cmd.AddCommand(snapshotPruneCmd())
	cmd.AddCommand(snapshotRestoreCmd())
	return cmd
}

func snapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			infos, err := store.Snapshots(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCREATED\tRECORDS")
			for _, s := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", s.Name, s.CreatedAt.UTC().Format(time.RFC3339), s.Records)
			}
			return tw.Flush()
		},
	}
}

func snapshotCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Copy the current records into a new snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			info, err := store.Snapshot(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%d records)\n", info.Name, info.Records)
			return nil
		},
	}
}

func snapshotPruneCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("keep") {
				keep = cfg.SnapshotRetention
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			removed, err := store.Prune(ctx, keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d snapshots, kept %s\n", removed, keepLabel(keep))
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "Snapshots to keep (default snapshot_retention; 0 keeps all)")
	return cmd
}

func snapshotRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name>",
		Short: "Replace the live records with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			if err := store.Restore(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", args[0])
			return nil
		},
	}
}

func keepLabel(keep int) string {
	if keep <= 0 {
		return "all"
	}
	return "the newest " + strconv.Itoa(keep)
}
