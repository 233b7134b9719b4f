package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/teamer/internal/domain/ranking"
	"github.com/okian/teamer/internal/domain/types"
)

func leaderboardCmd() *cobra.Command {
	var played, asJSON bool
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print every stored player ranked by exposure",
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
			players, err := store.Players(ctx)
			if err != nil {
				return err
			}

			entries := ranking.NewRanker(newRater(cfg)).Leaderboard(players)
			if played {
				entries = ranking.Played(entries)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			return printLeaderboard(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().BoolVar(&played, "played", false, "Only players with at least one game")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func printLeaderboard(out io.Writer, entries []types.LeaderboardEntry) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tRATING\tMU\tSIGMA\tW-L")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\t%d-%d\n",
			e.Rank, e.Name, e.Rating, e.Mu, e.Sigma, e.Wins, e.Loses)
	}
	return tw.Flush()
}
