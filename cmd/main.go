// Command teamer serves balanced team suggestions for pickup games and
// manages the player store.
//
// Usage:
//
//	teamer serve [--memory]
//	teamer leaderboard [--played] [--json]
//	teamer snapshot list|create|prune|restore
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/okian/teamer/internal/adapters/repository"
	"github.com/okian/teamer/internal/adapters/roster"
	"github.com/okian/teamer/internal/config"
	"github.com/okian/teamer/internal/domain/rating"
	"github.com/okian/teamer/pkg/logger"
)

var errNoRoster = errors.New("no roster source: set roster_file or meetup_group")

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "teamer",
		Short:         "Balanced teams for pickup games",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(leaderboardCmd())
	root.AddCommand(snapshotCmd())
	return root
}

// bootstrap loads configuration and initialises logging from it. Logs go
// to stderr so command output stays clean.
func bootstrap(ctx context.Context) (*config.Config, error) {
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(
		logger.WithWriter(os.Stderr),
		logger.WithFormat(cfg.LogFormat),
		logger.WithLevel(cfg.LogLevel),
	); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*repository.FileStore, error) {
	var opts []repository.Option
	if cfg.BackupDir != "" {
		opts = append(opts, repository.WithBackupDir(cfg.BackupDir))
	}
	store, err := repository.OpenFileStore(ctx, cfg.DataDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DataDir, err)
	}
	return store, nil
}

func newRater(cfg *config.Config) *rating.OpenSkillRater {
	return rating.NewOpenSkillRater(
		rating.WithPrior(cfg.RatingMu, cfg.RatingSigma),
		rating.WithTau(cfg.RatingTau),
	)
}

// newRoster prefers a roster file over the Meetup API.
func newRoster(cfg *config.Config) (roster.Source, error) {
	switch {
	case cfg.RosterFile != "":
		return roster.LoadStaticSource(cfg.RosterFile)
	case cfg.MeetupGroup != "":
		return roster.NewMeetupClient(cfg.MeetupGroup, cfg.MeetupAPIKey,
			roster.WithBaseURL(cfg.MeetupBaseURL),
			roster.WithRequestsPerMinute(cfg.MeetupRequestsPerMinute),
			roster.WithTimeout(cfg.MeetupTimeout()),
		), nil
	default:
		return nil, errNoRoster
	}
}
