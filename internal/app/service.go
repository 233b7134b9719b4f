// Package service orchestrates the roster source, the rating model and the
// stores behind the operations the HTTP API and the CLI expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/okian/teamer/internal/adapters/mq/queue"
	"github.com/okian/teamer/internal/adapters/mq/worker"
	"github.com/okian/teamer/internal/adapters/repository"
	"github.com/okian/teamer/internal/adapters/roster"
	"github.com/okian/teamer/internal/domain/model"
	"github.com/okian/teamer/internal/domain/ranking"
	"github.com/okian/teamer/internal/domain/rating"
	"github.com/okian/teamer/internal/domain/teams"
	"github.com/okian/teamer/internal/domain/types"
	"github.com/okian/teamer/pkg/logger"
	"github.com/okian/teamer/pkg/metrics"
)

const (
	defaultQueueSize   = 64
	defaultRetention   = 30
	defaultMaxRoster   = 16
	defaultTopMatchups = 5
)

// Service implements the matchmaking operations.
type Service struct {
	mu sync.RWMutex
	// writeMu serialises every store mutation: the writer's match jobs and
	// roster provisioning.
	writeMu sync.Mutex

	// Collaborators
	store     repository.Store
	snapshots repository.Snapshotter
	roster    roster.Source
	rater     rating.Rater
	generator *teams.Generator
	ranker    *ranking.Ranker

	// Single writer
	queue  *queue.InMemoryQueue
	writer *worker.Writer

	// Configuration
	queueSize   int
	retention   int
	maxRoster   int
	topMatchups int
	now         func() time.Time

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRater sets the rating model. The default is OpenSkill with its own
// prior.
func WithRater(r rating.Rater) Option {
	return func(s *Service) {
		if r != nil {
			s.rater = r
		}
	}
}

// WithQueueSize sets how many match recordings may wait for the writer.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSnapshotRetention sets how many snapshots to keep after each one taken
// while recording. Zero or less keeps all of them.
func WithSnapshotRetention(keep int) Option {
	return func(s *Service) {
		s.retention = keep
	}
}

// WithMaxRoster caps the roster size the team generator accepts.
func WithMaxRoster(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRoster = n
		}
	}
}

// WithTopMatchups sets how many candidate matchups NextEvent returns.
func WithTopMatchups(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topMatchups = n
		}
	}
}

// WithSnapshotter overrides the snapshotter. By default the store is used
// when it implements repository.Snapshotter.
func WithSnapshotter(sn repository.Snapshotter) Option {
	return func(s *Service) {
		s.snapshots = sn
	}
}

// WithClock sets the clock used to stamp recorded games.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wires a service over a store and a roster source.
func New(store repository.Store, src roster.Source, opts ...Option) *Service {
	s := &Service{
		store:       store,
		roster:      src,
		queueSize:   defaultQueueSize,
		retention:   defaultRetention,
		maxRoster:   defaultMaxRoster,
		topMatchups: defaultTopMatchups,
		now:         time.Now,
	}
	if sn, ok := store.(repository.Snapshotter); ok {
		s.snapshots = sn
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.rater == nil {
		s.rater = rating.NewOpenSkillRater()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.generator = teams.NewGenerator(teams.WithMaxRoster(s.maxRoster))
	s.ranker = ranking.NewRanker(s.rater, ranking.WithLimit(s.topMatchups))
	return s
}

// Start launches the single writer that applies match recordings.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.writer = worker.NewWriter(s.queue, s,
		worker.WithName("writer"),
		worker.WithLogger(s.logger.Named("writer")),
	)
	// The writer outlives the start-up context; Stop ends it.
	go s.writer.Run(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("snapshotRetention", s.retention),
		logger.Int("maxRoster", s.maxRoster),
		logger.Int("topMatchups", s.topMatchups),
	)
	return nil
}

// Stop refuses new recordings, lets the writer finish queued ones and waits
// for it until ctx ends.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping service...")

	_ = s.queue.Close()
	err := s.writer.Shutdown(ctx)

	s.started = false
	s.logger.Info(ctx, "service stopped")
	return err
}

// NextEvent returns the next scheduled event with the best balanced
// splits of its "yes" RSVPs. Missing players are created first. An odd
// roster benches its last member.
func (s *Service) NextEvent(ctx context.Context) (types.NextEvent, error) {
	ev, members, err := s.roster.NextEvent(ctx)
	if err != nil {
		return types.NextEvent{}, fmt.Errorf("next event: %w", err)
	}
	members = usableMembers(members)

	if _, err := s.Provision(ctx, members); err != nil {
		return types.NextEvent{}, err
	}

	out := types.NextEvent{NextEvent: ev, PossibleTeams: []types.Matchup{}}
	ids, benched := teams.Bench(model.MemberIDs(members))
	if benched != "" {
		out.Benched = []model.Member{members[len(members)-1]}
	}
	if len(ids) == 0 {
		return out, nil
	}

	start := time.Now()
	splits, err := s.generator.Split(ids)
	if err != nil {
		return types.NextEvent{}, fmt.Errorf("split roster: %w", err)
	}
	metrics.RecordMatchupsGenerated(len(splits))

	players := make(map[model.PlayerID]model.Player, len(ids))
	for _, id := range ids {
		p, err := s.store.Player(ctx, id)
		if err != nil {
			return types.NextEvent{}, fmt.Errorf("load player %s: %w", id, err)
		}
		players[id] = p
	}

	ranked, err := s.ranker.Rank(splits, players)
	if err != nil {
		return types.NextEvent{}, err
	}
	metrics.RecordRankingLatency(float64(time.Since(start).Milliseconds()))

	out.PossibleTeams = ranked
	s.logger.Debug(ctx, "ranked next event",
		logger.String("event", ev.ID),
		logger.Int("roster", len(ids)),
		logger.Int("candidates", len(splits)),
	)
	return out, nil
}

// RecentEvents returns past events, most recent first.
func (s *Service) RecentEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.roster.RecentEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return events, nil
}

// EventDetails returns who attended an event and its recorded result. A
// missing record is not an error: Record is nil.
func (s *Service) EventDetails(ctx context.Context, eventID string) (types.EventDetails, error) {
	attendees, err := s.roster.Attendance(ctx, eventID)
	if err != nil {
		return types.EventDetails{}, fmt.Errorf("attendance %s: %w", eventID, err)
	}
	out := types.EventDetails{EventPlayers: attendees}

	g, err := s.store.Game(ctx, eventID)
	switch {
	case err == nil:
		out.Record = &g
	case errors.Is(err, repository.ErrNotFound):
	default:
		return types.EventDetails{}, fmt.Errorf("game %s: %w", eventID, err)
	}
	return out, nil
}

// RecordMatch validates a result and hands it to the writer, waiting for
// the outcome. Invalid results fail with ErrInvalidMatch and write nothing.
func (s *Service) RecordMatch(ctx context.Context, eventID string, winners, losers []model.PlayerID) error {
	m := model.MatchResult{EventID: strings.TrimSpace(eventID), Winners: winners, Losers: losers}
	if err := validateMatch(m); err != nil {
		metrics.RecordMatchRejected("invalid")
		return err
	}

	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	if err := q.Submit(ctx, m); err != nil {
		if errors.Is(err, queue.ErrBackpressure) {
			metrics.RecordMatchRejected("backpressure")
		}
		return err
	}
	return nil
}

// ApplyMatch performs one recording. Only the writer calls it.
//
// Nothing is written until the snapshot of the prior state exists. RSVPs
// missing from the store are built in memory and committed in the same
// batch as the game and every rated player, so a failure at any step
// leaves the store as it was.
func (s *Service) ApplyMatch(ctx context.Context, m model.MatchResult) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rsvps, err := s.roster.RSVPs(ctx, m.EventID)
	if err != nil {
		return fmt.Errorf("rsvps %s: %w", m.EventID, err)
	}
	fresh, err := s.missingPlayers(ctx, usableMembers(rsvps))
	if err != nil {
		return err
	}
	pending := lo.KeyBy(fresh, func(p model.Player) model.PlayerID { return p.ID })

	winners, err := s.loadTeam(ctx, m.Winners, pending)
	if err != nil {
		return err
	}
	losers, err := s.loadTeam(ctx, m.Losers, pending)
	if err != nil {
		return err
	}

	if err := s.snapshot(ctx); err != nil {
		return err
	}

	start := time.Now()
	nextW, nextL, err := s.rater.Rate(skills(winners), skills(losers))
	if err != nil {
		return fmt.Errorf("rate %s: %w", m.EventID, err)
	}
	metrics.RecordRatingLatency(float64(time.Since(start).Microseconds()) / 1000)

	updated := make([]model.Player, 0, len(winners)+len(losers)+len(fresh))
	for i, p := range winners {
		updated = append(updated, p.Apply(nextW[i], true))
	}
	for i, p := range losers {
		updated = append(updated, p.Apply(nextL[i], false))
	}
	for _, p := range fresh {
		if !lo.Contains(m.Winners, p.ID) && !lo.Contains(m.Losers, p.ID) {
			updated = append(updated, p)
		}
	}

	game := model.NewGame(m.EventID, m.Winners, m.Losers, s.now())
	if err := s.store.Commit(ctx, repository.Batch{Players: updated, Game: &game}); err != nil {
		return fmt.Errorf("commit %s: %w", m.EventID, err)
	}

	if len(fresh) > 0 {
		metrics.RecordPlayersProvisioned(len(fresh))
	}
	metrics.RecordMatchRecorded()
	s.logger.Info(ctx, "match recorded",
		logger.String("event", m.EventID),
		logger.Strings("winners", idStrings(m.Winners)),
		logger.Strings("losers", idStrings(m.Losers)),
	)
	return nil
}

// Leaderboard ranks every stored player by exposure, highest first.
func (s *Service) Leaderboard(ctx context.Context) ([]types.LeaderboardEntry, error) {
	players, err := s.store.Players(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	metrics.UpdateTotalPlayers(len(players))
	return s.ranker.Leaderboard(players), nil
}

// Provision creates a default-prior record for every member not yet
// stored and returns how many were created. Existing records are left
// untouched.
func (s *Service) Provision(ctx context.Context, members []model.Member) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.provisionLocked(ctx, members)
}

func (s *Service) provisionLocked(ctx context.Context, members []model.Member) (int, error) {
	fresh, err := s.missingPlayers(ctx, usableMembers(members))
	if err != nil {
		return 0, err
	}
	created := 0
	for _, p := range fresh {
		if err := s.store.PutPlayer(ctx, p); err != nil {
			return created, fmt.Errorf("provision %s: %w", p.ID, err)
		}
		created++
	}
	if created > 0 {
		metrics.RecordPlayersProvisioned(created)
		s.logger.Debug(ctx, "provisioned players", logger.Int("created", created))
	}
	return created, nil
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.Stats{
		Started:       s.started,
		QueueCapacity: s.queueSize,
		MaxRoster:     s.maxRoster,
		TopMatchups:   s.topMatchups,
	}
	if s.started {
		stats.QueueLength = s.queue.Len(ctx)
		metrics.UpdateQueueSize(stats.QueueLength)
	}
	if players, err := s.store.Players(ctx); err == nil {
		stats.Players = len(players)
		metrics.UpdateTotalPlayers(stats.Players)
	} else {
		s.logger.Warn(ctx, "stats: listing players failed", logger.Error(err))
	}
	if s.snapshots != nil {
		if infos, err := s.snapshots.Snapshots(ctx); err == nil {
			stats.Snapshots = len(infos)
			metrics.UpdateSnapshotCount(stats.Snapshots)
		}
	}
	return stats
}

// missingPlayers builds default-prior records for members the store does
// not hold yet. It only reads.
func (s *Service) missingPlayers(ctx context.Context, members []model.Member) ([]model.Player, error) {
	var out []model.Player
	for _, m := range members {
		ok, err := s.store.HasPlayer(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("provision %s: %w", m.ID, err)
		}
		if !ok {
			out = append(out, model.NewPlayer(m.ID, m.Name, s.rater.Default()))
		}
	}
	return out, nil
}

// usableMembers drops members without an id and repeated ids, keeping the
// first occurrence.
func usableMembers(members []model.Member) []model.Member {
	withID := lo.Filter(members, func(m model.Member, _ int) bool { return m.ID != "" })
	return lo.UniqBy(withID, func(m model.Member) model.PlayerID { return m.ID })
}

// loadTeam reads each player. Ids the store has never seen come from
// pending RSVP records, or else get the default prior and their id as
// name. Created records are only written by the commit.
func (s *Service) loadTeam(ctx context.Context, ids []model.PlayerID, pending map[model.PlayerID]model.Player) ([]model.Player, error) {
	out := make([]model.Player, 0, len(ids))
	for _, id := range ids {
		p, err := s.store.Player(ctx, id)
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrNotFound):
			if rp, ok := pending[id]; ok {
				p = rp
				break
			}
			s.logger.Warn(ctx, "recording unknown player", logger.String("player", id.String()))
			p = model.NewPlayer(id, id.String(), s.rater.Default())
		default:
			return nil, fmt.Errorf("load player %s: %w", id, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) snapshot(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	info, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	removed, err := s.snapshots.Prune(ctx, s.retention)
	if err != nil {
		// The new snapshot exists; a failed prune only leaves extra copies.
		s.logger.Warn(ctx, "pruning snapshots failed", logger.Error(err))
	}
	s.logger.Debug(ctx, "snapshot taken",
		logger.String("snapshot", info.Name),
		logger.Int("records", info.Records),
		logger.Int("pruned", removed),
	)
	return nil
}

func validateMatch(m model.MatchResult) error {
	if m.EventID == "" {
		return fmt.Errorf("%w: missing event id", ErrInvalidMatch)
	}
	if len(m.Winners) == 0 || len(m.Losers) == 0 {
		return fmt.Errorf("%w: both teams need at least one player", ErrInvalidMatch)
	}
	if lo.Contains(m.Winners, "") || lo.Contains(m.Losers, "") {
		return fmt.Errorf("%w: empty player id", ErrInvalidMatch)
	}
	if dups := lo.FindDuplicates(m.Winners); len(dups) > 0 {
		return fmt.Errorf("%w: winners repeat %v", ErrInvalidMatch, dups)
	}
	if dups := lo.FindDuplicates(m.Losers); len(dups) > 0 {
		return fmt.Errorf("%w: losers repeat %v", ErrInvalidMatch, dups)
	}
	if both := lo.Intersect(m.Winners, m.Losers); len(both) > 0 {
		return fmt.Errorf("%w: %v on both teams", ErrInvalidMatch, both)
	}
	return nil
}

func skills(players []model.Player) []model.Skill {
	return lo.Map(players, func(p model.Player, _ int) model.Skill { return p.Skill() })
}

func idStrings(ids []model.PlayerID) []string {
	return lo.Map(ids, func(id model.PlayerID, _ int) string { return id.String() })
}
