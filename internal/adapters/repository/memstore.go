package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/okian/teamer/internal/domain/model"
)

type memState struct {
	players map[model.PlayerID]model.Player
	games   map[string]model.Game
}

func newMemState() memState {
	return memState{
		players: make(map[model.PlayerID]model.Player),
		games:   make(map[string]model.Game),
	}
}

func (m memState) clone() memState {
	out := newMemState()
	for id, p := range m.players {
		out.players[id] = p.Clone()
	}
	for id, g := range m.games {
		out.games[id] = cloneGame(g)
	}
	return out
}

func (m memState) len() int { return len(m.players) + len(m.games) }

func cloneGame(g model.Game) model.Game {
	return model.NewGame(g.ID, g.WinningTeam, g.LosingTeam, g.RecordedAt())
}

type memSnapshot struct {
	info  SnapshotInfo
	state memState
}

// MemoryStore is an in-process Store and Snapshotter.
// Every read and write copies records so callers never alias stored data.
type MemoryStore struct {
	mu        sync.RWMutex
	state     memState
	snapshots []memSnapshot
	now       func() time.Time
}

var (
	_ Store       = (*MemoryStore)(nil)
	_ Snapshotter = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState(), now: time.Now}
}

// WithNow replaces the clock used to name snapshots.
func (s *MemoryStore) WithNow(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *MemoryStore) Player(ctx context.Context, id model.PlayerID) (model.Player, error) {
	if err := validateKey("player", string(id)); err != nil {
		return model.Player{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.players[id]
	if !ok {
		return model.Player{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) HasPlayer(ctx context.Context, id model.PlayerID) (bool, error) {
	if err := validateKey("player", string(id)); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.state.players[id]
	return ok, nil
}

func (s *MemoryStore) PutPlayer(ctx context.Context, p model.Player) error {
	if err := validateKey("player", string(p.ID)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.players[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) Players(ctx context.Context) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Player, 0, len(s.state.players))
	for _, p := range s.state.players {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Game(ctx context.Context, eventID string) (model.Game, error) {
	if err := validateKey("game", eventID); err != nil {
		return model.Game{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.state.games[eventID]
	if !ok {
		return model.Game{}, fmt.Errorf("%w: %s", ErrNotFound, model.GameKey(eventID))
	}
	return cloneGame(g), nil
}

func (s *MemoryStore) PutGame(ctx context.Context, g model.Game) error {
	if err := validateKey("game", g.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.games[g.ID] = cloneGame(g)
	return nil
}

// Commit applies the batch under a single lock.
func (s *MemoryStore) Commit(ctx context.Context, b Batch) error {
	if err := validateBatch(b); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range b.Players {
		s.state.players[p.ID] = p.Clone()
	}
	if b.Game != nil {
		s.state.games[b.Game.ID] = cloneGame(*b.Game)
	}
	return nil
}

func (s *MemoryStore) Snapshot(ctx context.Context) (SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now()
	name := snapshotPrefix + strconv.FormatInt(at.UnixMilli(), 10)
	for s.snapshotIndex(name) >= 0 {
		at = at.Add(time.Millisecond)
		name = snapshotPrefix + strconv.FormatInt(at.UnixMilli(), 10)
	}
	info := SnapshotInfo{Name: name, CreatedAt: time.UnixMilli(at.UnixMilli()), Records: s.state.len()}
	s.snapshots = append(s.snapshots, memSnapshot{info: info, state: s.state.clone()})
	return info, nil
}

func (s *MemoryStore) Snapshots(ctx context.Context) ([]SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedInfos(), nil
}

func (s *MemoryStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) <= keep {
		return 0, nil
	}
	sort.Slice(s.snapshots, func(i, j int) bool {
		return s.snapshots[i].info.CreatedAt.After(s.snapshots[j].info.CreatedAt)
	})
	removed := len(s.snapshots) - keep
	s.snapshots = s.snapshots[:keep]
	return removed, nil
}

func (s *MemoryStore) Restore(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.snapshotIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrSnapshotNotFound, name)
	}
	s.state = s.snapshots[i].state.clone()
	return nil
}

func (s *MemoryStore) snapshotIndex(name string) int {
	for i, snap := range s.snapshots {
		if snap.info.Name == name {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) sortedInfos() []SnapshotInfo {
	out := make([]SnapshotInfo, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
