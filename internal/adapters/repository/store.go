// Package repository persists player and game records.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/teamer/internal/domain/model"
)

// Batch is a set of records committed together: either every record in it
// becomes visible or none does.
type Batch struct {
	Players []model.Player
	Game    *model.Game
}

// Len returns the number of records in the batch.
func (b Batch) Len() int {
	n := len(b.Players)
	if b.Game != nil {
		n++
	}
	return n
}

// Store provides read/write access to player and game records.
type Store interface {
	// Player returns the stored record or ErrNotFound.
	Player(ctx context.Context, id model.PlayerID) (model.Player, error)
	// HasPlayer reports whether a record exists for id.
	HasPlayer(ctx context.Context, id model.PlayerID) (bool, error)
	// PutPlayer writes a single record.
	PutPlayer(ctx context.Context, p model.Player) error
	// Players lists every stored player, ordered by id.
	Players(ctx context.Context) ([]model.Player, error)

	// Game returns the recorded game for an event or ErrNotFound.
	Game(ctx context.Context, eventID string) (model.Game, error)
	// PutGame writes a game record, replacing any earlier one.
	PutGame(ctx context.Context, g model.Game) error

	// Commit writes every record in b, all-or-nothing.
	Commit(ctx context.Context, b Batch) error
}

// SnapshotInfo describes one full copy of the player store.
type SnapshotInfo struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Records   int       `json:"records"`
}

// Snapshotter takes and manages full copies of the store.
type Snapshotter interface {
	// Snapshot copies every record to a new, uniquely named snapshot.
	Snapshot(ctx context.Context) (SnapshotInfo, error)
	// Snapshots lists snapshots, newest first.
	Snapshots(ctx context.Context) ([]SnapshotInfo, error)
	// Prune deletes all but the newest keep snapshots and returns how many
	// were removed. keep <= 0 keeps everything.
	Prune(ctx context.Context, keep int) (int, error)
	// Restore replaces the live records with the named snapshot.
	Restore(ctx context.Context, name string) error
}

// validateKey rejects ids that cannot be used as a record key.
func validateKey(kind, id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty %s id", ErrInvalidID, kind)
	case strings.ContainsAny(id, `/\`) || strings.Contains(id, ".."):
		return fmt.Errorf("%w: %s id %q", ErrInvalidID, kind, id)
	case strings.HasPrefix(id, "."):
		return fmt.Errorf("%w: %s id %q", ErrInvalidID, kind, id)
	case kind == "player" && strings.HasPrefix(id, gamePrefix):
		return fmt.Errorf("%w: player id %q collides with game records", ErrInvalidID, id)
	}
	return nil
}

func validateBatch(b Batch) error {
	for _, p := range b.Players {
		if err := validateKey("player", string(p.ID)); err != nil {
			return err
		}
	}
	if b.Game != nil {
		if err := validateKey("game", b.Game.ID); err != nil {
			return err
		}
	}
	return nil
}
