package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/teamer/internal/domain/model"
	"github.com/okian/teamer/pkg/logger"
	"github.com/okian/teamer/pkg/metrics"
)

// File layout under the data directory:
//
//	state/<player-id>.json     one player record
//	state/game-<event-id>.json one game record
//	staging-<uuid>/            records of an in-flight batch
//	JOURNAL                    names the staging dir once a batch is durable
const (
	stateDirName  = "state"
	stagingPrefix = "staging-"
	journalName   = "JOURNAL"
	gamePrefix    = "game-"
	recordExt     = ".json"
	tmpPrefix     = ".tmp-"

	dirPerm  = 0o755
	filePerm = 0o644
)

// journal lists the staged files of a batch. Once it is on disk the batch
// is committed and is rolled forward on open.
type journal struct {
	Staging string   `json:"staging"`
	Files   []string `json:"files"`
}

// FileStore keeps one JSON file per record in a state directory.
type FileStore struct {
	mu        sync.Mutex
	root      string
	stateDir  string
	backupDir string
	now       func() time.Time
	logger    logger.Logger
}

var (
	_ Store       = (*FileStore)(nil)
	_ Snapshotter = (*FileStore)(nil)
)

// OpenFileStore opens (creating if needed) a store rooted at dir and
// finishes or discards any batch interrupted by a crash.
func OpenFileStore(ctx context.Context, dir string, opts ...Option) (*FileStore, error) {
	s := &FileStore{
		root:      dir,
		stateDir:  filepath.Join(dir, stateDirName),
		backupDir: filepath.Join(dir, "backup"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("repository")
	}

	if err := os.MkdirAll(s.stateDir, dirPerm); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	if err := s.recover(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// StateDir returns the directory holding live records.
func (s *FileStore) StateDir() string { return s.stateDir }

func playerFile(id model.PlayerID) string { return string(id) + recordExt }
func gameFile(eventID string) string      { return model.GameKey(eventID) + recordExt }

// Player returns the stored record or ErrNotFound.
func (s *FileStore) Player(ctx context.Context, id model.PlayerID) (model.Player, error) {
	if err := validateKey("player", string(id)); err != nil {
		return model.Player{}, err
	}
	var p model.Player
	if err := s.readJSON(playerFile(id), &p); err != nil {
		return model.Player{}, err
	}
	if p.History == nil {
		p.History = []model.PlayerStats{}
	}
	return p, nil
}

// HasPlayer reports whether a record exists for id.
func (s *FileStore) HasPlayer(ctx context.Context, id model.PlayerID) (bool, error) {
	if err := validateKey("player", string(id)); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(s.stateDir, playerFile(id)))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat player %s: %w", id, err)
	}
}

// PutPlayer writes a single record via temp file and rename.
func (s *FileStore) PutPlayer(ctx context.Context, p model.Player) error {
	if err := validateKey("player", string(p.ID)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finishPending(ctx); err != nil {
		return err
	}
	return s.writeRecord(playerFile(p.ID), p)
}

// Players lists every stored player, ordered by id.
func (s *FileStore) Players(ctx context.Context) ([]model.Player, error) {
	entries, err := os.ReadDir(s.stateDir)
	if err != nil {
		return nil, fmt.Errorf("list state dir: %w", err)
	}
	players := make([]model.Player, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isPlayerFile(name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var p model.Player
		if err := s.readJSON(name, &p); err != nil {
			return nil, err
		}
		if p.History == nil {
			p.History = []model.PlayerStats{}
		}
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	metrics.UpdateTotalPlayers(len(players))
	return players, nil
}

func isPlayerFile(name string) bool {
	return strings.HasSuffix(name, recordExt) &&
		!strings.HasPrefix(name, gamePrefix) &&
		!strings.HasPrefix(name, ".")
}

// Game returns the recorded game for an event or ErrNotFound.
func (s *FileStore) Game(ctx context.Context, eventID string) (model.Game, error) {
	if err := validateKey("game", eventID); err != nil {
		return model.Game{}, err
	}
	var g model.Game
	if err := s.readJSON(gameFile(eventID), &g); err != nil {
		return model.Game{}, err
	}
	return g, nil
}

// PutGame writes a game record, replacing any earlier one.
func (s *FileStore) PutGame(ctx context.Context, g model.Game) error {
	if err := validateKey("game", g.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finishPending(ctx); err != nil {
		return err
	}
	return s.writeRecord(gameFile(g.ID), g)
}

// Commit stages every record, makes the batch durable with a journal and
// then moves the staged files into place.
func (s *FileStore) Commit(ctx context.Context, b Batch) error {
	if err := validateBatch(b); err != nil {
		return err
	}
	if b.Len() == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// An earlier batch whose apply failed still owns the journal. It must
	// land before anything else is written.
	if err := s.finishPending(ctx); err != nil {
		metrics.RecordStoreError("commit")
		return err
	}

	start := time.Now()
	stage := stagingPrefix + uuid.NewString()
	stageDir := filepath.Join(s.root, stage)
	if err := os.Mkdir(stageDir, dirPerm); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	j := journal{Staging: stage, Files: make([]string, 0, b.Len())}
	stageOne := func(name string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := writeFileSync(filepath.Join(stageDir, name), data); err != nil {
			return err
		}
		j.Files = append(j.Files, name)
		return nil
	}

	if b.Game != nil {
		if err := stageOne(gameFile(b.Game.ID), b.Game); err != nil {
			_ = os.RemoveAll(stageDir)
			return err
		}
	}
	for _, p := range b.Players {
		if err := stageOne(playerFile(p.ID), p); err != nil {
			_ = os.RemoveAll(stageDir)
			return err
		}
	}
	if err := syncDir(stageDir); err != nil {
		_ = os.RemoveAll(stageDir)
		return err
	}

	// Last point at which the batch can still be abandoned.
	if err := ctx.Err(); err != nil {
		_ = os.RemoveAll(stageDir)
		return err
	}

	data, err := json.Marshal(j)
	if err != nil {
		_ = os.RemoveAll(stageDir)
		return fmt.Errorf("encode journal: %w", err)
	}
	if err := writeAtomic(s.root, journalName, data); err != nil {
		_ = os.RemoveAll(stageDir)
		return fmt.Errorf("write journal: %w", err)
	}

	if err := s.apply(j); err != nil {
		metrics.RecordStoreError("commit")
		return err
	}
	metrics.RecordStoreCommit(float64(time.Since(start).Milliseconds()), b.Len())
	return nil
}

// apply moves journaled files into the state directory. It is idempotent:
// files already moved by an earlier attempt are skipped.
func (s *FileStore) apply(j journal) error {
	stageDir := filepath.Join(s.root, j.Staging)
	for _, name := range j.Files {
		src := filepath.Join(stageDir, name)
		if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.Rename(src, filepath.Join(s.stateDir, name)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	if err := syncDir(s.stateDir); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, journalName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove journal: %w", err)
	}
	return os.RemoveAll(stageDir)
}

// readJournal returns the pending journal, if any.
func (s *FileStore) readJournal() (journal, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.root, journalName))
	if errors.Is(err, fs.ErrNotExist) {
		return journal{}, false, nil
	}
	if err != nil {
		return journal{}, false, fmt.Errorf("read journal: %w", err)
	}
	var j journal
	if err := json.Unmarshal(data, &j); err != nil {
		return journal{}, false, fmt.Errorf("%w: journal: %v", ErrMalformed, err)
	}
	return j, true, nil
}

// finishPending rolls a journaled batch forward. Callers hold s.mu.
func (s *FileStore) finishPending(ctx context.Context) error {
	j, ok, err := s.readJournal()
	if err != nil || !ok {
		return err
	}
	s.logger.Warn(ctx, "rolling forward interrupted batch",
		logger.String("staging", j.Staging),
		logger.Int("files", len(j.Files)),
	)
	if err := s.apply(j); err != nil {
		return fmt.Errorf("finish pending batch: %w", err)
	}
	return nil
}

// dropPending discards a journaled batch without applying it. Callers hold s.mu.
func (s *FileStore) dropPending(ctx context.Context) error {
	j, ok, err := s.readJournal()
	if err != nil || !ok {
		return err
	}
	s.logger.Warn(ctx, "discarding pending batch", logger.String("staging", j.Staging))
	if err := os.Remove(filepath.Join(s.root, journalName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove journal: %w", err)
	}
	return os.RemoveAll(filepath.Join(s.root, j.Staging))
}

// recover rolls a durable journal forward and drops orphaned staging dirs.
func (s *FileStore) recover(ctx context.Context) error {
	if err := s.finishPending(ctx); err != nil {
		return err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("list data dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() && (strings.HasPrefix(e.Name(), stagingPrefix) || strings.HasPrefix(e.Name(), "restore-")) {
			s.logger.Warn(ctx, "discarding uncommitted batch", logger.String("staging", e.Name()))
			if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
				return fmt.Errorf("remove staging dir: %w", err)
			}
		}
	}
	return nil
}

func (s *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.stateDir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSuffix(name, recordExt))
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return nil
}

func (s *FileStore) writeRecord(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := writeAtomic(s.stateDir, name, data); err != nil {
		metrics.RecordStoreError("write")
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// writeAtomic replaces dir/name with data via a synced temp file.
func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, tmpPrefix+name+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return syncDir(dir)
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}
