package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/teamer/pkg/logger"
	"github.com/okian/teamer/pkg/metrics"
)

// Snapshots are named "state<unix-millis>" inside the backup directory.
const snapshotPrefix = "state"

// Snapshot copies the state directory to a new timestamped snapshot.
func (s *FileStore) Snapshot(ctx context.Context) (SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finishPending(ctx); err != nil {
		return SnapshotInfo{}, err
	}

	start := time.Now()
	if err := os.MkdirAll(s.backupDir, dirPerm); err != nil {
		return SnapshotInfo{}, fmt.Errorf("create backup dir: %w", err)
	}

	// Bump the timestamp until the name is free so two snapshots in the
	// same millisecond do not collide.
	at := s.now()
	var name, dst string
	for {
		name = snapshotPrefix + strconv.FormatInt(at.UnixMilli(), 10)
		dst = filepath.Join(s.backupDir, name)
		if _, err := os.Stat(dst); errors.Is(err, fs.ErrNotExist) {
			break
		}
		at = at.Add(time.Millisecond)
	}

	n, err := copyDir(ctx, s.stateDir, dst)
	if err != nil {
		_ = os.RemoveAll(dst)
		metrics.RecordStoreError("snapshot")
		return SnapshotInfo{}, fmt.Errorf("snapshot %s: %w", name, err)
	}

	metrics.RecordSnapshot(float64(time.Since(start).Milliseconds()))
	s.logger.Info(ctx, "snapshot taken", logger.String("name", name), logger.Int("records", n))
	return SnapshotInfo{Name: name, CreatedAt: time.UnixMilli(at.UnixMilli()), Records: n}, nil
}

// Snapshots lists snapshots, newest first.
func (s *FileStore) Snapshots(ctx context.Context) ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []SnapshotInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list backup dir: %w", err)
	}

	out := make([]SnapshotInfo, 0, len(entries))
	for _, e := range entries {
		ms, ok := parseSnapshotName(e.Name())
		if !e.IsDir() || !ok {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.backupDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", e.Name(), err)
		}
		out = append(out, SnapshotInfo{Name: e.Name(), CreatedAt: time.UnixMilli(ms), Records: len(files)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	metrics.UpdateSnapshotCount(len(out))
	return out, nil
}

// Prune deletes all but the newest keep snapshots.
func (s *FileStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	snaps, err := s.Snapshots(ctx)
	if err != nil {
		return 0, err
	}
	if len(snaps) <= keep {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, snap := range snaps[keep:] {
		if err := os.RemoveAll(filepath.Join(s.backupDir, snap.Name)); err != nil {
			return removed, fmt.Errorf("remove snapshot %s: %w", snap.Name, err)
		}
		removed++
	}
	metrics.UpdateSnapshotCount(len(snaps) - removed)
	s.logger.Info(ctx, "pruned snapshots", logger.Int("removed", removed), logger.Int("kept", keep))
	return removed, nil
}

// Restore replaces the live state directory with a copy of a snapshot.
// The snapshot itself is left in place.
func (s *FileStore) Restore(ctx context.Context, name string) error {
	if _, ok := parseSnapshotName(name); !ok {
		return fmt.Errorf("%w: %q", ErrSnapshotNotFound, name)
	}
	src := filepath.Join(s.backupDir, name)
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %q", ErrSnapshotNotFound, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tag := uuid.NewString()
	incoming := filepath.Join(s.root, "restore-"+tag)
	if _, err := copyDir(ctx, src, incoming); err != nil {
		_ = os.RemoveAll(incoming)
		return fmt.Errorf("restore %s: %w", name, err)
	}
	old := filepath.Join(s.root, "replaced-"+tag)
	if err := os.Rename(s.stateDir, old); err != nil {
		_ = os.RemoveAll(incoming)
		return fmt.Errorf("move live state aside: %w", err)
	}
	if err := os.Rename(incoming, s.stateDir); err != nil {
		// Put the live state back before giving up.
		_ = os.Rename(old, s.stateDir)
		return fmt.Errorf("install snapshot: %w", err)
	}
	// A batch journaled against the replaced state must not land on top of
	// the restored one.
	if err := s.dropPending(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "restored snapshot", logger.String("name", name))
	return os.RemoveAll(old)
}

func parseSnapshotName(name string) (int64, bool) {
	if !strings.HasPrefix(name, snapshotPrefix) {
		return 0, false
	}
	ms, err := strconv.ParseInt(strings.TrimPrefix(name, snapshotPrefix), 10, 64)
	if err != nil || ms < 0 {
		return 0, false
	}
	return ms, true
}

// copyDir copies the regular files of a flat directory and returns how
// many were copied.
func copyDir(ctx context.Context, src, dst string) (int, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dst, dirPerm); err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := copyFile(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, syncDir(dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
