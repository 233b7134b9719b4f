package repository

import (
	"time"

	"github.com/okian/teamer/pkg/logger"
)

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithBackupDir sets where snapshots are written.
func WithBackupDir(dir string) Option {
	return func(s *FileStore) {
		if dir != "" {
			s.backupDir = dir
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used to name snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}
