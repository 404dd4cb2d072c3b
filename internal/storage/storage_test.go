package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tg-sanctions/internal/config"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{
		Driver:   config.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "sanctions.db"),
		LogLevel: "SILENT",
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func newTestRepo(t *testing.T) *ActionRepository {
	t.Helper()
	db := newTestDB(t)
	return NewActionRepository(db, NewCounterRepository(db), "action")
}

var testCtx = context.Background()

func at(hours int) time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(hours) * time.Hour)
}

func configFor(addr string) config.RedisConfig {
	return config.RedisConfig{Enabled: true, Addr: addr}
}
