// Package persistencetest opens throwaway SQLite databases with the production schema
// for repository and use case tests.
package persistencetest

import (
	"path/filepath"
	"testing"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/Potenup-community/backend-sub002/internal/infra/persistence"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

// NewSQLite returns a DB backed by a file in t.TempDir. A single connection keeps
// transactions and plain queries on the same SQLite handle.
func NewSQLite(t *testing.T) *persistence.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := persistence.Open(sqlite.Open(dsn), persistence.Config{MaxConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Conn.AutoMigrate(
		&entity.ResumeReview{},
		&entity.OutboxEvent{},
		&entity.IdempotencyKey{},
		&entity.ConsumedMessage{},
	))
	return db
}
