package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codearena/arena-go-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	return openTestDB(t, ":memory:")
}

// newFileTestDB backs the database with a file and a busy timeout so that
// concurrent writers queue instead of failing, which in-memory sqlite cannot do.
func newFileTestDB(t *testing.T) *gorm.DB {
	return openTestDB(t, filepath.Join(t.TempDir(), "arena.db")+"?_busy_timeout=5000")
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Problem{},
		&models.TestCase{},
		&models.Submission{},
	))

	return db
}
