package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auma/compliance-gate/internal/models"
)

func TestConnect(t *testing.T) {
	db, err := Connect("file::memory:?cache=shared")
	assert.NoError(t, err)
	assert.NotNil(t, db)

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err = Connect(dbPath)
	assert.NoError(t, err)
	assert.NotNil(t, db)
	assert.FileExists(t, dbPath)
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u:p@localhost/db"))
	assert.True(t, IsPostgres("postgresql://localhost/db"))
	assert.False(t, IsPostgres("data/compliance.db"))
	assert.False(t, IsPostgres("file::memory:"))
}

func TestMigrate(t *testing.T) {
	db, err := Connect(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, m := range []interface{}{&models.Escalation{}, &models.AuditLog{}, &models.MloUser{}, &models.Loan{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}
}
