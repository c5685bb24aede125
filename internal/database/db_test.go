package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesDirectoryAndOpensWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "saves.db")
	db, err := New(Config{Path: path, Name: "saves"})
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.Conn().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
	assert.True(t, filepath.IsAbs(db.Path()))
}

func TestConnectionStringCarriesDurabilityPragmas(t *testing.T) {
	connStr := buildConnectionString("/tmp/x.db")
	assert.Contains(t, connStr, "journal_mode(WAL)")
	assert.Contains(t, connStr, "synchronous(NORMAL)")
	assert.Contains(t, connStr, "foreign_keys(1)")
}
