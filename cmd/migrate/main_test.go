package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRejectsUnknownDriver(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "ledger.db")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DATABASE_URL", dsn)

	err := run([]string{"up"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")

	_, statErr := os.Stat(dsn)
	assert.True(t, os.IsNotExist(statErr), "no sqlite file should be created for an unknown driver")
}

func TestRunAgainstSQLite(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "ledger.db"))
	t.Setenv("LOG_LEVEL", "error")

	require.NoError(t, run([]string{"up"}))
	require.NoError(t, run([]string{"version"}))
	require.NoError(t, run([]string{"steps", "-1"}))
	require.NoError(t, run([]string{"steps", "1"}))

	assert.Error(t, run(nil))
	assert.Error(t, run([]string{"steps"}))
	assert.Error(t, run([]string{"steps", "0"}))
	assert.Error(t, run([]string{"sideways"}))
}
