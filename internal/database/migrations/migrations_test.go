package migrations

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-seating/internal/logger"
)

func TestDefaultOptionsUseEmbeddedSQL(t *testing.T) {
	opts := DefaultOptions()
	assert.Empty(t, opts.MigrationsDir)
	assert.True(t, opts.AutoMigrate)

	name, src, err := NewRunner(nil, opts, nil).sourceDriver()
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, "embedded", name)

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, ident, err := src.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "create_seating_tables", ident)
}

func TestMissingDirectoryIsReported(t *testing.T) {
	_, _, err := NewRunner(nil, MigrateOptions{MigrationsDir: "./does-not-exist"}, nil).sourceDriver()
	assert.ErrorContains(t, err, "does-not-exist")
}

func TestRunMigrationsSkippedWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(nil, MigrateOptions{MigrationsDir: "./missing", AutoMigrate: false}, logger.NewConsoleLogger(&buf, logger.INFO))

	assert.NoError(t, r.RunMigrations())
	assert.Contains(t, buf.String(), "Auto migration disabled")
	assert.NoError(t, r.Close())
}
