//go:build integration

package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ms-seating/internal/database/migrations"
	"ms-seating/internal/logger"
	"ms-seating/internal/models"
	"ms-seating/internal/store"
	"ms-seating/internal/store/storetest"
)

// startPostgres runs a migrated PostgreSQL container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}

	ctx := context.Background()
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "seating",
				"POSTGRES_PASSWORD": "seating",
				"POSTGRES_DB":       "seating",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://seating:seating@%s:%s/seating?sslmode=disable", host, port.Port())

	log := logger.NewConsoleLogger(testWriter{t}, logger.INFO)
	migrationDB, err := Open(Options{Driver: "postgres", DSN: dsn, MaxOpenConns: 1})
	require.NoError(t, err)
	runner := migrations.NewRunner(migrationDB, migrations.MigrateOptions{AutoMigrate: true}, log)
	require.NoError(t, runner.RunMigrations())
	require.NoError(t, runner.Close())
	return dsn
}

// TestPostgresStore runs the store behaviour against a real PostgreSQL.
func TestPostgresStore(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	bunDB, err := Open(Options{Driver: "postgres", DSN: dsn, MaxOpenConns: 5})
	require.NoError(t, err)
	defer bunDB.Close()

	d := New(bunDB)
	storetest.Run(t, func(t *testing.T) store.Store {
		_, err := bunDB.ExecContext(ctx, "TRUNCATE events, venue_rows, seat_holds, reservations RESTART IDENTITY")
		require.NoError(t, err)
		return d
	})
}

// A writer that queued on the event lock must see the previous writer's
// commit and go through, not fail with a serialization error.
func TestPostgresQueuedWriterSeesCommit(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	bunDB, err := Open(Options{Driver: "postgres", DSN: dsn, MaxOpenConns: 5})
	require.NoError(t, err)
	defer bunDB.Close()
	d := New(bunDB)

	require.NoError(t, d.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertEvent(ctx, &models.Event{Name: "Race Night", NumSeatsAvailable: 10})
	}))

	locked := make(chan struct{})
	commit := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- d.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			event, err := tx.GetEvent(ctx)
			if err != nil {
				return err
			}
			close(locked)
			<-commit
			event.NumSeatsAvailable -= 3
			return tx.UpdateEvent(ctx, event)
		})
	}()
	<-locked

	secondDone := make(chan error, 1)
	var seen int
	go func() {
		secondDone <- d.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			event, err := tx.GetEvent(ctx)
			if err != nil {
				return err
			}
			seen = event.NumSeatsAvailable
			event.NumSeatsAvailable -= 2
			return tx.UpdateEvent(ctx, event)
		})
	}()

	// give the second transaction time to queue on the row lock
	time.Sleep(200 * time.Millisecond)
	close(commit)

	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)
	assert.Equal(t, 7, seen)

	require.NoError(t, d.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		event, err := tx.GetEvent(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, event.NumSeatsAvailable)
		return nil
	}))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
