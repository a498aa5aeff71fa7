// Package storetest holds the behaviour every store.Store implementation
// must share. Implementations call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-seating/internal/models"
	"ms-seating/internal/store"
)

// Run exercises a fresh, empty store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	tests := map[string]func(t *testing.T, s store.Store){
		"EventAndRows":         testEventAndRows,
		"RollbackDiscards":     testRollbackDiscards,
		"HoldLifecycle":        testHoldLifecycle,
		"OneHoldPerCustomer":   testOneHoldPerCustomer,
		"ReplaceHoldInOneTx":   testReplaceHoldInOneTx,
		"ExpiredHolds":         testExpiredHolds,
		"ReservationLifecycle": testReservationLifecycle,
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			fn(t, newStore(t))
		})
	}
}

var heldAt = time.Date(2026, 5, 1, 19, 30, 0, 0, time.UTC)

func seed(t *testing.T, s store.Store) *models.Event {
	t.Helper()
	event := &models.Event{Name: "Store Night", NumSeatsAvailable: 6}
	err := s.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertEvent(ctx, event); err != nil {
			return err
		}
		return tx.InsertRows(ctx, []*models.Row{models.NewRow(2, 4, 3), models.NewRow(1, 1, 3)})
	})
	require.NoError(t, err)
	require.NotZero(t, event.ID)
	return event
}

func inTx(t *testing.T, s store.Store, fn func(ctx context.Context, tx store.Tx)) {
	t.Helper()
	require.NoError(t, s.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		fn(ctx, tx)
		return nil
	}))
}

func testEventAndRows(t *testing.T, s store.Store) {
	event := seed(t, s)

	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		got, err := tx.GetEvent(ctx)
		require.NoError(t, err)
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, "Store Night", got.Name)

		rows, err := tx.ListRows(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 1, rows[0].ID)
		assert.Equal(t, 2, rows[1].ID)

		rows[0].Occupy([]int{1, 2})
		require.NoError(t, tx.UpdateRows(ctx, rows[:1]))
		got.SyncAvailability(rows)
		require.NoError(t, tx.UpdateEvent(ctx, got))
	})

	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		got, err := tx.GetEvent(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, got.NumSeatsAvailable)

		rows, err := tx.ListRows(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, rows[0].FreeSeatCount)
		assert.Equal(t, []int{3}, rows[0].FreeSeatIDs())

		err = tx.UpdateRows(ctx, []*models.Row{models.NewRow(9, 100, 1)})
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})
}

func testRollbackDiscards(t *testing.T, s store.Store) {
	event := seed(t, s)
	boom := errors.New("boom")

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		rows, err := tx.ListRows(ctx)
		if err != nil {
			return err
		}
		rows[1].Occupy([]int{4, 5, 6})
		if err := tx.UpdateRows(ctx, rows); err != nil {
			return err
		}
		hold := &models.SeatHold{EventID: event.ID, SeatMap: models.SeatMap{2: {4, 5, 6}}, CustomerEmail: "ann@example.com", HoldTime: heldAt}
		if err := tx.InsertHold(ctx, hold); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		rows, err := tx.ListRows(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, rows[1].FreeSeatCount)

		_, err = tx.FindHold(ctx, "ann@example.com", event.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func testHoldLifecycle(t *testing.T, s store.Store) {
	event := seed(t, s)
	hold := &models.SeatHold{EventID: event.ID, SeatMap: models.SeatMap{1: {1, 2}}, CustomerEmail: " Ann@Example.com", HoldTime: heldAt}

	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		require.NoError(t, tx.InsertHold(ctx, hold))
	})
	require.NotZero(t, hold.ID)
	assert.Equal(t, "ann@example.com", hold.CustomerEmail)

	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		got, err := tx.GetHold(ctx, hold.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SeatMap{1: {1, 2}}, got.SeatMap)
		assert.True(t, heldAt.Equal(got.HoldTime))

		byEmail, err := tx.FindHold(ctx, "ANN@example.com", event.ID)
		require.NoError(t, err)
		assert.Equal(t, hold.ID, byEmail.ID)

		_, err = tx.GetHold(ctx, hold.ID+100)
		assert.ErrorIs(t, err, store.ErrNotFound)

		deleted, err := tx.DeleteHold(ctx, hold.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = tx.DeleteHold(ctx, hold.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		holds, err := tx.ListHolds(ctx)
		require.NoError(t, err)
		assert.Empty(t, holds)
	})
}

func testOneHoldPerCustomer(t *testing.T, s store.Store) {
	event := seed(t, s)
	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		require.NoError(t, tx.InsertHold(ctx, &models.SeatHold{EventID: event.ID, SeatMap: models.SeatMap{1: {1}}, CustomerEmail: "bo@example.com", HoldTime: heldAt}))
	})

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertHold(ctx, &models.SeatHold{EventID: event.ID, SeatMap: models.SeatMap{1: {2}}, CustomerEmail: "BO@example.com", HoldTime: heldAt})
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func testReplaceHoldInOneTx(t *testing.T, s store.Store) {
	event := seed(t, s)
	old := &models.SeatHold{EventID: event.ID, SeatMap: models.SeatMap{1: {1}}, CustomerEmail: "cy@example.com", HoldTime: heldAt}
	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		require.NoError(t, tx.InsertHold(ctx, old))
	})

	replacement := &models.SeatHold{EventID: event.ID, SeatMap: models.SeatMap{2: {4, 5}}, CustomerEmail: "cy@example.com", HoldTime: heldAt.Add(time.Hour)}
	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		deleted, err := tx.DeleteHold(ctx, old.ID)
		require.NoError(t, err)
		require.True(t, deleted)
		require.NoError(t, tx.InsertHold(ctx, replacement))
	})
	assert.NotEqual(t, old.ID, replacement.ID)

	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		got, err := tx.FindHold(ctx, "cy@example.com", event.ID)
		require.NoError(t, err)
		assert.Equal(t, replacement.ID, got.ID)

		_, err = tx.GetHold(ctx, old.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func testExpiredHolds(t *testing.T, s store.Store) {
	event := seed(t, s)
	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
			hold := &models.SeatHold{
				EventID:       event.ID,
				SeatMap:       models.SeatMap{1: {i + 1}},
				CustomerEmail: email,
				HoldTime:      heldAt.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, tx.InsertHold(ctx, hold))
		}
	})

	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		expired, err := tx.ExpiredHolds(ctx, heldAt.Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, expired, 2)
		assert.Equal(t, "a@example.com", expired[0].CustomerEmail)
		assert.Equal(t, "b@example.com", expired[1].CustomerEmail)
		assert.Less(t, expired[0].ID, expired[1].ID)
	})
}

func testReservationLifecycle(t *testing.T, s store.Store) {
	event := seed(t, s)
	r := &models.Reservation{ID: "res-1", EventID: event.ID, SeatMap: models.SeatMap{2: {4, 5}}, CustomerEmail: "Dee@example.com", ReservedAt: heldAt}

	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		require.NoError(t, tx.InsertReservation(ctx, r))
	})

	inTx(t, s, func(ctx context.Context, tx store.Tx) {
		got, err := tx.GetReservation(ctx, "res-1")
		require.NoError(t, err)
		assert.Equal(t, "dee@example.com", got.CustomerEmail)
		assert.Equal(t, models.SeatMap{2: {4, 5}}, got.SeatMap)

		byEmail, err := tx.FindReservation(ctx, "DEE@example.com", event.ID)
		require.NoError(t, err)
		assert.Equal(t, "res-1", byEmail.ID)

		all, err := tx.ListReservations(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		_, err = tx.GetReservation(ctx, "res-2")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertReservation(ctx, &models.Reservation{ID: "res-2", EventID: event.ID, SeatMap: models.SeatMap{1: {1}}, CustomerEmail: "dee@example.com", ReservedAt: heldAt})
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}
