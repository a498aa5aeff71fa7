package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRowOccupyAndRelease(t *testing.T) {
	row := NewRow(2, 6, 5)
	assert.Equal(t, []int{6, 7, 8, 9, 10}, row.FreeSeatIDs())

	assert.Equal(t, 2, row.Occupy([]int{7, 8}))
	assert.Equal(t, 3, row.FreeSeatCount)
	assert.Equal(t, []int{6, 9, 10}, row.FreeSeatIDs())

	// already occupied and foreign seat ids do not change anything
	assert.Equal(t, 0, row.Occupy([]int{7, 42}))
	assert.Equal(t, 3, row.FreeSeatCount)

	assert.Equal(t, 1, row.Release([]int{8, 9}))
	assert.Equal(t, 4, row.FreeSeatCount)
	assert.Equal(t, []int{6, 8, 9, 10}, row.FreeSeatIDs())
}

func TestRowCloneDoesNotAlias(t *testing.T) {
	row := NewRow(1, 1, 3)
	c := row.Clone()
	c.Occupy([]int{1})

	assert.False(t, row.Seats[0].Occupied)
	assert.Equal(t, 3, row.FreeSeatCount)
	assert.NotNil(t, (&Row{}).Clone().Seats)
}

func TestEventSyncAvailability(t *testing.T) {
	rows := []*Row{NewRow(1, 1, 4), NewRow(2, 5, 4)}
	rows[1].Occupy([]int{5, 6, 7})

	e := &Event{NumSeatsAvailable: 99}
	e.SyncAvailability(rows)
	assert.Equal(t, 5, e.NumSeatsAvailable)
}

func TestSeatMapHelpers(t *testing.T) {
	m := SeatMap{3: {9, 10}, 1: {1, 2, 3}}

	assert.Equal(t, 5, m.Count())
	assert.Equal(t, []int{1, 3}, m.RowIDs())
	assert.Equal(t, []int{1, 2, 3, 9, 10}, m.SeatIDs())

	c := m.Clone()
	c[1][0] = 99
	assert.Equal(t, 1, m[1][0])
	assert.Zero(t, SeatMap(nil).Count())
}

func TestHoldExpiryBoundary(t *testing.T) {
	held := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	h := &SeatHold{ID: 1, HoldTime: held, SeatMap: SeatMap{1: {1}}}

	assert.False(t, h.Expired(held.Add(5*time.Minute-time.Nanosecond), 5*time.Minute))
	assert.True(t, h.Expired(held.Add(5*time.Minute), 5*time.Minute))
	assert.Equal(t, held.Add(5*time.Minute), h.ExpiresAt(5*time.Minute))
}

func TestStatusEvents(t *testing.T) {
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	h := &SeatHold{ID: 4, EventID: 1, CustomerEmail: "a@example.com", HoldTime: at, SeatMap: SeatMap{2: {5, 6}}}

	held := NewHeldEvent(h)
	assert.Equal(t, SeatStatusHeld, held.Status)
	assert.Equal(t, 2, held.SeatCount)
	assert.Equal(t, at, held.OccurredAt)

	r := &Reservation{ID: "r-1", EventID: 1, CustomerEmail: h.CustomerEmail, SeatMap: h.SeatMap, ReservedAt: at.Add(time.Minute)}
	reserved := NewReservedEvent(h.ID, r)
	assert.Equal(t, SeatStatusReserved, reserved.Status)
	assert.Equal(t, int64(4), reserved.HoldID)
	assert.Equal(t, "r-1", reserved.ReservationID)

	released := NewReleasedEvent(h, at.Add(5*time.Minute))
	assert.Equal(t, SeatStatusReleased, released.Status)
	assert.Equal(t, at.Add(5*time.Minute), released.OccurredAt)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}
