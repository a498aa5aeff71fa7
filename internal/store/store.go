// Package store defines the transactional record store the booking service
// runs against: events, rows, seat holds and reservations, mutated only
// inside RunInTx.
package store

import (
	"context"
	"errors"
	"time"

	"ms-seating/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would give a customer a second
	// live hold or reservation for the same event.
	ErrConflict = errors.New("record conflicts with an existing one")
)

type Store interface {
	// RunInTx runs fn in a single transaction. A non-nil error from fn rolls
	// back every write made through tx.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	GetEvent(ctx context.Context) (*models.Event, error)
	InsertEvent(ctx context.Context, event *models.Event) error
	UpdateEvent(ctx context.Context, event *models.Event) error

	// ListRows returns every row ordered by ascending id.
	ListRows(ctx context.Context) ([]*models.Row, error)
	InsertRows(ctx context.Context, rows []*models.Row) error
	UpdateRows(ctx context.Context, rows []*models.Row) error

	// InsertHold assigns hold.ID.
	InsertHold(ctx context.Context, hold *models.SeatHold) error
	GetHold(ctx context.Context, id int64) (*models.SeatHold, error)
	FindHold(ctx context.Context, customerEmail string, eventID int64) (*models.SeatHold, error)
	ListHolds(ctx context.Context) ([]*models.SeatHold, error)
	// ExpiredHolds returns holds with HoldTime <= cutoff, ordered by id.
	ExpiredHolds(ctx context.Context, cutoff time.Time) ([]*models.SeatHold, error)
	DeleteHold(ctx context.Context, id int64) (bool, error)

	InsertReservation(ctx context.Context, reservation *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	FindReservation(ctx context.Context, customerEmail string, eventID int64) (*models.Reservation, error)
	ListReservations(ctx context.Context) ([]*models.Reservation, error)
}
