package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-seating/internal/models"
	"ms-seating/internal/store"
)

// DB is the bun-backed seat store. It runs on PostgreSQL in production and
// on SQLite for local runs and tests.
type DB struct {
	Bun       *bun.DB
	TxOptions *sql.TxOptions

	// lockEvent makes every transaction take a row lock on the event first,
	// which serializes all seat mutations on PostgreSQL.
	lockEvent bool
}

// New picks READ COMMITTED on PostgreSQL. Every mutating transaction starts
// by locking the event row, so statements after the lock already see the
// previous writer's commit; under REPEATABLE READ the same lock wait would
// end in a serialization failure instead.
func New(bunDB *bun.DB) *DB {
	d := &DB{Bun: bunDB}
	if bunDB.Dialect().Name() == dialect.PG {
		d.TxOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}
		d.lockEvent = true
	}
	return d
}

func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return d.Bun.RunInTx(ctx, d.TxOptions, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &dbTx{tx: tx, lockEvent: d.lockEvent})
	})
}

type dbTx struct {
	tx        bun.Tx
	lockEvent bool
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// ---------------- EVENTS ----------------

// GetEvent → the single managed event (lowest id)
func (t *dbTx) GetEvent(ctx context.Context) (*models.Event, error) {
	var event models.Event
	q := t.tx.NewSelect().
		Model(&event).
		OrderExpr("id ASC").
		Limit(1)
	if t.lockEvent {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

func (t *dbTx) InsertEvent(ctx context.Context, event *models.Event) error {
	_, err := t.tx.NewInsert().Model(event).Exec(ctx)
	return err
}

func (t *dbTx) UpdateEvent(ctx context.Context, event *models.Event) error {
	res, err := t.tx.NewUpdate().
		Model(event).
		Column("name", "num_seats_available").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, fmt.Sprintf("event %d", event.ID))
}

// ---------------- ROWS ----------------

func (t *dbTx) ListRows(ctx context.Context) ([]*models.Row, error) {
	var rows []*models.Row
	err := t.tx.NewSelect().
		Model(&rows).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *dbTx) InsertRows(ctx context.Context, rows []*models.Row) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := t.tx.NewInsert().Model(&rows).Exec(ctx)
	return err
}

func (t *dbTx) UpdateRows(ctx context.Context, rows []*models.Row) error {
	for _, row := range rows {
		res, err := t.tx.NewUpdate().
			Model(row).
			Column("seats", "free_seat_count").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update row %d: %w", row.ID, err)
		}
		if err := requireAffected(res, fmt.Sprintf("row %d", row.ID)); err != nil {
			return err
		}
	}
	return nil
}

// ---------------- HOLDS ----------------

// InsertHold → insert a hold; the (customer_email, event_id) unique
// constraint backs up the explicit conflict check.
func (t *dbTx) InsertHold(ctx context.Context, hold *models.SeatHold) error {
	hold.CustomerEmail = models.NormalizeEmail(hold.CustomerEmail)
	if _, err := t.FindHold(ctx, hold.CustomerEmail, hold.EventID); err == nil {
		return fmt.Errorf("hold for %s: %w", hold.CustomerEmail, store.ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err := t.tx.NewInsert().Model(hold).Exec(ctx)
	return err
}

func (t *dbTx) GetHold(ctx context.Context, id int64) (*models.SeatHold, error) {
	var hold models.SeatHold
	err := t.tx.NewSelect().
		Model(&hold).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &hold, nil
}

// FindHold → the live hold of a customer for an event
func (t *dbTx) FindHold(ctx context.Context, customerEmail string, eventID int64) (*models.SeatHold, error) {
	var hold models.SeatHold
	err := t.tx.NewSelect().
		Model(&hold).
		Where("customer_email = ?", models.NormalizeEmail(customerEmail)).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &hold, nil
}

func (t *dbTx) ListHolds(ctx context.Context) ([]*models.SeatHold, error) {
	var holds []*models.SeatHold
	err := t.tx.NewSelect().
		Model(&holds).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return holds, nil
}

// ExpiredHolds filters in Go: SQLite stores timestamps as text, so a
// hold_time comparison in SQL is not reliable across both dialects.
func (t *dbTx) ExpiredHolds(ctx context.Context, cutoff time.Time) ([]*models.SeatHold, error) {
	holds, err := t.ListHolds(ctx)
	if err != nil {
		return nil, err
	}
	expired := make([]*models.SeatHold, 0, len(holds))
	for _, h := range holds {
		if !h.HoldTime.After(cutoff) {
			expired = append(expired, h)
		}
	}
	return expired, nil
}

func (t *dbTx) DeleteHold(ctx context.Context, id int64) (bool, error) {
	res, err := t.tx.NewDelete().
		Model((*models.SeatHold)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ---------------- RESERVATIONS ----------------

func (t *dbTx) InsertReservation(ctx context.Context, reservation *models.Reservation) error {
	reservation.CustomerEmail = models.NormalizeEmail(reservation.CustomerEmail)
	if _, err := t.FindReservation(ctx, reservation.CustomerEmail, reservation.EventID); err == nil {
		return fmt.Errorf("reservation for %s: %w", reservation.CustomerEmail, store.ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err := t.tx.NewInsert().Model(reservation).Exec(ctx)
	return err
}

func (t *dbTx) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := t.tx.NewSelect().
		Model(&reservation).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &reservation, nil
}

func (t *dbTx) FindReservation(ctx context.Context, customerEmail string, eventID int64) (*models.Reservation, error) {
	var reservation models.Reservation
	err := t.tx.NewSelect().
		Model(&reservation).
		Where("customer_email = ?", models.NormalizeEmail(customerEmail)).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &reservation, nil
}

func (t *dbTx) ListReservations(ctx context.Context) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := t.tx.NewSelect().
		Model(&reservations).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}
