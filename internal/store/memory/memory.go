// Package memory is an in-process implementation of store.Store.
//
// Transactions are serialized by a store-wide mutex. Writes go to a
// per-transaction overlay of cloned records and become visible together on
// commit, so no reader ever observes a half-applied operation. Holds and
// reservations carry a secondary index keyed by (customer email, event id).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ms-seating/internal/models"
	"ms-seating/internal/store"
)

type customerKey struct {
	email   string
	eventID int64
}

type Store struct {
	mu sync.Mutex

	events       map[int64]*models.Event
	rows         map[int]*models.Row
	holds        map[int64]*models.SeatHold
	reservations map[string]*models.Reservation

	holdsByCustomer        map[customerKey]int64
	reservationsByCustomer map[customerKey]string

	lastEventID int64
	lastHoldID  int64
}

func New() *Store {
	return &Store{
		events:                 map[int64]*models.Event{},
		rows:                   map[int]*models.Row{},
		holds:                  map[int64]*models.SeatHold{},
		reservations:           map[string]*models.Reservation{},
		holdsByCustomer:        map[customerKey]int64{},
		reservationsByCustomer: map[customerKey]string{},
	}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &memTx{
		s:            s,
		events:       map[int64]*models.Event{},
		rows:         map[int]*models.Row{},
		holds:        map[int64]*models.SeatHold{},
		reservations: map[string]*models.Reservation{},
		lastEventID:  s.lastEventID,
		lastHoldID:   s.lastHoldID,
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	t.commit()
	return nil
}

// memTx holds the uncommitted writes of one transaction. A nil entry in
// holds marks a deletion.
type memTx struct {
	s *Store

	events       map[int64]*models.Event
	rows         map[int]*models.Row
	holds        map[int64]*models.SeatHold
	reservations map[string]*models.Reservation

	lastEventID int64
	lastHoldID  int64
}

func (t *memTx) commit() {
	s := t.s
	for id, e := range t.events {
		s.events[id] = e
	}
	for id, r := range t.rows {
		s.rows[id] = r
	}
	for id, h := range t.holds {
		if h == nil {
			if old, ok := s.holds[id]; ok {
				// the same customer may have been given a new hold in this tx
				key := customerKey{old.CustomerEmail, old.EventID}
				if s.holdsByCustomer[key] == id {
					delete(s.holdsByCustomer, key)
				}
				delete(s.holds, id)
			}
			continue
		}
		s.holds[id] = h
		s.holdsByCustomer[customerKey{h.CustomerEmail, h.EventID}] = id
	}
	for id, r := range t.reservations {
		s.reservations[id] = r
		s.reservationsByCustomer[customerKey{r.CustomerEmail, r.EventID}] = id
	}
	s.lastEventID = t.lastEventID
	s.lastHoldID = t.lastHoldID
}

// ---------------- EVENTS ----------------

func (t *memTx) GetEvent(ctx context.Context) (*models.Event, error) {
	var found *models.Event
	consider := func(e *models.Event) {
		if found == nil || e.ID < found.ID {
			found = e
		}
	}
	for _, e := range t.s.events {
		if _, shadowed := t.events[e.ID]; !shadowed {
			consider(e)
		}
	}
	for _, e := range t.events {
		consider(e)
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	c := *found
	return &c, nil
}

func (t *memTx) InsertEvent(ctx context.Context, event *models.Event) error {
	if event.ID == 0 {
		t.lastEventID++
		event.ID = t.lastEventID
	} else if event.ID > t.lastEventID {
		t.lastEventID = event.ID
	}
	if _, ok := t.lookupEvent(event.ID); ok {
		return fmt.Errorf("event %d: %w", event.ID, store.ErrConflict)
	}
	c := *event
	t.events[event.ID] = &c
	return nil
}

func (t *memTx) UpdateEvent(ctx context.Context, event *models.Event) error {
	if _, ok := t.lookupEvent(event.ID); !ok {
		return fmt.Errorf("event %d: %w", event.ID, store.ErrNotFound)
	}
	c := *event
	t.events[event.ID] = &c
	return nil
}

func (t *memTx) lookupEvent(id int64) (*models.Event, bool) {
	if e, ok := t.events[id]; ok {
		return e, true
	}
	e, ok := t.s.events[id]
	return e, ok
}

// ---------------- ROWS ----------------

func (t *memTx) ListRows(ctx context.Context) ([]*models.Row, error) {
	merged := make(map[int]*models.Row, len(t.s.rows))
	for id, r := range t.s.rows {
		merged[id] = r
	}
	for id, r := range t.rows {
		merged[id] = r
	}

	out := make([]*models.Row, 0, len(merged))
	for _, r := range merged {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) InsertRows(ctx context.Context, rows []*models.Row) error {
	for _, r := range rows {
		if _, ok := t.lookupRow(r.ID); ok {
			return fmt.Errorf("row %d: %w", r.ID, store.ErrConflict)
		}
		t.rows[r.ID] = r.Clone()
	}
	return nil
}

func (t *memTx) UpdateRows(ctx context.Context, rows []*models.Row) error {
	for _, r := range rows {
		if _, ok := t.lookupRow(r.ID); !ok {
			return fmt.Errorf("row %d: %w", r.ID, store.ErrNotFound)
		}
		t.rows[r.ID] = r.Clone()
	}
	return nil
}

func (t *memTx) lookupRow(id int) (*models.Row, bool) {
	if r, ok := t.rows[id]; ok {
		return r, true
	}
	r, ok := t.s.rows[id]
	return r, ok
}

// ---------------- HOLDS ----------------

func (t *memTx) InsertHold(ctx context.Context, hold *models.SeatHold) error {
	hold.CustomerEmail = models.NormalizeEmail(hold.CustomerEmail)
	if _, err := t.FindHold(ctx, hold.CustomerEmail, hold.EventID); err == nil {
		return fmt.Errorf("hold for %s: %w", hold.CustomerEmail, store.ErrConflict)
	}
	t.lastHoldID++
	hold.ID = t.lastHoldID
	t.holds[hold.ID] = hold.Clone()
	return nil
}

func (t *memTx) GetHold(ctx context.Context, id int64) (*models.SeatHold, error) {
	h, ok := t.lookupHold(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return h.Clone(), nil
}

func (t *memTx) FindHold(ctx context.Context, customerEmail string, eventID int64) (*models.SeatHold, error) {
	key := customerKey{models.NormalizeEmail(customerEmail), eventID}
	for _, h := range t.holds {
		if h != nil && h.CustomerEmail == key.email && h.EventID == key.eventID {
			return h.Clone(), nil
		}
	}
	if id, ok := t.s.holdsByCustomer[key]; ok {
		if h, ok := t.lookupHold(id); ok {
			return h.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) ListHolds(ctx context.Context) ([]*models.SeatHold, error) {
	out := make([]*models.SeatHold, 0, len(t.s.holds)+len(t.holds))
	for id, h := range t.s.holds {
		if _, shadowed := t.holds[id]; !shadowed {
			out = append(out, h.Clone())
		}
	}
	for _, h := range t.holds {
		if h != nil {
			out = append(out, h.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) ExpiredHolds(ctx context.Context, cutoff time.Time) ([]*models.SeatHold, error) {
	all, err := t.ListHolds(ctx)
	if err != nil {
		return nil, err
	}
	expired := all[:0]
	for _, h := range all {
		if !h.HoldTime.After(cutoff) {
			expired = append(expired, h)
		}
	}
	return expired, nil
}

func (t *memTx) DeleteHold(ctx context.Context, id int64) (bool, error) {
	if _, ok := t.lookupHold(id); !ok {
		return false, nil
	}
	t.holds[id] = nil
	return true, nil
}

func (t *memTx) lookupHold(id int64) (*models.SeatHold, bool) {
	if h, ok := t.holds[id]; ok {
		return h, h != nil
	}
	h, ok := t.s.holds[id]
	return h, ok
}

// ---------------- RESERVATIONS ----------------

func (t *memTx) InsertReservation(ctx context.Context, reservation *models.Reservation) error {
	if reservation.ID == "" {
		return fmt.Errorf("reservation without id")
	}
	reservation.CustomerEmail = models.NormalizeEmail(reservation.CustomerEmail)
	if _, ok := t.lookupReservation(reservation.ID); ok {
		return fmt.Errorf("reservation %s: %w", reservation.ID, store.ErrConflict)
	}
	if _, err := t.FindReservation(ctx, reservation.CustomerEmail, reservation.EventID); err == nil {
		return fmt.Errorf("reservation for %s: %w", reservation.CustomerEmail, store.ErrConflict)
	}
	t.reservations[reservation.ID] = reservation.Clone()
	return nil
}

func (t *memTx) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	r, ok := t.lookupReservation(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.Clone(), nil
}

func (t *memTx) FindReservation(ctx context.Context, customerEmail string, eventID int64) (*models.Reservation, error) {
	key := customerKey{models.NormalizeEmail(customerEmail), eventID}
	for _, r := range t.reservations {
		if r.CustomerEmail == key.email && r.EventID == key.eventID {
			return r.Clone(), nil
		}
	}
	if id, ok := t.s.reservationsByCustomer[key]; ok {
		return t.s.reservations[id].Clone(), nil
	}
	return nil, store.ErrNotFound
}

func (t *memTx) ListReservations(ctx context.Context) ([]*models.Reservation, error) {
	merged := make(map[string]*models.Reservation, len(t.s.reservations)+len(t.reservations))
	for id, r := range t.s.reservations {
		merged[id] = r
	}
	for id, r := range t.reservations {
		merged[id] = r
	}
	out := make([]*models.Reservation, 0, len(merged))
	for _, r := range merged {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) lookupReservation(id string) (*models.Reservation, bool) {
	if r, ok := t.reservations[id]; ok {
		return r, true
	}
	r, ok := t.s.reservations[id]
	return r, ok
}
