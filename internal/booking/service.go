// Package booking runs the seat hold lifecycle: holds are placed on free
// seats, confirmed into reservations, or released when they expire.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"ms-seating/internal/logger"
	"ms-seating/internal/models"
	"ms-seating/internal/seating"
	"ms-seating/internal/store"
)

type BookingService struct {
	Store      store.Store
	Lock       HoldLocker
	Publisher  Publisher
	Logger     *logger.Logger
	HoldExpiry time.Duration
	Topic      string

	Now   func() time.Time
	NewID func() string
}

func NewBookingService(s store.Store, lock HoldLocker, publisher Publisher, log *logger.Logger, holdExpiry time.Duration) *BookingService {
	if lock == nil {
		lock = NewMutexLock()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &BookingService{
		Store:      s,
		Lock:       lock,
		Publisher:  publisher,
		Logger:     log,
		HoldExpiry: holdExpiry,
		Topic:      SeatStatusTopic,
		Now:        time.Now,
		NewID:      uuid.NewString,
	}
}

var validate = validator.New()

type holdRequest struct {
	NumSeats      int    `validate:"min=1"`
	CustomerEmail string `validate:"required"`
}

type reserveRequest struct {
	SeatHoldID    int64  `validate:"min=0"`
	CustomerEmail string `validate:"required"`
}

// VenueSnapshot is a consistent view of the whole venue taken in one
// transaction.
type VenueSnapshot struct {
	Event        *models.Event         `json:"event"`
	Rows         []*models.Row         `json:"rows"`
	Holds        []*models.SeatHold    `json:"holds"`
	Reservations []*models.Reservation `json:"reservations"`
}

// FreeSeats sums the rows' free counts. It equals Event.NumSeatsAvailable in
// any committed state.
func (v *VenueSnapshot) FreeSeats() int {
	total := 0
	for _, r := range v.Rows {
		total += r.FreeSeatCount
	}
	return total
}

// ---------------- QUERIES ----------------

func (s *BookingService) AvailableSeatCount(ctx context.Context) (int, error) {
	var available int
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		event, err := tx.GetEvent(ctx)
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		available = event.NumSeatsAvailable
		return nil
	})
	if err != nil {
		return 0, classify(err)
	}
	return available, nil
}

func (s *BookingService) GetHold(ctx context.Context, id int64) (*models.SeatHold, error) {
	var hold *models.SeatHold
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		h, err := tx.GetHold(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrHoldNotFound
		}
		if err != nil {
			return err
		}
		if h.Expired(s.now(), s.HoldExpiry) {
			return ErrHoldNotFound
		}
		hold = h
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return hold, nil
}

func (s *BookingService) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var reservation *models.Reservation
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := tx.GetReservation(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrReservationNotFound
		}
		if err != nil {
			return err
		}
		reservation = r
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return reservation, nil
}

func (s *BookingService) Snapshot(ctx context.Context) (*VenueSnapshot, error) {
	snap := &VenueSnapshot{}
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if snap.Event, err = tx.GetEvent(ctx); err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		if snap.Rows, err = tx.ListRows(ctx); err != nil {
			return fmt.Errorf("load rows: %w", err)
		}
		if snap.Holds, err = tx.ListHolds(ctx); err != nil {
			return fmt.Errorf("load holds: %w", err)
		}
		if snap.Reservations, err = tx.ListReservations(ctx); err != nil {
			return fmt.Errorf("load reservations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return snap, nil
}

// ---------------- HOLDS ----------------

// FindAndHoldSeats places a hold on numSeats seats for the customer. Only one
// call runs at a time venue-wide. A customer's own expired hold that the
// sweeper has not reached yet is released first and does not count as a
// duplicate.
func (s *BookingService) FindAndHoldSeats(ctx context.Context, numSeats int, customerEmail string) (*models.SeatHold, error) {
	email := models.NormalizeEmail(customerEmail)
	if err := validate.Struct(holdRequest{NumSeats: numSeats, CustomerEmail: email}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	release, err := s.Lock.Acquire(ctx)
	if err != nil {
		return nil, classify(fmt.Errorf("acquire hold lock: %w", err))
	}
	// release is idempotent; the defer only matters if fn panics.
	defer release()

	now := s.now()
	var hold, reclaimed *models.SeatHold
	err = s.Store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		hold, reclaimed = nil, nil

		event, err := tx.GetEvent(ctx)
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		rows, err := tx.ListRows(ctx)
		if err != nil {
			return fmt.Errorf("load rows: %w", err)
		}

		existing, err := tx.FindHold(ctx, email, event.ID)
		switch {
		case err == nil && existing.Expired(now, s.HoldExpiry):
			if err := s.releaseHolds(ctx, tx, event, rows, []*models.SeatHold{existing}); err != nil {
				return err
			}
			reclaimed, existing = existing, nil
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
			existing = nil
		default:
			return fmt.Errorf("find hold: %w", err)
		}

		if numSeats > event.NumSeatsAvailable {
			return fmt.Errorf("%w: %d seats requested, %d available: %w",
				ErrInvalidRequest, numSeats, event.NumSeatsAvailable, ErrInsufficientInventory)
		}
		if existing != nil {
			return ErrDuplicateHold
		}
		if _, err := tx.FindReservation(ctx, email, event.ID); err == nil {
			return ErrDuplicateReservation
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("find reservation: %w", err)
		}

		seatMap, touched, err := seating.Select(rows, numSeats)
		if errors.Is(err, seating.ErrInsufficientSeats) {
			return ErrInsufficientInventory
		}
		if err != nil {
			return err
		}

		h := &models.SeatHold{
			EventID:       event.ID,
			SeatMap:       seatMap,
			CustomerEmail: email,
			HoldTime:      now,
		}
		if err := tx.InsertHold(ctx, h); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrDuplicateHold
			}
			return fmt.Errorf("insert hold: %w", err)
		}
		if err := tx.UpdateRows(ctx, touched); err != nil {
			return fmt.Errorf("update rows: %w", err)
		}
		event.SyncAvailability(rows)
		if err := tx.UpdateEvent(ctx, event); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		hold = h
		return nil
	})
	// The lock covers the transaction only, so a slow broker never holds up
	// other customers' holds.
	release()
	if err != nil {
		err = classify(err)
		if s.Logger != nil && IsRetryable(err) {
			s.Logger.Error("HOLD", fmt.Sprintf("Hold of %d seats for %s failed: %v", numSeats, email, err))
		}
		return nil, err
	}

	if reclaimed != nil {
		s.logHold("RELEASE", reclaimed.ID, fmt.Sprintf("expired hold of %s reclaimed before a new hold", reclaimed.CustomerEmail))
		s.publish(models.NewReleasedEvent(reclaimed, now))
	}
	s.logHold("CREATE", hold.ID, fmt.Sprintf("%d seats held for %s in rows %v", numSeats, email, hold.SeatMap.RowIDs()))
	s.publish(models.NewHeldEvent(hold))
	return hold, nil
}

// ---------------- RESERVATIONS ----------------

// ReserveSeats turns a live hold into a reservation and returns the
// reservation id. The hold is looked up by id when it belongs to the
// customer, and by the customer's email otherwise. Seat occupancy is not
// touched: the seats go from held to reserved.
func (s *BookingService) ReserveSeats(ctx context.Context, seatHoldID int64, customerEmail string) (string, error) {
	email := models.NormalizeEmail(customerEmail)
	if err := validate.Struct(reserveRequest{SeatHoldID: seatHoldID, CustomerEmail: email}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	now := s.now()
	var reservation *models.Reservation
	var holdID int64
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		reservation = nil

		event, err := tx.GetEvent(ctx)
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}

		hold, err := s.lookupHold(ctx, tx, seatHoldID, email, event.ID)
		if err != nil {
			return err
		}
		if hold.Expired(now, s.HoldExpiry) {
			return ErrHoldNotFound
		}

		deleted, err := tx.DeleteHold(ctx, hold.ID)
		if err != nil {
			return fmt.Errorf("delete hold: %w", err)
		}
		if !deleted {
			return ErrHoldNotFound
		}

		r := &models.Reservation{
			ID:            s.NewID(),
			EventID:       hold.EventID,
			SeatMap:       hold.SeatMap,
			CustomerEmail: hold.CustomerEmail,
			ReservedAt:    now,
		}
		if err := tx.InsertReservation(ctx, r); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrDuplicateReservation
			}
			return fmt.Errorf("insert reservation: %w", err)
		}
		reservation = r
		holdID = hold.ID
		return nil
	})
	if err != nil {
		return "", classify(err)
	}

	s.logHold("RESERVE", holdID, fmt.Sprintf("confirmed as reservation %s for %s", reservation.ID, email))
	s.publish(models.NewReservedEvent(holdID, reservation))
	return reservation.ID, nil
}

func (s *BookingService) lookupHold(ctx context.Context, tx store.Tx, seatHoldID int64, email string, eventID int64) (*models.SeatHold, error) {
	if seatHoldID > 0 {
		hold, err := tx.GetHold(ctx, seatHoldID)
		switch {
		case err == nil && hold.CustomerEmail == email:
			return hold, nil
		case err == nil, errors.Is(err, store.ErrNotFound):
		default:
			return nil, fmt.Errorf("get hold: %w", err)
		}
	}

	hold, err := tx.FindHold(ctx, email, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find hold: %w", err)
	}
	return hold, nil
}

// ---------------- EXPIRY ----------------

// ExpireHolds releases every hold older than the hold expiry in a single
// transaction and returns the holds it removed.
func (s *BookingService) ExpireHolds(ctx context.Context) ([]*models.SeatHold, error) {
	now := s.now()
	var expired []*models.SeatHold
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		expired = nil

		event, err := tx.GetEvent(ctx)
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		holds, err := tx.ExpiredHolds(ctx, now.Add(-s.HoldExpiry))
		if err != nil {
			return fmt.Errorf("scan expired holds: %w", err)
		}
		if len(holds) == 0 {
			return nil
		}
		rows, err := tx.ListRows(ctx)
		if err != nil {
			return fmt.Errorf("load rows: %w", err)
		}
		if err := s.releaseHolds(ctx, tx, event, rows, holds); err != nil {
			return err
		}
		expired = holds
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	for _, h := range expired {
		s.logHold("EXPIRE", h.ID, fmt.Sprintf("%d seats of %s released", h.SeatMap.Count(), h.CustomerEmail))
		s.publish(models.NewReleasedEvent(h, now))
	}
	return expired, nil
}

// releaseHolds deletes holds and frees their seats inside tx, then brings the
// event counter back in line with rows.
func (s *BookingService) releaseHolds(ctx context.Context, tx store.Tx, event *models.Event, rows []*models.Row, holds []*models.SeatHold) error {
	byID := make(map[int]*models.Row, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	touched := map[int]*models.Row{}
	for _, h := range holds {
		deleted, err := tx.DeleteHold(ctx, h.ID)
		if err != nil {
			return fmt.Errorf("delete hold %d: %w", h.ID, err)
		}
		if !deleted {
			continue
		}
		for rowID, seatIDs := range h.SeatMap {
			row, ok := byID[rowID]
			if !ok {
				return fmt.Errorf("hold %d references unknown row %d", h.ID, rowID)
			}
			row.Release(seatIDs)
			touched[rowID] = row
		}
	}
	if len(touched) == 0 {
		return nil
	}

	changed := make([]*models.Row, 0, len(touched))
	for _, r := range touched {
		changed = append(changed, r)
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].ID < changed[j].ID })
	if err := tx.UpdateRows(ctx, changed); err != nil {
		return fmt.Errorf("update rows: %w", err)
	}

	event.SyncAvailability(rows)
	if err := tx.UpdateEvent(ctx, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// ---------------- HELPERS ----------------

func (s *BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *BookingService) publish(event models.SeatStatusEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logWarn(fmt.Sprintf("Failed to encode %s event: %v", event.Status, err))
		return
	}
	topic := s.Topic
	if topic == "" {
		topic = SeatStatusTopic
	}
	if err := s.Publisher.Publish(topic, strconv.FormatInt(event.EventID, 10), payload); err != nil {
		s.logWarn(fmt.Sprintf("Failed to publish %s event for hold %d: %v", event.Status, event.HoldID, err))
	}
}

func (s *BookingService) logHold(action string, holdID int64, message string) {
	if s.Logger != nil {
		s.Logger.LogHold(action, holdID, message)
	}
}

func (s *BookingService) logWarn(message string) {
	if s.Logger != nil {
		s.Logger.Warn("EVENTS", message)
	}
}
