package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"ms-seating/internal/booking"
	"ms-seating/internal/logger"
	"ms-seating/internal/models"
	"ms-seating/internal/store/memory"
	"ms-seating/internal/venue"
)

type SimulationOptions struct {
	Capacity     int
	NumRows      int
	Plan         string
	Customers    int
	MaxSeats     int
	ReserveRatio float64
	HoldExpiry   time.Duration
	Seed         uint64
	Logger       *logger.Logger
}

func defaultSimulation() SimulationOptions {
	return SimulationOptions{
		Capacity:     100,
		NumRows:      10,
		Plan:         string(venue.SeatingPlanEqual),
		Customers:    60,
		MaxSeats:     6,
		ReserveRatio: 0.5,
		HoldExpiry:   5 * time.Minute,
	}
}

type SimulationReport struct {
	Capacity       int
	Holds          int
	Reservations   int
	Expired        int
	SeatsReserved  int
	EventAvailable int
	RowsFree       int
	Rejected       map[string]int
	Rows           []*models.Row
}

// Consistent reports whether the event counter matches the rows and every
// seat not free is accounted for by a reservation.
func (r *SimulationReport) Consistent() bool {
	return r.EventAvailable == r.RowsFree && r.RowsFree+r.SeatsReserved == r.Capacity
}

func (r *SimulationReport) Print(w io.Writer) {
	fmt.Fprintf(w, "holds placed:      %d\n", r.Holds)
	fmt.Fprintf(w, "reservations:      %d (%d seats)\n", r.Reservations, r.SeatsReserved)
	fmt.Fprintf(w, "holds expired:     %d\n", r.Expired)
	reasons := make([]string, 0, len(r.Rejected))
	for reason := range r.Rejected {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(w, "rejected (%s): %d\n", reason, r.Rejected[reason])
	}
	fmt.Fprintf(w, "seats available:   %d of %d (rows report %d)\n", r.EventAvailable, r.Capacity, r.RowsFree)
	for _, row := range r.Rows {
		var b strings.Builder
		for _, seat := range row.Seats {
			if seat.Occupied {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		fmt.Fprintf(w, "row %3d  %s\n", row.ID, b.String())
	}
}

type customerRequest struct {
	email    string
	numSeats int
	reserve  bool
}

// Simulate seeds an in-memory venue, lets every customer try to hold seats
// at the same time, confirms some of the holds, then sweeps the rest away
// once they have expired.
func Simulate(ctx context.Context, opts SimulationOptions) (*SimulationReport, error) {
	plan, err := venue.ParseSeatingPlan(opts.Plan)
	if err != nil {
		return nil, err
	}
	if opts.MaxSeats < 1 {
		return nil, fmt.Errorf("max seats must be at least 1, got %d", opts.MaxSeats)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rnd := rand.New(rand.NewPCG(seed, seed>>1))

	seatStore := memory.New()
	if _, err := venue.Seed(ctx, seatStore, venue.Layout{
		EventName: "Simulation",
		Capacity:  opts.Capacity,
		NumRows:   opts.NumRows,
		Plan:      plan,
		Rand:      rnd,
	}, opts.Logger); err != nil {
		return nil, err
	}

	var clockMu sync.Mutex
	now := time.Now().UTC()
	svc := booking.NewBookingService(seatStore, booking.NewMutexLock(), nil, opts.Logger, opts.HoldExpiry)
	svc.Now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}

	requests := make([]customerRequest, opts.Customers)
	for i := range requests {
		requests[i] = customerRequest{
			email:    fmt.Sprintf("customer%03d@example.com", i+1),
			numSeats: 1 + rnd.IntN(opts.MaxSeats),
			reserve:  rnd.Float64() < opts.ReserveRatio,
		}
	}

	report := &SimulationReport{Capacity: opts.Capacity, Rejected: map[string]int{}}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, req := range requests {
		wg.Add(1)
		go func(req customerRequest) {
			defer wg.Done()
			hold, err := svc.FindAndHoldSeats(ctx, req.numSeats, req.email)
			if err != nil {
				mu.Lock()
				report.Rejected[rejectReason(err)]++
				mu.Unlock()
				return
			}
			mu.Lock()
			report.Holds++
			mu.Unlock()
			if !req.reserve {
				return
			}
			if _, err := svc.ReserveSeats(ctx, hold.ID, req.email); err != nil {
				mu.Lock()
				report.Rejected[rejectReason(err)]++
				mu.Unlock()
			}
		}(req)
	}
	wg.Wait()

	clockMu.Lock()
	now = now.Add(opts.HoldExpiry)
	clockMu.Unlock()

	expired, err := svc.ExpireHolds(ctx)
	if err != nil {
		return nil, err
	}
	report.Expired = len(expired)

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	report.EventAvailable = snap.Event.NumSeatsAvailable
	report.RowsFree = snap.FreeSeats()
	report.Rows = snap.Rows
	report.Reservations = len(snap.Reservations)
	for _, r := range snap.Reservations {
		report.SeatsReserved += r.SeatMap.Count()
	}
	return report, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, booking.ErrInsufficientInventory):
		return "insufficient inventory"
	case errors.Is(err, booking.ErrInvalidRequest):
		return "invalid request"
	case errors.Is(err, booking.ErrDuplicateHold):
		return "duplicate hold"
	case errors.Is(err, booking.ErrDuplicateReservation):
		return "duplicate reservation"
	case errors.Is(err, booking.ErrHoldNotFound):
		return "hold not found"
	default:
		return "error"
	}
}
