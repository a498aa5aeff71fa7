package models

import (
	"github.com/uptrace/bun"
)

type Row struct {
	bun.BaseModel `bun:"table:venue_rows"`

	ID            int    `bun:"id,pk" json:"id"`
	Seats         []Seat `bun:"seats,notnull" json:"seats"`
	FreeSeatCount int    `bun:"free_seat_count,notnull" json:"free_seat_count"`
}

// NewRow builds a row of unoccupied seats numbered firstSeatID, firstSeatID+1, ...
func NewRow(id, firstSeatID, size int) *Row {
	seats := make([]Seat, size)
	for i := range seats {
		seats[i] = Seat{ID: firstSeatID + i}
	}
	return &Row{ID: id, Seats: seats, FreeSeatCount: size}
}

// FreeSeatIDs returns the ids of unoccupied seats in seat order.
func (r *Row) FreeSeatIDs() []int {
	ids := make([]int, 0, r.FreeSeatCount)
	for _, s := range r.Seats {
		if !s.Occupied {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Occupy marks the given seats occupied and returns how many changed state.
func (r *Row) Occupy(seatIDs []int) int {
	return r.setOccupied(seatIDs, true)
}

// Release marks the given seats unoccupied and returns how many changed state.
func (r *Row) Release(seatIDs []int) int {
	return r.setOccupied(seatIDs, false)
}

func (r *Row) setOccupied(seatIDs []int, occupied bool) int {
	wanted := make(map[int]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		wanted[id] = struct{}{}
	}

	changed := 0
	for i := range r.Seats {
		if _, ok := wanted[r.Seats[i].ID]; !ok {
			continue
		}
		if r.Seats[i].Occupied != occupied {
			r.Seats[i].Occupied = occupied
			changed++
		}
	}
	r.recount()
	return changed
}

func (r *Row) recount() {
	free := 0
	for _, s := range r.Seats {
		if !s.Occupied {
			free++
		}
	}
	r.FreeSeatCount = free
}

// Clone returns a deep copy so callers can mutate seats without aliasing.
func (r *Row) Clone() *Row {
	c := *r
	c.Seats = make([]Seat, len(r.Seats))
	copy(c.Seats, r.Seats)
	return &c
}
