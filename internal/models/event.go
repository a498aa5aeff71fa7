package models

import (
	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID                int64  `bun:"id,pk,autoincrement" json:"id"`
	Name              string `bun:"name,notnull" json:"name"`
	NumSeatsAvailable int    `bun:"num_seats_available,notnull" json:"num_seats_available"`
}

// SyncAvailability recomputes NumSeatsAvailable from the rows' free counts.
// Every operation that changes seat occupancy goes through here so the event
// counter and the row counters cannot drift apart.
func (e *Event) SyncAvailability(rows []*Row) {
	total := 0
	for _, r := range rows {
		total += r.FreeSeatCount
	}
	e.NumSeatsAvailable = total
}
