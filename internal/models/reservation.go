package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID            string    `bun:"id,pk" json:"id"`
	EventID       int64     `bun:"event_id,notnull,unique:reservations_customer_event" json:"event_id"`
	SeatMap       SeatMap   `bun:"seat_map,notnull" json:"seat_map"`
	CustomerEmail string    `bun:"customer_email,notnull,unique:reservations_customer_event" json:"customer_email"`
	ReservedAt    time.Time `bun:"reserved_at,notnull" json:"reserved_at"`
}

func (r *Reservation) Clone() *Reservation {
	c := *r
	c.SeatMap = r.SeatMap.Clone()
	return &c
}
