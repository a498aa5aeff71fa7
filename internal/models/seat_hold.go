package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SeatHold struct {
	bun.BaseModel `bun:"table:seat_holds"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	EventID       int64     `bun:"event_id,notnull,unique:seat_holds_customer_event" json:"event_id"`
	SeatMap       SeatMap   `bun:"seat_map,notnull" json:"seat_map"`
	CustomerEmail string    `bun:"customer_email,notnull,unique:seat_holds_customer_event" json:"customer_email"`
	HoldTime      time.Time `bun:"hold_time,notnull" json:"hold_time"`
}

func (h *SeatHold) ExpiresAt(ttl time.Duration) time.Time {
	return h.HoldTime.Add(ttl)
}

// Expired reports whether HoldTime + ttl <= now.
func (h *SeatHold) Expired(now time.Time, ttl time.Duration) bool {
	return !h.ExpiresAt(ttl).After(now)
}

func (h *SeatHold) Clone() *SeatHold {
	c := *h
	c.SeatMap = h.SeatMap.Clone()
	return &c
}
