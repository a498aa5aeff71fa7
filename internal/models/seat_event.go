package models

import (
	"time"
)

type SeatStatus string

const (
	SeatStatusHeld     SeatStatus = "HELD"
	SeatStatusReserved SeatStatus = "RESERVED"
	SeatStatusReleased SeatStatus = "RELEASED"
)

// SeatStatusEvent is published whenever seats change hands: a hold is
// placed, confirmed into a reservation, or released by expiry.
type SeatStatusEvent struct {
	EventID       int64      `json:"event_id"`
	Status        SeatStatus `json:"status"`
	HoldID        int64      `json:"hold_id,omitempty"`
	ReservationID string     `json:"reservation_id,omitempty"`
	CustomerEmail string     `json:"customer_email"`
	SeatMap       SeatMap    `json:"seat_map"`
	SeatCount     int        `json:"seat_count"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

func NewHeldEvent(h *SeatHold) SeatStatusEvent {
	return SeatStatusEvent{
		EventID:       h.EventID,
		Status:        SeatStatusHeld,
		HoldID:        h.ID,
		CustomerEmail: h.CustomerEmail,
		SeatMap:       h.SeatMap,
		SeatCount:     h.SeatMap.Count(),
		OccurredAt:    h.HoldTime,
	}
}

func NewReservedEvent(holdID int64, r *Reservation) SeatStatusEvent {
	return SeatStatusEvent{
		EventID:       r.EventID,
		Status:        SeatStatusReserved,
		HoldID:        holdID,
		ReservationID: r.ID,
		CustomerEmail: r.CustomerEmail,
		SeatMap:       r.SeatMap,
		SeatCount:     r.SeatMap.Count(),
		OccurredAt:    r.ReservedAt,
	}
}

func NewReleasedEvent(h *SeatHold, at time.Time) SeatStatusEvent {
	return SeatStatusEvent{
		EventID:       h.EventID,
		Status:        SeatStatusReleased,
		HoldID:        h.ID,
		CustomerEmail: h.CustomerEmail,
		SeatMap:       h.SeatMap,
		SeatCount:     h.SeatMap.Count(),
		OccurredAt:    at,
	}
}
