package booking_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"ms-seating/internal/booking"
	"ms-seating/internal/models"
)

func TestMultiPublisherDeliversToAll(t *testing.T) {
	down := &recordingPublisher{err: errors.New("broker down")}
	up := &recordingPublisher{}

	err := booking.MultiPublisher{down, up}.Publish(booking.SeatStatusTopic, "1", []byte(`{"status":"HELD"}`))

	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, []models.SeatStatus{models.SeatStatusHeld}, up.statuses())
	assert.Equal(t, []models.SeatStatus{models.SeatStatusHeld}, down.statuses())
	assert.NoError(t, booking.MultiPublisher{}.Publish("t", "k", nil))
}
