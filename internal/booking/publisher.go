package booking

import "errors"

// SeatStatusTopic is where seat status events are published unless the
// service is configured otherwise.
const SeatStatusTopic = "venue.seats.status"

// Publisher delivers seat status events. The kafka producer and the rabbitmq
// publisher both satisfy it.
type Publisher interface {
	Publish(topic, key string, value []byte) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(topic, key string, value []byte) error {
	return nil
}

// MultiPublisher publishes to every publisher in order and joins their
// errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(topic, key string, value []byte) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(topic, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
