package sse

import (
	"context"
	"sync"
)

// SeatEventEmitter fans seat status events out to connected stream clients.
// It satisfies booking.Publisher, so the service publishes to it like any
// other broker.
type SeatEventEmitter struct {
	clients     map[chan []byte]struct{}
	clientMutex sync.RWMutex
	bufferSize  int
}

func NewSeatEventEmitter() *SeatEventEmitter {
	return &SeatEventEmitter{
		clients:    make(map[chan []byte]struct{}),
		bufferSize: 16,
	}
}

// Subscribe registers a client until ctx is done, then closes its channel.
func (e *SeatEventEmitter) Subscribe(ctx context.Context) <-chan []byte {
	clientChan := make(chan []byte, e.bufferSize)

	e.clientMutex.Lock()
	e.clients[clientChan] = struct{}{}
	e.clientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(clientChan)
	}()

	return clientChan
}

// Publish broadcasts one encoded event. Slow clients miss events rather
// than stall the booking path.
func (e *SeatEventEmitter) Publish(topic, key string, value []byte) error {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()

	for clientChan := range e.clients {
		select {
		case clientChan <- value:
		default:
		}
	}
	return nil
}

func (e *SeatEventEmitter) removeClient(clientChan chan []byte) {
	e.clientMutex.Lock()
	defer e.clientMutex.Unlock()

	if _, ok := e.clients[clientChan]; ok {
		delete(e.clients, clientChan)
		close(clientChan)
	}
}

func (e *SeatEventEmitter) ClientCount() int {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()
	return len(e.clients)
}
