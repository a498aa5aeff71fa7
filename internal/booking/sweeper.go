package booking

import (
	"context"
	"fmt"
	"time"

	"ms-seating/internal/logger"
	"ms-seating/internal/models"
)

const DefaultSweepInterval = time.Minute

type Expirer interface {
	ExpireHolds(ctx context.Context) ([]*models.SeatHold, error)
}

// Sweeper periodically releases expired holds. A failed sweep is logged and
// the next tick tries again.
type Sweeper struct {
	Holds    Expirer
	Interval time.Duration
	Logger   *logger.Logger
}

func NewSweeper(holds Expirer, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{Holds: holds, Interval: interval, Logger: log}
}

// Run sweeps every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logInfo(fmt.Sprintf("Expiry sweeper started, interval %s", s.Interval))
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logInfo("Expiry sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Start runs the sweeper in its own goroutine. The returned channel is
// closed once it has stopped.
func (s *Sweeper) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return done
}

// Sweep runs a single expiry pass and reports how many holds it released.
func (s *Sweeper) Sweep(ctx context.Context) int {
	expired, err := s.Holds.ExpireHolds(ctx)
	if err != nil {
		if ctx.Err() == nil && s.Logger != nil {
			s.Logger.Error("SWEEPER", fmt.Sprintf("Expiry sweep failed: %v", err))
		}
		return 0
	}
	if len(expired) > 0 && s.Logger != nil {
		s.Logger.LogProcess("SWEEPER", fmt.Sprintf("Released %d expired holds", len(expired)))
	}
	return len(expired)
}

func (s *Sweeper) logInfo(message string) {
	if s.Logger != nil {
		s.Logger.Info("SWEEPER", message)
	}
}
