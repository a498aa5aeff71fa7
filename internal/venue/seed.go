package venue

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"ms-seating/internal/logger"
	"ms-seating/internal/models"
	"ms-seating/internal/store"
)

type Layout struct {
	EventName string
	Capacity  int
	NumRows   int
	Plan      SeatingPlan
	// Rand drives the RANDOM plan; nil means a freshly seeded source.
	Rand *rand.Rand
}

// Seed creates the event and its rows in one transaction. When the store
// already has an event the existing venue is returned untouched.
func Seed(ctx context.Context, s store.Store, layout Layout, log *logger.Logger) (*models.Event, error) {
	rows, err := BuildRows(layout.Capacity, layout.NumRows, layout.Plan, layout.Rand)
	if err != nil {
		return nil, err
	}

	var event *models.Event
	seeded := false
	err = s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		existing, err := tx.GetEvent(ctx)
		if err == nil {
			event = existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		event = &models.Event{Name: layout.EventName}
		event.SyncAvailability(rows)
		if err := tx.InsertEvent(ctx, event); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if err := tx.InsertRows(ctx, rows); err != nil {
			return fmt.Errorf("insert rows: %w", err)
		}
		seeded = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed venue: %w", err)
	}

	if log != nil {
		if seeded {
			log.Info("VENUE", fmt.Sprintf("Seeded event %d %q: %d seats in %d rows (%s plan)",
				event.ID, event.Name, layout.Capacity, layout.NumRows, layout.Plan))
		} else {
			log.Info("VENUE", fmt.Sprintf("Event %d %q already exists with %d seats available, skipping seed",
				event.ID, event.Name, event.NumSeatsAvailable))
		}
	}
	return event, nil
}
