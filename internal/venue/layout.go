// Package venue builds the seat grid of the venue and seeds it into a store.
package venue

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"ms-seating/internal/models"
)

type SeatingPlan string

const (
	// SeatingPlanEqual spreads the seats over the rows as evenly as possible.
	SeatingPlanEqual SeatingPlan = "EQUAL"
	// SeatingPlanRandom gives each row a random share of what is left.
	SeatingPlanRandom SeatingPlan = "RANDOM"
)

// ParseSeatingPlan accepts a plan name in any letter case.
func ParseSeatingPlan(s string) (SeatingPlan, error) {
	switch plan := SeatingPlan(strings.ToUpper(strings.TrimSpace(s))); plan {
	case SeatingPlanEqual, SeatingPlanRandom:
		return plan, nil
	default:
		return "", fmt.Errorf("unknown seating plan %q", s)
	}
}

// BuildRows lays out capacity seats over numRows rows. Rows are filled front
// to back and the last row takes whatever is left, so the result always has
// numRows rows holding exactly capacity seats. Row ids run 1..numRows and
// seat ids run 1..capacity across the whole venue. rnd is only consulted for
// the RANDOM plan and may be nil otherwise.
func BuildRows(capacity, numRows int, plan SeatingPlan, rnd *rand.Rand) ([]*models.Row, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("capacity must be at least 1, got %d", capacity)
	}
	if numRows < 1 {
		return nil, fmt.Errorf("number of rows must be at least 1, got %d", numRows)
	}
	if plan == SeatingPlanRandom && rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	rows := make([]*models.Row, 0, numRows)
	remaining := capacity
	nextSeatID := 1
	for i := 0; i < numRows; i++ {
		remainingRows := numRows - i

		var size int
		switch {
		case remainingRows == 1:
			size = remaining
		case plan == SeatingPlanEqual:
			size = remaining / remainingRows
		case plan == SeatingPlanRandom:
			if remaining > 0 {
				size = rnd.IntN(remaining)
			}
		default:
			return nil, fmt.Errorf("unknown seating plan %q", plan)
		}

		rows = append(rows, models.NewRow(i+1, nextSeatID, size))
		nextSeatID += size
		remaining -= size
	}
	return rows, nil
}
