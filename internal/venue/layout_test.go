package venue

import (
	"context"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-seating/internal/logger"
	"ms-seating/internal/models"
	"ms-seating/internal/store"
	"ms-seating/internal/store/memory"
)

func rowSizes(rows []*models.Row) []int {
	sizes := make([]int, len(rows))
	for i, r := range rows {
		sizes[i] = len(r.Seats)
	}
	return sizes
}

func TestParseSeatingPlan(t *testing.T) {
	plan, err := ParseSeatingPlan("equal")
	require.NoError(t, err)
	assert.Equal(t, SeatingPlanEqual, plan)

	plan, err = ParseSeatingPlan(" Random ")
	require.NoError(t, err)
	assert.Equal(t, SeatingPlanRandom, plan)

	_, err = ParseSeatingPlan("balcony")
	assert.Error(t, err)
}

func TestBuildRows_Equal(t *testing.T) {
	rows, err := BuildRows(10, 2, SeatingPlanEqual, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 5}, rowSizes(rows))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, rows[0].FreeSeatIDs())
	assert.Equal(t, []int{6, 7, 8, 9, 10}, rows[1].FreeSeatIDs())

	// The last row absorbs the remainder.
	rows, err = BuildRows(10, 3, SeatingPlanEqual, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 4}, rowSizes(rows))

	rows, err = BuildRows(2, 4, SeatingPlanEqual, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 1}, rowSizes(rows))
}

func TestBuildRows_Random(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		rnd := rand.New(rand.NewPCG(seed, seed+1))
		rows, err := BuildRows(97, 7, SeatingPlanRandom, rnd)
		require.NoError(t, err)
		require.Len(t, rows, 7)

		total := 0
		nextSeat := 1
		for i, r := range rows {
			assert.Equal(t, i+1, r.ID)
			assert.Equal(t, len(r.Seats), r.FreeSeatCount)
			for _, s := range r.Seats {
				assert.Equal(t, nextSeat, s.ID)
				assert.False(t, s.Occupied)
				nextSeat++
			}
			total += len(r.Seats)
		}
		assert.Equal(t, 97, total, "seed %d", seed)
	}
}

func TestBuildRows_SingleRow(t *testing.T) {
	rows, err := BuildRows(7, 1, SeatingPlanRandom, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, []int{7}, rowSizes(rows))
}

func TestBuildRows_InvalidInput(t *testing.T) {
	_, err := BuildRows(0, 2, SeatingPlanEqual, nil)
	assert.Error(t, err)

	_, err = BuildRows(10, 0, SeatingPlanEqual, nil)
	assert.Error(t, err)

	_, err = BuildRows(10, 2, SeatingPlan("VIP"), nil)
	assert.Error(t, err)
}

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	log := logger.NewConsoleLogger(io.Discard, logger.INFO)

	layout := Layout{EventName: "Opening Night", Capacity: 10, NumRows: 2, Plan: SeatingPlanEqual}
	event, err := Seed(ctx, s, layout, log)
	require.NoError(t, err)
	assert.Equal(t, 10, event.NumSeatsAvailable)
	assert.Equal(t, "Opening Night", event.Name)

	layout.Capacity = 50
	again, err := Seed(ctx, s, layout, log)
	require.NoError(t, err)
	assert.Equal(t, event.ID, again.ID)
	assert.Equal(t, 10, again.NumSeatsAvailable)

	err = s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rows, err := tx.ListRows(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{5, 5}, rowSizes(rows))
		return nil
	})
	require.NoError(t, err)
}
