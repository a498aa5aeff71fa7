package seating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-seating/internal/models"
)

// twoRows builds rows 1: seats 1-5 and 2: seats 6-10.
func twoRows() []*models.Row {
	return []*models.Row{models.NewRow(1, 1, 5), models.NewRow(2, 6, 5)}
}

func TestSelect_ContiguousInFirstRow(t *testing.T) {
	rows := twoRows()

	seatMap, touched, err := Select(rows, 3)
	require.NoError(t, err)
	assert.Equal(t, models.SeatMap{1: {1, 2, 3}}, seatMap)
	require.Len(t, touched, 1)
	assert.Equal(t, 1, touched[0].ID)
	assert.Equal(t, 2, rows[0].FreeSeatCount)
	assert.Equal(t, 5, rows[1].FreeSeatCount)
}

func TestSelect_PrefersContiguousOverStaggered(t *testing.T) {
	rows := twoRows()
	rows[0].Occupy([]int{1, 2, 3})

	// Row 1 has only seats 4 and 5 left, so three seats fit together only
	// in row 2.
	seatMap, _, err := Select(rows, 3)
	require.NoError(t, err)
	assert.Equal(t, models.SeatMap{2: {6, 7, 8}}, seatMap)
	assert.Equal(t, 2, rows[0].FreeSeatCount)
	assert.Equal(t, 2, rows[1].FreeSeatCount)
}

func TestContiguous_SkipsGaps(t *testing.T) {
	row := models.NewRow(1, 1, 6)
	row.Occupy([]int{3})

	seatMap, _, ok := Contiguous([]*models.Row{row}, 3)
	require.True(t, ok)
	assert.Equal(t, models.SeatMap{1: {4, 5, 6}}, seatMap)
	assert.Equal(t, 2, row.FreeSeatCount)
}

func TestContiguous_ExactRun(t *testing.T) {
	row := models.NewRow(1, 1, 3)

	seatMap, _, ok := Contiguous([]*models.Row{row}, 3)
	require.True(t, ok)
	assert.Equal(t, models.SeatMap{1: {1, 2, 3}}, seatMap)
	assert.Equal(t, 0, row.FreeSeatCount)
}

func TestSelect_StaggeredAcrossRows(t *testing.T) {
	rows := twoRows()
	rows[0].Occupy([]int{1, 2, 3})
	rows[1].Occupy([]int{6, 7, 8})

	seatMap, touched, err := Select(rows, 4)
	require.NoError(t, err)
	assert.Equal(t, models.SeatMap{1: {4, 5}, 2: {9, 10}}, seatMap)
	assert.Len(t, touched, 2)
	assert.Equal(t, 0, rows[0].FreeSeatCount)
	assert.Equal(t, 0, rows[1].FreeSeatCount)
}

func TestSelect_UnorderedRowsStillScannedByID(t *testing.T) {
	rows := []*models.Row{models.NewRow(2, 6, 5), models.NewRow(1, 1, 5)}

	seatMap, _, err := Select(rows, 2)
	require.NoError(t, err)
	assert.Equal(t, models.SeatMap{1: {1, 2}}, seatMap)
}

func TestSelect_InsufficientLeavesRowsUntouched(t *testing.T) {
	rows := twoRows()
	rows[0].Occupy([]int{1, 2, 3, 4})

	_, _, err := Select(rows, 7)
	assert.ErrorIs(t, err, ErrInsufficientSeats)
	assert.Equal(t, 1, rows[0].FreeSeatCount)
	assert.Equal(t, 5, rows[1].FreeSeatCount)
}

func TestSelect_RejectsNonPositive(t *testing.T) {
	_, _, err := Select(twoRows(), 0)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientSeats)
}

func TestStaggered_RefusesUpFront(t *testing.T) {
	rows := twoRows()
	_, _, ok := Staggered(rows, 11)
	assert.False(t, ok)
	assert.Equal(t, 5, rows[0].FreeSeatCount)
	assert.Equal(t, 5, rows[1].FreeSeatCount)
}
