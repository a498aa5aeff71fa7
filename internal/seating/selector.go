// Package seating picks which free seats a hold gets. It works purely on row
// values that the caller has loaded inside a transaction; it does no I/O and
// no locking of its own.
package seating

import (
	"errors"
	"fmt"
	"sort"

	"ms-seating/internal/models"
)

var ErrInsufficientSeats = errors.New("not enough free seats")

// Select tries Contiguous first and falls back to Staggered. On success the
// chosen seats are marked occupied in rows and the touched rows are returned
// alongside the seat map.
func Select(rows []*models.Row, n int) (models.SeatMap, []*models.Row, error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("seat count must be at least 1, got %d", n)
	}
	if seatMap, touched, ok := Contiguous(rows, n); ok {
		return seatMap, touched, nil
	}
	if seatMap, touched, ok := Staggered(rows, n); ok {
		return seatMap, touched, nil
	}
	return nil, nil, ErrInsufficientSeats
}

// Contiguous looks for n consecutive free seat ids inside a single row,
// lowest row first and lowest seat first. Only that row is modified.
func Contiguous(rows []*models.Row, n int) (models.SeatMap, []*models.Row, bool) {
	if n < 1 {
		return nil, nil, false
	}
	for _, row := range byID(rows) {
		if row.FreeSeatCount < n {
			continue
		}
		free := row.FreeSeatIDs()
		start := runStart(free, n)
		if start < 0 {
			continue
		}
		picked := append([]int(nil), free[start:start+n]...)
		row.Occupy(picked)
		return models.SeatMap{row.ID: picked}, []*models.Row{row}, true
	}
	return nil, nil, false
}

// runStart returns the index in ids where n consecutive values begin, or -1.
func runStart(ids []int, n int) int {
	runLen := 0
	for i, id := range ids {
		if i > 0 && id == ids[i-1]+1 {
			runLen++
		} else {
			runLen = 1
		}
		if runLen == n {
			return i - n + 1
		}
	}
	return -1
}

// Staggered takes free seats row by row in ascending order until n are
// taken. Nothing is modified when fewer than n seats are free overall.
func Staggered(rows []*models.Row, n int) (models.SeatMap, []*models.Row, bool) {
	if n < 1 {
		return nil, nil, false
	}
	sorted := byID(rows)

	totalFree := 0
	for _, row := range sorted {
		totalFree += row.FreeSeatCount
	}
	if totalFree < n {
		return nil, nil, false
	}

	seatMap := models.SeatMap{}
	var touched []*models.Row
	need := n
	for _, row := range sorted {
		if need == 0 {
			break
		}
		if row.FreeSeatCount == 0 {
			continue
		}
		free := row.FreeSeatIDs()
		if len(free) > need {
			free = free[:need]
		}
		row.Occupy(free)
		seatMap[row.ID] = free
		touched = append(touched, row)
		need -= len(free)
	}
	return seatMap, touched, true
}

func byID(rows []*models.Row) []*models.Row {
	sorted := append([]*models.Row(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted
}
