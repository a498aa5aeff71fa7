package models

import (
	"sort"
	"strings"
)

// SeatMap maps a row id to the ascending ids of the seats taken in that row.
type SeatMap map[int][]int

// Count returns the total number of seats in the map.
func (m SeatMap) Count() int {
	n := 0
	for _, ids := range m {
		n += len(ids)
	}
	return n
}

// RowIDs returns the row ids in ascending order.
func (m SeatMap) RowIDs() []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SeatIDs flattens the map into ascending row order.
func (m SeatMap) SeatIDs() []int {
	out := make([]int, 0, m.Count())
	for _, rowID := range m.RowIDs() {
		out = append(out, m[rowID]...)
	}
	return out
}

func (m SeatMap) Clone() SeatMap {
	c := make(SeatMap, len(m))
	for rowID, ids := range m {
		c[rowID] = append([]int(nil), ids...)
	}
	return c
}

// NormalizeEmail is the canonical form used to store and match customer
// emails, which are compared case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
