package models

// Seat is a single occupiable place. Seat ids are unique across the whole
// venue and ascend within a row, which is what contiguity detection relies on.
type Seat struct {
	ID       int  `json:"id"`
	Occupied bool `json:"occupied"`
}
