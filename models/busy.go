package models

import "time"

// BusyInterval is an occupied span reported by the Expert's external
// calendar. Ephemeral: fetched per availability computation, never stored.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
