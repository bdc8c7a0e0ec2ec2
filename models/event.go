package models

import (
	"fmt"
	"time"
)

// Event is a bookable offering owned by an Expert: a duration at a price.
type Event struct {
	ID              EventID   `bson:"id" json:"id"`
	ExpertID        ExpertID  `bson:"expert_id" json:"expertId"`
	Slug            string    `bson:"slug" json:"slug"` // unique per expert
	Title           string    `bson:"title" json:"title"`
	DurationMinutes int       `bson:"duration_minutes" json:"durationMinutes"`
	Active          bool      `bson:"active" json:"active"`
	PriceMinor      int64     `bson:"price_minor" json:"priceMinor"`
	Currency        string    `bson:"currency" json:"currency"`
	DisplayOrder    int       `bson:"display_order" json:"displayOrder"`
	LocationHandle  string    `bson:"location_handle" json:"locationHandle"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updatedAt"`
}

// Validate checks the field constraints for a bookable offering.
func (e Event) Validate() error {
	if e.Slug == "" {
		return fmt.Errorf("event slug is required")
	}
	if e.DurationMinutes < 5 || e.DurationMinutes > 720 {
		return fmt.Errorf("event duration %d outside allowed range [5, 720]", e.DurationMinutes)
	}
	if e.PriceMinor < 0 {
		return fmt.Errorf("event price must not be negative")
	}
	if e.Currency == "" {
		return fmt.Errorf("event currency is required")
	}
	return nil
}
