package domain

import "time"

// Listing is a bookable property. Slug and OwnerID never change after creation.
type Listing struct {
	ID            int64     `json:"id"`
	Slug          string    `json:"slug"`
	OwnerID       int64     `json:"owner_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	PricePerNight float64   `json:"price_per_night"`
	MaxGuests     int       `json:"max_guests"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListingStats aggregates the reviews left on a listing.
type ListingStats struct {
	ReviewCount   int64
	AverageRating float64
}

func (l *Listing) OwnedBy() int64 { return l.OwnerID }
