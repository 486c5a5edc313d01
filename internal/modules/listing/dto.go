package listing

import (
	"time"

	"travelapp/internal/domain"
)

// CreateListingRequest carries no owner: the owner is always the caller.
type CreateListingRequest struct {
	Slug          string  `json:"slug" validate:"omitempty,max=200"`
	Title         string  `json:"title" validate:"required,max=200"`
	Description   string  `json:"description"`
	Location      string  `json:"location" validate:"max=255"`
	PricePerNight float64 `json:"price_per_night" validate:"required,gt=0"`
	MaxGuests     int     `json:"max_guests" validate:"omitempty,min=1,max=100"`
}

type UpdateListingRequest struct {
	Title         string  `json:"title" validate:"required,max=200"`
	Description   string  `json:"description"`
	Location      string  `json:"location" validate:"max=255"`
	PricePerNight float64 `json:"price_per_night" validate:"required,gt=0"`
	MaxGuests     int     `json:"max_guests" validate:"required,min=1,max=100"`
}

type PatchListingRequest struct {
	Title         *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string  `json:"description"`
	Location      *string  `json:"location" validate:"omitempty,max=255"`
	PricePerNight *float64 `json:"price_per_night" validate:"omitempty,gt=0"`
	MaxGuests     *int     `json:"max_guests" validate:"omitempty,min=1,max=100"`
}

func (r UpdateListingRequest) patch() PatchListingRequest {
	return PatchListingRequest{
		Title:         &r.Title,
		Description:   &r.Description,
		Location:      &r.Location,
		PricePerNight: &r.PricePerNight,
		MaxGuests:     &r.MaxGuests,
	}
}

// View is a listing plus what its detail representation needs. Owner and
// Stats are only filled in for the detail view.
type View struct {
	Listing *domain.Listing
	Owner   *domain.User
	Stats   domain.ListingStats
}

type SummaryResponse struct {
	ID            int64   `json:"id"`
	Slug          string  `json:"slug"`
	Owner         int64   `json:"owner"`
	Title         string  `json:"title"`
	Location      string  `json:"location"`
	PricePerNight float64 `json:"price_per_night"`
}

type DetailResponse struct {
	SummaryResponse
	Description   string    `json:"description"`
	MaxGuests     int       `json:"max_guests"`
	OwnerUsername string    `json:"owner_username"`
	ReviewCount   int64     `json:"review_count"`
	AverageRating float64   `json:"average_rating"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func Summary(v View) any {
	l := v.Listing
	return SummaryResponse{
		ID:            l.ID,
		Slug:          l.Slug,
		Owner:         l.OwnerID,
		Title:         l.Title,
		Location:      l.Location,
		PricePerNight: l.PricePerNight,
	}
}

func Detail(v View) any {
	l := v.Listing
	out := DetailResponse{
		SummaryResponse: Summary(v).(SummaryResponse),
		Description:     l.Description,
		MaxGuests:       l.MaxGuests,
		ReviewCount:     v.Stats.ReviewCount,
		AverageRating:   v.Stats.AverageRating,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if v.Owner != nil {
		out.OwnerUsername = v.Owner.Username
	}
	return out
}
