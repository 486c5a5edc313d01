package booking

import (
	"time"

	"travelapp/internal/domain"
)

const dateLayout = "2006-01-02"

// CreateBookingRequest has no guest field: the guest is always the caller,
// and new bookings always start out pending.
type CreateBookingRequest struct {
	ListingID int64  `json:"listing" validate:"required,gt=0"`
	CheckIn   string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut  string `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests    int    `json:"guests" validate:"omitempty,min=1,max=100"`
}

type UpdateBookingRequest struct {
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests   int    `json:"guests" validate:"required,min=1,max=100"`
	Status   string `json:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
}

type PatchBookingRequest struct {
	CheckIn  *string `json:"check_in" validate:"omitempty,datetime=2006-01-02"`
	CheckOut *string `json:"check_out" validate:"omitempty,datetime=2006-01-02"`
	Guests   *int    `json:"guests" validate:"omitempty,min=1,max=100"`
	Status   *string `json:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
}

func (r UpdateBookingRequest) patch() PatchBookingRequest {
	p := PatchBookingRequest{
		CheckIn:  &r.CheckIn,
		CheckOut: &r.CheckOut,
		Guests:   &r.Guests,
	}
	if r.Status != "" {
		p.Status = &r.Status
	}
	return p
}

type BookingResponse struct {
	ID          int64      `json:"id"`
	Listing     int64      `json:"listing"`
	Guest       int64      `json:"guest"`
	CheckIn     string     `json:"check_in"`
	CheckOut    string     `json:"check_out"`
	Guests      int        `json:"guests"`
	Nights      int        `json:"nights"`
	TotalPrice  float64    `json:"total_price"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

func ToResponse(b *domain.Booking) any {
	return BookingResponse{
		ID:          b.ID,
		Listing:     b.ListingID,
		Guest:       b.GuestID,
		CheckIn:     b.CheckIn.Format(dateLayout),
		CheckOut:    b.CheckOut.Format(dateLayout),
		Guests:      b.Guests,
		Nights:      b.Nights(),
		TotalPrice:  b.TotalPrice,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		CancelledAt: b.CancelledAt,
	}
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}
