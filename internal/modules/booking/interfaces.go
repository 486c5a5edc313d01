package booking

import (
	"context"
	"time"

	"travelapp/internal/domain"
	"travelapp/internal/repository"
)

// BookingRepository scopes every read and write to one guest.
type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetForGuest(ctx context.Context, id, guestID int64) (*domain.Booking, error)
	ListForGuest(ctx context.Context, guestID int64, f repository.BookingFilters) ([]domain.Booking, int64, error)
	HasOverlap(ctx context.Context, listingID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error)
	Update(ctx context.Context, b *domain.Booking) error
	Transition(ctx context.Context, id, guestID int64, from, to domain.BookingStatus, at time.Time) (bool, error)
	Delete(ctx context.Context, id, guestID int64) error
}

type ListingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Listing, error)
}

// TransitionRecorder counts bookings entering a status.
type TransitionRecorder interface {
	BookingTransition(status string)
}
