package booking

import (
	"context"
	"errors"
	"math"
	"time"

	"travelapp/internal/domain"
	"travelapp/internal/repository"
)

type Service struct {
	bookings BookingRepository
	listings ListingRepository
	metrics  TransitionRecorder
	now      func() time.Time
}

func NewService(bookings BookingRepository, listings ListingRepository, metrics TransitionRecorder) *Service {
	return &Service{
		bookings: bookings,
		listings: listings,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, guestID int64, f repository.BookingFilters) ([]domain.Booking, int64, error) {
	return s.bookings.ListForGuest(ctx, guestID, f)
}

// Get finds a booking among the guest's own. Bookings of other guests are
// reported as ErrNotFound.
func (s *Service) Get(ctx context.Context, guestID, id int64) (*domain.Booking, error) {
	b, err := s.bookings.GetForGuest(ctx, id, guestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *Service) Create(ctx context.Context, guestID int64, req CreateBookingRequest) (*domain.Booking, error) {
	checkIn, checkOut, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	listing, err := s.listings.GetByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}

	b := &domain.Booking{
		ListingID: listing.ID,
		GuestID:   guestID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Guests:    req.Guests,
		Status:    domain.BookingPending,
	}
	if b.Guests == 0 {
		b.Guests = 1
	}
	if b.Guests > listing.MaxGuests {
		return nil, ErrTooManyGuests
	}
	b.TotalPrice = totalPrice(b, listing)

	if err := s.ensureFree(ctx, b); err != nil {
		return nil, err
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	s.record(b.Status)
	return b, nil
}

// Update applies the non-nil fields of req and recomputes the total price.
// Status may move between pending and confirmed only; entering cancelled is
// reserved for Cancel and a cancelled booking stays cancelled.
func (s *Service) Update(ctx context.Context, b *domain.Booking, req PatchBookingRequest) (*domain.Booking, error) {
	prev, next := b.Status, b.Status
	if req.Status != nil {
		next = domain.BookingStatus(*req.Status)
	}
	if next != prev && (next == domain.BookingCancelled || prev == domain.BookingCancelled) {
		return nil, ErrStatusChange
	}

	checkIn, checkOut := b.CheckIn, b.CheckOut
	var err error
	if req.CheckIn != nil {
		if checkIn, err = parseDate(*req.CheckIn); err != nil {
			return nil, ErrInvalidDates
		}
	}
	if req.CheckOut != nil {
		if checkOut, err = parseDate(*req.CheckOut); err != nil {
			return nil, ErrInvalidDates
		}
	}
	if !checkOut.After(checkIn) {
		return nil, ErrInvalidDates
	}

	listing, err := s.listings.GetByID(ctx, b.ListingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}

	b.CheckIn, b.CheckOut = checkIn, checkOut
	if req.Guests != nil {
		b.Guests = *req.Guests
	}
	if b.Guests > listing.MaxGuests {
		return nil, ErrTooManyGuests
	}
	b.Status = next
	b.TotalPrice = totalPrice(b, listing)

	if err := s.ensureFree(ctx, b); err != nil {
		return nil, err
	}
	if err := s.bookings.Update(ctx, b); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if b.Status != prev {
		s.record(b.Status)
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, guestID, id int64) error {
	if err := s.bookings.Delete(ctx, id, guestID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Cancel moves a confirmed booking to cancelled. Any other status, or losing
// a race against a concurrent transition, yields ErrNotCancellable and
// leaves the booking untouched.
func (s *Service) Cancel(ctx context.Context, guestID, id int64) (*domain.Booking, error) {
	b, err := s.Get(ctx, guestID, id)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingConfirmed {
		return nil, ErrNotCancellable
	}

	now := s.now()
	ok, err := s.bookings.Transition(ctx, b.ID, guestID, domain.BookingConfirmed, domain.BookingCancelled, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotCancellable
	}

	b.Status = domain.BookingCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now
	s.record(b.Status)
	return b, nil
}

func (s *Service) ensureFree(ctx context.Context, b *domain.Booking) error {
	if b.Status == domain.BookingCancelled {
		return nil
	}
	taken, err := s.bookings.HasOverlap(ctx, b.ListingID, b.CheckIn, b.CheckOut, b.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrOverlap
	}
	return nil
}

func (s *Service) record(status domain.BookingStatus) {
	if s.metrics != nil {
		s.metrics.BookingTransition(string(status))
	}
}

func parseRange(in, out string) (time.Time, time.Time, error) {
	checkIn, err := parseDate(in)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDates
	}
	checkOut, err := parseDate(out)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDates
	}
	if !checkOut.After(checkIn) {
		return time.Time{}, time.Time{}, ErrInvalidDates
	}
	return checkIn, checkOut, nil
}

func totalPrice(b *domain.Booking, l *domain.Listing) float64 {
	return math.Round(float64(b.Nights())*l.PricePerNight*100) / 100
}
