package booking

import (
	"context"
	"testing"
	"time"

	"travelapp/internal/domain"
	"travelapp/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	if args.Error(0) == nil {
		b.ID = 999 // simulate DB insert
	}
	return args.Error(0)
}

func (m *MockBookingRepository) GetForGuest(ctx context.Context, id, guestID int64) (*domain.Booking, error) {
	args := m.Called(ctx, id, guestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListForGuest(ctx context.Context, guestID int64, f repository.BookingFilters) ([]domain.Booking, int64, error) {
	args := m.Called(ctx, guestID, f)
	return args.Get(0).([]domain.Booking), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookingRepository) HasOverlap(ctx context.Context, listingID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error) {
	args := m.Called(ctx, listingID, checkIn, checkOut, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBookingRepository) Transition(ctx context.Context, id, guestID int64, from, to domain.BookingStatus, at time.Time) (bool, error) {
	args := m.Called(ctx, id, guestID, from, to, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id, guestID int64) error {
	return m.Called(ctx, id, guestID).Error(0)
}

type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) BookingTransition(status string) {
	m.Called(status)
}

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *MockBookingRepository, *MockListingRepository, *MockRecorder) {
	bookings := new(MockBookingRepository)
	listings := new(MockListingRepository)
	rec := new(MockRecorder)
	svc := NewService(bookings, listings, rec)
	svc.now = func() time.Time { return fixedNow }
	return svc, bookings, listings, rec
}

func date(s string) time.Time {
	d, _ := parseDate(s)
	return d
}

func TestService_Create_Success(t *testing.T) {
	svc, bookings, listings, rec := newTestService()

	listings.On("GetByID", mock.Anything, int64(4)).
		Return(&domain.Listing{ID: 4, PricePerNight: 120.5, MaxGuests: 3}, nil)
	bookings.On("HasOverlap", mock.Anything, int64(4), date("2026-06-01"), date("2026-06-04"), int64(0)).
		Return(false, nil)
	bookings.On("Create", mock.Anything, mock.AnythingOfType("*domain.Booking")).Return(nil)
	rec.On("BookingTransition", "pending").Return()

	b, err := svc.Create(context.Background(), 9, CreateBookingRequest{
		ListingID: 4,
		CheckIn:   "2026-06-01",
		CheckOut:  "2026-06-04",
		Guests:    2,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(999), b.ID)
	assert.Equal(t, int64(9), b.GuestID)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, 3, b.Nights())
	assert.Equal(t, 361.5, b.TotalPrice)
	bookings.AssertExpectations(t)
	rec.AssertExpectations(t)
}

func TestService_Create_InvalidDates(t *testing.T) {
	svc, bookings, listings, _ := newTestService()

	for _, tc := range []struct{ in, out string }{
		{"2026-06-04", "2026-06-01"},
		{"2026-06-04", "2026-06-04"},
		{"not-a-date", "2026-06-04"},
	} {
		_, err := svc.Create(context.Background(), 9, CreateBookingRequest{ListingID: 4, CheckIn: tc.in, CheckOut: tc.out})
		assert.ErrorIs(t, err, ErrInvalidDates, tc)
	}
	listings.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Create_UnknownListing(t *testing.T) {
	svc, _, listings, _ := newTestService()

	listings.On("GetByID", mock.Anything, int64(404)).Return(nil, repository.ErrNotFound)

	_, err := svc.Create(context.Background(), 9, CreateBookingRequest{ListingID: 404, CheckIn: "2026-06-01", CheckOut: "2026-06-02"})
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestService_Create_TooManyGuests(t *testing.T) {
	svc, _, listings, _ := newTestService()

	listings.On("GetByID", mock.Anything, int64(4)).Return(&domain.Listing{ID: 4, PricePerNight: 10, MaxGuests: 2}, nil)

	_, err := svc.Create(context.Background(), 9, CreateBookingRequest{ListingID: 4, CheckIn: "2026-06-01", CheckOut: "2026-06-02", Guests: 5})
	assert.ErrorIs(t, err, ErrTooManyGuests)
}

func TestService_Create_Overlap(t *testing.T) {
	svc, bookings, listings, _ := newTestService()

	listings.On("GetByID", mock.Anything, int64(4)).Return(&domain.Listing{ID: 4, PricePerNight: 10, MaxGuests: 2}, nil)
	bookings.On("HasOverlap", mock.Anything, int64(4), mock.Anything, mock.Anything, int64(0)).Return(true, nil)

	_, err := svc.Create(context.Background(), 9, CreateBookingRequest{ListingID: 4, CheckIn: "2026-06-01", CheckOut: "2026-06-02"})
	assert.ErrorIs(t, err, ErrOverlap)
	bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Get_OtherGuestIsNotFound(t *testing.T) {
	svc, bookings, _, _ := newTestService()

	bookings.On("GetForGuest", mock.Anything, int64(1), int64(2)).Return(nil, repository.ErrNotFound)

	_, err := svc.Get(context.Background(), 2, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Cancel_Confirmed(t *testing.T) {
	svc, bookings, _, rec := newTestService()

	bookings.On("GetForGuest", mock.Anything, int64(1), int64(9)).
		Return(&domain.Booking{ID: 1, GuestID: 9, Status: domain.BookingConfirmed}, nil)
	bookings.On("Transition", mock.Anything, int64(1), int64(9), domain.BookingConfirmed, domain.BookingCancelled, fixedNow).
		Return(true, nil)
	rec.On("BookingTransition", "cancelled").Return()

	b, err := svc.Cancel(context.Background(), 9, 1)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.Status)
	require.NotNil(t, b.CancelledAt)
	assert.Equal(t, fixedNow, *b.CancelledAt)
	rec.AssertExpectations(t)
}

func TestService_Cancel_WrongStatus(t *testing.T) {
	for _, status := range []domain.BookingStatus{domain.BookingPending, domain.BookingCancelled} {
		t.Run(string(status), func(t *testing.T) {
			svc, bookings, _, rec := newTestService()

			bookings.On("GetForGuest", mock.Anything, int64(1), int64(9)).
				Return(&domain.Booking{ID: 1, GuestID: 9, Status: status}, nil)

			_, err := svc.Cancel(context.Background(), 9, 1)

			assert.ErrorIs(t, err, ErrNotCancellable)
			bookings.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			rec.AssertNotCalled(t, "BookingTransition", mock.Anything)
		})
	}
}

func TestService_Cancel_LostRace(t *testing.T) {
	svc, bookings, _, rec := newTestService()

	bookings.On("GetForGuest", mock.Anything, int64(1), int64(9)).
		Return(&domain.Booking{ID: 1, GuestID: 9, Status: domain.BookingConfirmed}, nil)
	bookings.On("Transition", mock.Anything, int64(1), int64(9), domain.BookingConfirmed, domain.BookingCancelled, fixedNow).
		Return(false, nil)

	_, err := svc.Cancel(context.Background(), 9, 1)

	assert.ErrorIs(t, err, ErrNotCancellable)
	rec.AssertNotCalled(t, "BookingTransition", mock.Anything)
}

func TestService_Update_RecomputesPriceAndStatus(t *testing.T) {
	svc, bookings, listings, rec := newTestService()

	existing := &domain.Booking{
		ID: 3, ListingID: 4, GuestID: 9, Guests: 1,
		CheckIn: date("2026-06-01"), CheckOut: date("2026-06-02"),
		TotalPrice: 100, Status: domain.BookingPending,
	}
	listings.On("GetByID", mock.Anything, int64(4)).Return(&domain.Listing{ID: 4, PricePerNight: 100, MaxGuests: 4}, nil)
	bookings.On("HasOverlap", mock.Anything, int64(4), date("2026-06-01"), date("2026-06-05"), int64(3)).Return(false, nil)
	bookings.On("Update", mock.Anything, existing).Return(nil)
	rec.On("BookingTransition", "confirmed").Return()

	out, status := "2026-06-05", "confirmed"
	b, err := svc.Update(context.Background(), existing, PatchBookingRequest{CheckOut: &out, Status: &status})

	require.NoError(t, err)
	assert.Equal(t, 400.0, b.TotalPrice)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Nil(t, b.CancelledAt)
	rec.AssertExpectations(t)
}

func TestService_Update_RejectsCancelledTransitions(t *testing.T) {
	cases := []struct {
		name string
		from domain.BookingStatus
		to   string
	}{
		{"pending to cancelled", domain.BookingPending, "cancelled"},
		{"confirmed to cancelled", domain.BookingConfirmed, "cancelled"},
		{"cancelled to confirmed", domain.BookingCancelled, "confirmed"},
		{"cancelled to pending", domain.BookingCancelled, "pending"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, bookings, listings, rec := newTestService()
			existing := &domain.Booking{
				ID: 3, ListingID: 4, GuestID: 9, Guests: 1,
				CheckIn: date("2026-06-01"), CheckOut: date("2026-06-02"),
				Status: tc.from,
			}

			status := tc.to
			_, err := svc.Update(context.Background(), existing, PatchBookingRequest{Status: &status})

			assert.ErrorIs(t, err, ErrStatusChange)
			assert.Equal(t, tc.from, existing.Status)
			bookings.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			listings.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
			rec.AssertNotCalled(t, "BookingTransition", mock.Anything)
		})
	}
}

func TestService_Update_CancelledKeepsTimestamp(t *testing.T) {
	svc, bookings, listings, rec := newTestService()

	cancelledAt := fixedNow.Add(-time.Hour)
	existing := &domain.Booking{
		ID: 3, ListingID: 4, GuestID: 9, Guests: 1,
		CheckIn: date("2026-06-01"), CheckOut: date("2026-06-02"),
		Status: domain.BookingCancelled, CancelledAt: &cancelledAt,
	}
	listings.On("GetByID", mock.Anything, int64(4)).Return(&domain.Listing{ID: 4, PricePerNight: 100, MaxGuests: 4}, nil)
	bookings.On("Update", mock.Anything, existing).Return(nil)

	status, guests := "cancelled", 2
	b, err := svc.Update(context.Background(), existing, PatchBookingRequest{Status: &status, Guests: &guests})

	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.Status)
	require.NotNil(t, b.CancelledAt)
	assert.Equal(t, cancelledAt, *b.CancelledAt)
	bookings.AssertNotCalled(t, "HasOverlap", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	rec.AssertNotCalled(t, "BookingTransition", mock.Anything)
}
