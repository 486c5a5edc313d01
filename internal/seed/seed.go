// Package seed fills an empty database with demo data.
package seed

import (
	"context"
	"fmt"
	"time"

	"travelapp/internal/domain"
	"travelapp/internal/pkg/password"
	"travelapp/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DemoPassword = "travel123"

// Summary reports how many rows Run created.
type Summary struct {
	Users    int
	Listings int
	Bookings int
	Reviews  int
}

// Run wipes the travel tables and inserts demo users, listings, bookings and
// reviews. Every demo user logs in with DemoPassword.
func Run(ctx context.Context, db *gorm.DB, log *zap.Logger) (Summary, error) {
	var sum Summary

	// child tables first
	for _, table := range []string{"reviews", "bookings", "listings", "users"} {
		if err := db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return sum, fmt.Errorf("clean %s: %w", table, err)
		}
	}

	users := repository.NewUserRepository(db)
	listings := repository.NewListingRepository(db)
	bookings := repository.NewBookingRepository(db)
	reviews := repository.NewReviewRepository(db)

	hash, err := password.Hash(DemoPassword)
	if err != nil {
		return sum, err
	}

	people := map[string]*domain.User{}
	for _, name := range []string{"alice", "bob", "carol"} {
		u := &domain.User{
			Username:     name,
			Email:        name + "@example.com",
			PasswordHash: hash,
		}
		if err := users.Create(ctx, u); err != nil {
			return sum, fmt.Errorf("create user %s: %w", name, err)
		}
		people[name] = u
		sum.Users++
	}
	log.Info("users created", zap.Int("count", sum.Users), zap.String("password", DemoPassword))

	demo := []domain.Listing{
		{Slug: "alfama-loft", OwnerID: people["alice"].ID, Title: "Alfama Loft", Location: "Lisbon, Portugal", PricePerNight: 95, MaxGuests: 2, Description: "Bright loft over the old town."},
		{Slug: "douro-farmhouse", OwnerID: people["alice"].ID, Title: "Douro Farmhouse", Location: "Peso da Regua, Portugal", PricePerNight: 180, MaxGuests: 6, Description: "Stone farmhouse among the vineyards."},
		{Slug: "harbour-cabin", OwnerID: people["bob"].ID, Title: "Harbour Cabin", Location: "Bergen, Norway", PricePerNight: 140, MaxGuests: 4, Description: "Timber cabin on the water."},
	}
	for i := range demo {
		if err := listings.Create(ctx, &demo[i]); err != nil {
			return sum, fmt.Errorf("create listing %s: %w", demo[i].Slug, err)
		}
		sum.Listings++
	}

	day := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 1, 0)
	stays := []struct {
		guest   string
		listing *domain.Listing
		from    int
		nights  int
		status  domain.BookingStatus
	}{
		{"bob", &demo[0], 0, 3, domain.BookingConfirmed},
		{"carol", &demo[0], 5, 2, domain.BookingPending},
		{"carol", &demo[2], 1, 4, domain.BookingConfirmed},
		{"alice", &demo[2], 10, 2, domain.BookingCancelled},
	}
	for _, s := range stays {
		b := &domain.Booking{
			ListingID: s.listing.ID,
			GuestID:   people[s.guest].ID,
			CheckIn:   day.AddDate(0, 0, s.from),
			CheckOut:  day.AddDate(0, 0, s.from+s.nights),
			Guests:    1,
			Status:    s.status,
		}
		b.TotalPrice = float64(b.Nights()) * s.listing.PricePerNight
		if s.status == domain.BookingCancelled {
			at := time.Now().UTC()
			b.CancelledAt = &at
		}
		if err := bookings.Create(ctx, b); err != nil {
			return sum, fmt.Errorf("create booking: %w", err)
		}
		sum.Bookings++
	}

	notes := []struct {
		author  string
		listing *domain.Listing
		rating  int
		comment string
	}{
		{"bob", &demo[0], 5, "Perfect base for exploring Lisbon."},
		{"carol", &demo[0], 4, "Lovely, a bit noisy at night."},
		{"carol", &demo[2], 5, "Woke up to the fjord every morning."},
	}
	for _, n := range notes {
		r := &domain.Review{
			ListingID: n.listing.ID,
			AuthorID:  people[n.author].ID,
			Rating:    n.rating,
			Comment:   n.comment,
		}
		if err := reviews.Create(ctx, r); err != nil {
			return sum, fmt.Errorf("create review: %w", err)
		}
		sum.Reviews++
	}

	log.Info("seed complete",
		zap.Int("listings", sum.Listings),
		zap.Int("bookings", sum.Bookings),
		zap.Int("reviews", sum.Reviews),
	)
	return sum, nil
}
