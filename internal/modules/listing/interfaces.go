package listing

import (
	"context"

	"travelapp/internal/domain"
	"travelapp/internal/repository"
)

type ListingRepository interface {
	Create(ctx context.Context, l *domain.Listing) error
	GetByID(ctx context.Context, id int64) (*domain.Listing, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Listing, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, f repository.ListingFilters) ([]domain.Listing, int64, error)
	Update(ctx context.Context, l *domain.Listing) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, listingID int64) (domain.ListingStats, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}
