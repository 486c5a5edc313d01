package review

import (
	"context"

	"travelapp/internal/domain"
	"travelapp/internal/repository"
)

type ReviewRepository interface {
	Create(ctx context.Context, r *domain.Review) error
	GetInListing(ctx context.Context, listingID, id int64) (*domain.Review, error)
	ListByListing(ctx context.Context, listingID int64, p repository.Page) ([]domain.Review, int64, error)
	Update(ctx context.Context, r *domain.Review) error
	Delete(ctx context.Context, listingID, id int64) error
}

type ListingRepository interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Listing, error)
}
