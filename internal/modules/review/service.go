package review

import (
	"context"
	"errors"
	"strings"

	"travelapp/internal/domain"
	"travelapp/internal/repository"
)

type Service struct {
	reviews  ReviewRepository
	listings ListingRepository
}

func NewService(reviews ReviewRepository, listings ListingRepository) *Service {
	return &Service{reviews: reviews, listings: listings}
}

// Listing resolves the parent listing named in the path.
func (s *Service) Listing(ctx context.Context, slug string) (*domain.Listing, error) {
	l, err := s.listings.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *Service) List(ctx context.Context, listing *domain.Listing, p repository.Page) ([]domain.Review, int64, error) {
	return s.reviews.ListByListing(ctx, listing.ID, p)
}

// Get finds a review only among those of the given listing.
func (s *Service) Get(ctx context.Context, listing *domain.Listing, id int64) (*domain.Review, error) {
	r, err := s.reviews.GetInListing(ctx, listing.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *Service) Create(ctx context.Context, listing *domain.Listing, authorID int64, req CreateReviewRequest) (*domain.Review, error) {
	r := &domain.Review{
		ListingID: listing.ID,
		AuthorID:  authorID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, r *domain.Review, req PatchReviewRequest) (*domain.Review, error) {
	if req.Rating != nil {
		r.Rating = *req.Rating
	}
	if req.Comment != nil {
		r.Comment = strings.TrimSpace(*req.Comment)
	}
	if err := s.reviews.Update(ctx, r); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, r *domain.Review) error {
	if err := s.reviews.Delete(ctx, r.ListingID, r.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
