package listing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"travelapp/internal/domain"
	"travelapp/internal/repository"

	"github.com/gosimple/slug"
)

const maxSlugSuffix = 1000

type Service struct {
	listings ListingRepository
	users    UserRepository
}

func NewService(listings ListingRepository, users UserRepository) *Service {
	return &Service{listings: listings, users: users}
}

func (s *Service) List(ctx context.Context, f repository.ListingFilters) ([]domain.Listing, int64, error) {
	return s.listings.List(ctx, f)
}

// Lookup resolves a path key: first as a slug, then as a numeric id.
func (s *Service) Lookup(ctx context.Context, key string) (*domain.Listing, error) {
	l, err := s.listings.GetBySlug(ctx, key)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	id, perr := strconv.ParseInt(key, 10, 64)
	if perr != nil || id <= 0 {
		return nil, ErrNotFound
	}
	l, err = s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

// Describe loads the owner and review aggregates for the detail view.
func (s *Service) Describe(ctx context.Context, l *domain.Listing) (View, error) {
	v := View{Listing: l}

	owner, err := s.users.GetByID(ctx, l.OwnerID)
	switch {
	case err == nil:
		v.Owner = owner
	case !errors.Is(err, repository.ErrNotFound):
		return View{}, err
	}

	stats, err := s.listings.Stats(ctx, l.ID)
	if err != nil {
		return View{}, err
	}
	stats.AverageRating = math.Round(stats.AverageRating*100) / 100
	v.Stats = stats
	return v, nil
}

// Create stores a listing owned by ownerID. Without an explicit slug one is
// derived from the title and suffixed until unique.
func (s *Service) Create(ctx context.Context, ownerID int64, req CreateListingRequest) (*domain.Listing, error) {
	l := &domain.Listing{
		OwnerID:       ownerID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Location:      strings.TrimSpace(req.Location),
		PricePerNight: req.PricePerNight,
		MaxGuests:     req.MaxGuests,
	}
	if l.MaxGuests == 0 {
		l.MaxGuests = 1
	}

	if explicit := strings.TrimSpace(req.Slug); explicit != "" {
		if !slug.IsSlug(explicit) {
			return nil, ErrInvalidSlug
		}
		l.Slug = explicit
		if err := s.listings.Create(ctx, l); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, ErrSlugTaken
			}
			return nil, err
		}
		return l, nil
	}

	// another writer may take the slug between the check and the insert
	for attempt := 0; attempt < 3; attempt++ {
		candidate, err := s.freeSlug(ctx, l.Title)
		if err != nil {
			return nil, err
		}
		l.Slug = candidate
		err = s.listings.Create(ctx, l)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
	}
	return nil, ErrSlugTaken
}

func (s *Service) freeSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "listing"
	}
	for n := 1; n <= maxSlugSuffix; n++ {
		candidate := base
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		taken, err := s.listings.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrSlugTaken
}

// Update applies the non-nil fields of req. Slug and owner are immutable.
func (s *Service) Update(ctx context.Context, l *domain.Listing, req PatchListingRequest) (*domain.Listing, error) {
	if req.Title != nil {
		l.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		l.Description = *req.Description
	}
	if req.Location != nil {
		l.Location = strings.TrimSpace(*req.Location)
	}
	if req.PricePerNight != nil {
		l.PricePerNight = *req.PricePerNight
	}
	if req.MaxGuests != nil {
		l.MaxGuests = *req.MaxGuests
	}

	if err := s.listings.Update(ctx, l); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.listings.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
