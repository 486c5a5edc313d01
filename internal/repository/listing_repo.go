package repository

import (
	"context"
	"strings"
	"time"

	"travelapp/internal/domain"

	"gorm.io/gorm"
)

type ListingFilters struct {
	Location string
	MaxPrice float64
	OwnerID  int64
	Page
}

type ListingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

type listingModel struct {
	ID            int64      `gorm:"column:id;primaryKey"`
	Slug          string     `gorm:"column:slug;size:200;not null;uniqueIndex"`
	OwnerID       int64      `gorm:"column:owner_id;not null;index"`
	Owner         *userModel `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Title         string     `gorm:"column:title;size:200;not null"`
	Description   string     `gorm:"column:description;type:text"`
	Location      string     `gorm:"column:location;size:255"`
	PricePerNight float64    `gorm:"column:price_per_night;not null"`
	MaxGuests     int        `gorm:"column:max_guests;not null;default:1"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (listingModel) TableName() string { return "listings" }

func toDomainListing(m listingModel) *domain.Listing {
	return &domain.Listing{
		ID:            m.ID,
		Slug:          m.Slug,
		OwnerID:       m.OwnerID,
		Title:         m.Title,
		Description:   m.Description,
		Location:      m.Location,
		PricePerNight: m.PricePerNight,
		MaxGuests:     m.MaxGuests,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toListingModel(l *domain.Listing) listingModel {
	return listingModel{
		ID:            l.ID,
		Slug:          l.Slug,
		OwnerID:       l.OwnerID,
		Title:         l.Title,
		Description:   l.Description,
		Location:      l.Location,
		PricePerNight: l.PricePerNight,
		MaxGuests:     l.MaxGuests,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func (r *ListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	m := toListingModel(l)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err)
	}
	*l = *toDomainListing(m)
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	var m listingModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return toDomainListing(m), nil
}

func (r *ListingRepository) GetBySlug(ctx context.Context, slug string) (*domain.Listing, error) {
	var m listingModel
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return toDomainListing(m), nil
}

func (r *ListingRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&listingModel{}).Where("slug = ?", slug).Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// List returns listings with optional filters
func (r *ListingRepository) List(ctx context.Context, f ListingFilters) ([]domain.Listing, int64, error) {
	p := f.Page.Normalize()
	q := r.db.WithContext(ctx).Model(&listingModel{})

	if loc := strings.TrimSpace(f.Location); loc != "" {
		q = q.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(loc)+"%")
	}
	if f.MaxPrice > 0 {
		q = q.Where("price_per_night <= ?", f.MaxPrice)
	}
	if f.OwnerID > 0 {
		q = q.Where("owner_id = ?", f.OwnerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []listingModel
	if err := q.Order("id").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Listing, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainListing(m))
	}
	return out, total, nil
}

// Update writes the descriptive columns. Slug and owner are never rewritten.
func (r *ListingRepository) Update(ctx context.Context, l *domain.Listing) error {
	l.UpdatedAt = time.Now().UTC()
	m := toListingModel(l)
	tx := r.db.WithContext(ctx).
		Model(&listingModel{ID: l.ID}).
		Select("title", "description", "location", "price_per_night", "max_guests", "updated_at").
		Updates(&m)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx).Delete(&listingModel{}, id)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ListingRepository) Stats(ctx context.Context, listingID int64) (domain.ListingStats, error) {
	var row struct {
		Count int64
		Avg   *float64
	}
	tx := r.db.WithContext(ctx).
		Model(&reviewModel{}).
		Select("COUNT(*) AS count, AVG(rating) AS avg").
		Where("listing_id = ?", listingID).
		Scan(&row)
	if tx.Error != nil {
		return domain.ListingStats{}, tx.Error
	}
	stats := domain.ListingStats{ReviewCount: row.Count}
	if row.Avg != nil {
		stats.AverageRating = *row.Avg
	}
	return stats, nil
}
