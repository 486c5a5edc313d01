package repository

import (
	"context"
	"time"

	"travelapp/internal/domain"

	"gorm.io/gorm"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

type reviewModel struct {
	ID        int64         `gorm:"column:id;primaryKey"`
	ListingID int64         `gorm:"column:listing_id;not null;uniqueIndex:idx_reviews_listing_author"`
	Listing   *listingModel `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	AuthorID  int64         `gorm:"column:author_id;not null;uniqueIndex:idx_reviews_listing_author"`
	Author    *userModel    `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Rating    int           `gorm:"column:rating;not null"`
	Comment   string        `gorm:"column:comment;type:text"`
	CreatedAt time.Time     `gorm:"column:created_at"`
	UpdatedAt time.Time     `gorm:"column:updated_at"`
}

func (reviewModel) TableName() string { return "reviews" }

func toDomainReview(m reviewModel) *domain.Review {
	return &domain.Review{
		ID:        m.ID,
		ListingID: m.ListingID,
		AuthorID:  m.AuthorID,
		Rating:    m.Rating,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toReviewModel(r *domain.Review) reviewModel {
	return reviewModel{
		ID:        r.ID,
		ListingID: r.ListingID,
		AuthorID:  r.AuthorID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	m := toReviewModel(rv)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err)
	}
	*rv = *toDomainReview(m)
	return nil
}

// GetInListing finds a review only if it belongs to the listing.
func (r *ReviewRepository) GetInListing(ctx context.Context, listingID, id int64) (*domain.Review, error) {
	var m reviewModel
	tx := r.db.WithContext(ctx).
		Where("id = ? AND listing_id = ?", id, listingID).
		First(&m)
	if tx.Error != nil {
		return nil, translate(tx.Error)
	}
	return toDomainReview(m), nil
}

func (r *ReviewRepository) ListByListing(ctx context.Context, listingID int64, p Page) ([]domain.Review, int64, error) {
	p = p.Normalize()
	q := r.db.WithContext(ctx).Model(&reviewModel{}).Where("listing_id = ?", listingID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []reviewModel
	if err := q.Order("created_at DESC, id DESC").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Review, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainReview(m))
	}
	return out, total, nil
}

func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) error {
	rv.UpdatedAt = time.Now().UTC()
	m := toReviewModel(rv)
	tx := r.db.WithContext(ctx).
		Model(&reviewModel{}).
		Where("id = ? AND listing_id = ?", rv.ID, rv.ListingID).
		Select("rating", "comment", "updated_at").
		Updates(&m)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) Delete(ctx context.Context, listingID, id int64) error {
	tx := r.db.WithContext(ctx).
		Where("id = ? AND listing_id = ?", id, listingID).
		Delete(&reviewModel{})
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
