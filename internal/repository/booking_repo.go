package repository

import (
	"context"
	"time"

	"travelapp/internal/domain"

	"gorm.io/gorm"
)

type BookingFilters struct {
	Status domain.BookingStatus
	Page
}

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID          int64         `gorm:"column:id;primaryKey"`
	ListingID   int64         `gorm:"column:listing_id;not null;index"`
	Listing     *listingModel `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	GuestID     int64         `gorm:"column:guest_id;not null;index"`
	Guest       *userModel    `gorm:"foreignKey:GuestID;constraint:OnDelete:CASCADE"`
	CheckIn     time.Time     `gorm:"column:check_in;not null"`
	CheckOut    time.Time     `gorm:"column:check_out;not null"`
	Guests      int           `gorm:"column:guests;not null;default:1"`
	TotalPrice  float64       `gorm:"column:total_price;not null"`
	Status      string        `gorm:"column:status;size:16;not null;default:pending;index"`
	CreatedAt   time.Time     `gorm:"column:created_at"`
	UpdatedAt   time.Time     `gorm:"column:updated_at"`
	CancelledAt *time.Time    `gorm:"column:cancelled_at"`
}

func (bookingModel) TableName() string { return "bookings" }

func toDomainBooking(m bookingModel) *domain.Booking {
	return &domain.Booking{
		ID:          m.ID,
		ListingID:   m.ListingID,
		GuestID:     m.GuestID,
		CheckIn:     m.CheckIn,
		CheckOut:    m.CheckOut,
		Guests:      m.Guests,
		TotalPrice:  m.TotalPrice,
		Status:      domain.BookingStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		CancelledAt: m.CancelledAt,
	}
}

func toBookingModel(b *domain.Booking) bookingModel {
	return bookingModel{
		ID:          b.ID,
		ListingID:   b.ListingID,
		GuestID:     b.GuestID,
		CheckIn:     b.CheckIn,
		CheckOut:    b.CheckOut,
		Guests:      b.Guests,
		TotalPrice:  b.TotalPrice,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		CancelledAt: b.CancelledAt,
	}
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	m := toBookingModel(b)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err)
	}
	*b = *toDomainBooking(m)
	return nil
}

// GetForGuest finds a booking only inside the guest's own set; anything else
// is ErrNotFound.
func (r *BookingRepository) GetForGuest(ctx context.Context, id, guestID int64) (*domain.Booking, error) {
	var m bookingModel
	tx := r.db.WithContext(ctx).
		Where("id = ? AND guest_id = ?", id, guestID).
		First(&m)
	if tx.Error != nil {
		return nil, translate(tx.Error)
	}
	return toDomainBooking(m), nil
}

func (r *BookingRepository) ListForGuest(ctx context.Context, guestID int64, f BookingFilters) ([]domain.Booking, int64, error) {
	p := f.Page.Normalize()
	q := r.db.WithContext(ctx).Model(&bookingModel{}).Where("guest_id = ?", guestID)
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []bookingModel
	if err := q.Order("check_in DESC, id DESC").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainBooking(m))
	}
	return out, total, nil
}

// HasOverlap reports whether a non-cancelled booking on the listing
// intersects [checkIn, checkOut). excludeID skips the booking being edited.
func (r *BookingRepository) HasOverlap(ctx context.Context, listingID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error) {
	var cnt int64
	q := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("listing_id = ?", listingID).
		Where("status <> ?", string(domain.BookingCancelled)).
		Where("check_in < ? AND check_out > ?", checkOut, checkIn)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	b.UpdatedAt = time.Now().UTC()
	m := toBookingModel(b)
	tx := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ? AND guest_id = ?", b.ID, b.GuestID).
		Select("check_in", "check_out", "guests", "total_price", "status", "cancelled_at", "updated_at").
		Updates(&m)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Transition moves a booking from one status to another in a single
// conditional UPDATE. It returns false when the booking was not in status from.
func (r *BookingRepository) Transition(ctx context.Context, id, guestID int64, from, to domain.BookingStatus, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     string(to),
		"updated_at": at,
	}
	if to == domain.BookingCancelled {
		updates["cancelled_at"] = at
	}
	tx := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ? AND guest_id = ? AND status = ?", id, guestID, string(from)).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *BookingRepository) Delete(ctx context.Context, id, guestID int64) error {
	tx := r.db.WithContext(ctx).
		Where("id = ? AND guest_id = ?", id, guestID).
		Delete(&bookingModel{})
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
