package review

import (
	"time"

	"travelapp/internal/domain"
)

// CreateReviewRequest names neither listing nor author: both come from the
// request path and the caller.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=5000"`
}

type UpdateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=5000"`
}

type PatchReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=5000"`
}

func (r UpdateReviewRequest) patch() PatchReviewRequest {
	return PatchReviewRequest{Rating: &r.Rating, Comment: &r.Comment}
}

type ReviewResponse struct {
	ID        int64     `json:"id"`
	Listing   int64     `json:"listing"`
	Author    int64     `json:"author"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToResponse(r *domain.Review) any {
	return ReviewResponse{
		ID:        r.ID,
		Listing:   r.ListingID,
		Author:    r.AuthorID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
