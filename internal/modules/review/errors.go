package review

import "errors"

var (
	ErrNotFound        = errors.New("review not found")
	ErrListingNotFound = errors.New("listing not found")
	ErrAlreadyReviewed = errors.New("listing already reviewed by this user")
)
