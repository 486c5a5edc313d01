package listing

import "errors"

var (
	ErrNotFound    = errors.New("listing not found")
	ErrSlugTaken   = errors.New("listing slug already taken")
	ErrInvalidSlug = errors.New("invalid listing slug")
)
