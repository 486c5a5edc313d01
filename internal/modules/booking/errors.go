package booking

import "errors"

var (
	ErrNotFound        = errors.New("booking not found")
	ErrListingNotFound = errors.New("listing does not exist")
	ErrInvalidDates    = errors.New("check_out must be after check_in")
	ErrTooManyGuests   = errors.New("guests exceed listing capacity")
	ErrOverlap         = errors.New("listing already booked for these dates")
	ErrNotCancellable  = errors.New("booking cannot be cancelled")
	ErrStatusChange    = errors.New("status change requires the cancel action")
)
