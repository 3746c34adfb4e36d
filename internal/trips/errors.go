package trips

import "errors"

// Service errors.
var (
	ErrTripNotFound  = errors.New("trip not found")
	ErrNotTripOwner  = errors.New("only the trip owner may do this")
	ErrTripNotActive = errors.New("trip is not active")
)
