package requests

import "errors"

// Requests module errors.
var (
	ErrRequestNotFound    = errors.New("request not found")
	ErrTripNotFound       = errors.New("trip not found")
	ErrTripNotOpen        = errors.New("trip is not open for requests")
	ErrOwnTrip            = errors.New("cannot request own trip")
	ErrNotRequestSender   = errors.New("request does not belong to sender")
	ErrNotTripTraveler    = errors.New("request is not on traveler's trip")
	ErrRequestNotPending  = errors.New("request is not pending")
	ErrRequestNotAccepted = errors.New("request is not accepted")
)
