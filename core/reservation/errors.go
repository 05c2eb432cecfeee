package reservation

import "errors"

// ErrNotAvailable is returned when a claim finds the spot in any status other
// than available. The caller should re-query and pick a different spot.
var ErrNotAvailable = errors.New("spot not available")

// ErrNotHolder is returned when a release is attempted by an identity that
// does not hold the reservation.
var ErrNotHolder = errors.New("reservation not held by caller")

// ErrNoChange signals that the requested transition was already in effect.
var ErrNoChange = errors.New("spot already in target status")
