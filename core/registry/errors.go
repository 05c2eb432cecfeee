package registry

import "errors"

// ErrNotFound is returned for unknown spot identifiers.
var ErrNotFound = errors.New("spot not found")

// ErrLotNotFound is returned for unknown lot identifiers.
var ErrLotNotFound = errors.New("lot not found")

// ErrSensorNotFound is returned when a sensor id resolves to no spot.
var ErrSensorNotFound = errors.New("sensor not mapped to a spot")

// ErrConflict is returned when a compare-and-set loses a race: the current
// status or holder no longer matches the expectation. It is a normal
// control-flow outcome, retryable by the caller.
var ErrConflict = errors.New("spot status conflict")
