package parking

import "errors"

var (
	ErrAlreadyParked    = errors.New("vehicle is already parked")
	ErrLotUnavailable   = errors.New("no lot available")
	ErrNotFound         = errors.New("not found")
	ErrExitBeforeEntry  = errors.New("exit time is before entry time")
	ErrInvalidCategory  = errors.New("invalid vehicle category")
	ErrInvalidRate      = errors.New("rate must not be negative")
	ErrInvalidLotCount  = errors.New("lot count must not be negative")
	ErrEmptyPlate       = errors.New("license plate is required")
	ErrAmbiguousSession = errors.New("more than one active session matches")
)
