package domain

import "errors"

// Sentinel errors raised by the dispatch domain. The application layer maps
// these onto API error codes.
var (
	ErrInvalidTask       = errors.New("invalid task")
	ErrUnknownRole       = errors.New("unknown role")
	ErrTaskNotFound      = errors.New("task not found")
	ErrWorkerNotFound    = errors.New("worker not found")
	ErrWorkerInactive    = errors.New("worker inactive")
	ErrRoleMismatch      = errors.New("role mismatch")
	ErrAlreadyAssigned   = errors.New("task already assigned")
	ErrNotTaskOwner      = errors.New("task not owned by worker")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrQuantityExceeded  = errors.New("quantity exceeds requested")
	ErrClaimLost         = errors.New("claim lost to another worker")
	ErrStaleTask         = errors.New("task modified concurrently")
)
