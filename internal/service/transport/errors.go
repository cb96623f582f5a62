package transport

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInput is returned before storage is touched when arguments are malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRouteClosed is returned when the route is missing or not open for joining.
	ErrRouteClosed = errors.New("route is not open for joining")
	// ErrRouteNotFound is returned by route operations other than joining.
	ErrRouteNotFound = errors.New("route not found")
	// ErrRequestNotFound is returned when the transport request does not exist.
	ErrRequestNotFound = errors.New("transport request not found")
	// ErrForbidden is returned when the caller does not own the entity.
	ErrForbidden = errors.New("forbidden")
	// ErrRequestNotAvailable is returned when the request is no longer open.
	ErrRequestNotAvailable = errors.New("transport request is not available")
	// ErrCapacityExceeded is matched by *CapacityExceededError.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrAlreadyJoined is returned when the request already participates in the route.
	ErrAlreadyJoined = errors.New("request already joined this route")
	// ErrInvalidTransition is returned for a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// CapacityExceededError reports the exact remaining capacity at commit time.
type CapacityExceededError struct {
	RouteID   string
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded on route %s: requested %s, remaining %s", e.RouteID, e.Requested.String(), e.Remaining.String())
}

// Is lets errors.Is(err, ErrCapacityExceeded) match.
func (e *CapacityExceededError) Is(target error) bool {
	return target == ErrCapacityExceeded
}
