package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransportRequestStatus enumerates the states of a farmer's transport request.
type TransportRequestStatus string

const (
	RequestOpen      TransportRequestStatus = "open"
	RequestMatched   TransportRequestStatus = "matched"
	RequestInTransit TransportRequestStatus = "in_transit"
	RequestCompleted TransportRequestStatus = "completed"
	RequestCancelled TransportRequestStatus = "cancelled"
)

var requestTransitions = map[TransportRequestStatus][]TransportRequestStatus{
	RequestOpen:      {RequestMatched, RequestCancelled},
	RequestMatched:   {RequestInTransit, RequestCancelled},
	RequestInTransit: {RequestCompleted},
}

// ParseTransportRequestStatus validates a raw status value.
func ParseTransportRequestStatus(raw string) (TransportRequestStatus, error) {
	s := TransportRequestStatus(raw)
	switch s {
	case RequestOpen, RequestMatched, RequestInTransit, RequestCompleted, RequestCancelled:
		return s, nil
	}
	return "", fmt.Errorf("unknown transport request status %q", raw)
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Nothing ever moves back to open.
func (s TransportRequestStatus) CanTransitionTo(next TransportRequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s TransportRequestStatus) Terminal() bool {
	return len(requestTransitions[s]) == 0
}

// TransportRequest is a farmer's request to move harvested goods.
type TransportRequest struct {
	ID         string                 `json:"id"`
	FarmerID   string                 `json:"farmerId"`
	Cargo      string                 `json:"cargo"`
	Weight     decimal.Decimal        `json:"weight"`
	Status     TransportRequestStatus `json:"status"`
	PriceOffer *decimal.Decimal       `json:"priceOffer,omitempty"`
	Shareable  bool                   `json:"shareable"`
}

// RouteStatus enumerates the states of a delivery route.
type RouteStatus string

const (
	RouteOpen      RouteStatus = "open"
	RouteClosed    RouteStatus = "closed"
	RouteDeparted  RouteStatus = "departed"
	RouteCompleted RouteStatus = "completed"
	RouteCancelled RouteStatus = "cancelled"
)

// AcceptsParticipants reports whether new requests may join a route in this status.
func (s RouteStatus) AcceptsParticipants() bool {
	return s == RouteOpen
}

// TransportRoute is a driver's scheduled trip with shareable capacity.
type TransportRoute struct {
	ID                string          `json:"id"`
	DriverID          string          `json:"driverId"`
	VehicleType       string          `json:"vehicleType"`
	Date              time.Time       `json:"date"`
	AvailableCapacity decimal.Decimal `json:"availableCapacity"`
	PricePerKm        decimal.Decimal `json:"pricePerKm"`
	Status            RouteStatus     `json:"status"`
}

// TransportRouteParticipant commits one request onto one route. It is never
// updated after creation.
type TransportRouteParticipant struct {
	ID             string          `json:"participantId"`
	RouteID        string          `json:"routeId"`
	RequestID      string          `json:"requestId"`
	AllocatedSpace decimal.Decimal `json:"allocatedSpace"`
	AgreedPrice    decimal.Decimal `json:"agreedPrice"`
	CreatedAt      time.Time       `json:"createdAt"`
}
