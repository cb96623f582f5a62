package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names the domain events emitted after a successful commit.
type EventType string

const (
	EventParticipantJoined   EventType = "route.participant_joined"
	EventRouteClosed         EventType = "route.closed"
	EventRequestStatusChange EventType = "transport_request.status_changed"
)

// ParticipantJoinedEvent is emitted once a join has been committed.
type ParticipantJoinedEvent struct {
	Type           EventType       `json:"type"`
	ParticipantID  string          `json:"participantId"`
	RouteID        string          `json:"routeId"`
	RequestID      string          `json:"requestId"`
	FarmerID       string          `json:"farmerId"`
	AllocatedSpace decimal.Decimal `json:"allocatedSpace"`
	AgreedPrice    decimal.Decimal `json:"agreedPrice"`
	Remaining      decimal.Decimal `json:"remainingCapacity"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

// RouteClosedEvent is emitted when a route stops accepting participants.
type RouteClosedEvent struct {
	Type       EventType `json:"type"`
	RouteID    string    `json:"routeId"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

// RequestStatusChangedEvent is emitted after a transport request transition.
type RequestStatusChangedEvent struct {
	Type       EventType              `json:"type"`
	RequestID  string                 `json:"requestId"`
	From       TransportRequestStatus `json:"from"`
	To         TransportRequestStatus `json:"to"`
	OccurredAt time.Time              `json:"occurredAt"`
}
