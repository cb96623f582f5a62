// Package repository declares the storage contracts the matching and
// transport services depend on. Adapters live in the sub-packages.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mamadbah2/agromarket/internal/domain/models"
)

// ErrNotFound is returned by adapters when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a conditional write lost against a concurrent change
// or violated a uniqueness constraint.
var ErrConflict = errors.New("conflict")

// FarmReader looks up farm profiles.
type FarmReader interface {
	FarmByID(ctx context.Context, farmID string) (models.Farm, error)
}

// ProductCatalog lists every catalog product in a stable order.
type ProductCatalog interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// DemandSource returns buy requests that are open and unexpired at now.
// An empty productID means every product.
type DemandSource interface {
	OpenBuyRequests(ctx context.Context, productID string, now time.Time) ([]models.BuyRequest, error)
}

// SupplySource returns planning/growing cultivations of every farm except excludeFarmID.
type SupplySource interface {
	ActiveCultivationsExcluding(ctx context.Context, excludeFarmID string) ([]models.Cultivation, error)
}

// RouteTx is the view of storage available inside a route's serialization
// boundary. Reads observe a state no concurrent join on the same route can change
// before the boundary ends.
type RouteTx interface {
	// Route returns the locked route, or ErrNotFound.
	Route(ctx context.Context) (models.TransportRoute, error)
	ParticipantsOf(ctx context.Context) ([]models.TransportRouteParticipant, error)
	Request(ctx context.Context, requestID string) (models.TransportRequest, error)
	// InsertParticipant returns ErrConflict when the (route, request) pair exists.
	InsertParticipant(ctx context.Context, p models.TransportRouteParticipant) error
	// CompareAndSetRequestStatus returns ErrConflict if the request is no longer in from.
	CompareAndSetRequestStatus(ctx context.Context, requestID string, from, to models.TransportRequestStatus) error
	// SetRouteStatus updates the locked route's status.
	SetRouteStatus(ctx context.Context, status models.RouteStatus) error
}

// TransportStore persists routes, requests and participants.
type TransportStore interface {
	// WithinRoute runs fn inside one atomic unit serialized per route. If fn
	// returns an error nothing it wrote is kept.
	WithinRoute(ctx context.Context, routeID string, fn func(tx RouteTx) error) error
	TransportRequest(ctx context.Context, requestID string) (models.TransportRequest, error)
	CompareAndSetRequestStatus(ctx context.Context, requestID string, from, to models.TransportRequestStatus) error
	// OpenRoutesBefore returns ids of open routes dated strictly before cutoff.
	OpenRoutesBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}
