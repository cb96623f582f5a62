// Package memory is an in-process store used for local runs and tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/agromarket/internal/domain/models"
	"github.com/mamadbah2/agromarket/internal/repository"
)

type transportState struct {
	routes       map[string]models.TransportRoute
	requests     map[string]models.TransportRequest
	participants map[string][]models.TransportRouteParticipant // by route id
}

func (s transportState) clone() transportState {
	out := transportState{
		routes:       maps.Clone(s.routes),
		requests:     maps.Clone(s.requests),
		participants: make(map[string][]models.TransportRouteParticipant, len(s.participants)),
	}
	for k, v := range s.participants {
		out.participants[k] = append([]models.TransportRouteParticipant(nil), v...)
	}
	return out
}

// Store keeps every entity in maps guarded by one mutex. Route transactions
// run against a copy of the transport state that replaces the original only
// when the callback succeeds.
type Store struct {
	mu           sync.RWMutex
	farms        map[string]models.Farm
	products     []models.Product
	buyRequests  []models.BuyRequest
	cultivations []models.Cultivation
	transport    transportState
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		farms: make(map[string]models.Farm),
		transport: transportState{
			routes:       make(map[string]models.TransportRoute),
			requests:     make(map[string]models.TransportRequest),
			participants: make(map[string][]models.TransportRouteParticipant),
		},
	}
}

// PutFarm inserts or replaces a farm.
func (s *Store) PutFarm(f models.Farm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.farms[f.ID] = f
}

// PutProduct appends a product, or replaces it in place if the id exists.
func (s *Store) PutProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p
			return
		}
	}
	s.products = append(s.products, p)
}

// PutBuyRequest appends a buy request.
func (s *Store) PutBuyRequest(b models.BuyRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buyRequests = append(s.buyRequests, b)
}

// PutCultivation appends a cultivation.
func (s *Store) PutCultivation(c models.Cultivation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cultivations = append(s.cultivations, c)
}

// PutRoute inserts or replaces a route.
func (s *Store) PutRoute(r models.TransportRoute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport.routes[r.ID] = r
}

// PutTransportRequest inserts or replaces a transport request.
func (s *Store) PutTransportRequest(r models.TransportRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport.requests[r.ID] = r
}

// Participants returns a copy of the committed participants of routeID.
func (s *Store) Participants(routeID string) []models.TransportRouteParticipant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TransportRouteParticipant(nil), s.transport.participants[routeID]...)
}

// FarmByID implements repository.FarmReader.
func (s *Store) FarmByID(_ context.Context, farmID string) (models.Farm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.farms[farmID]
	if !ok {
		return models.Farm{}, repository.ErrNotFound
	}
	return f, nil
}

// ListProducts implements repository.ProductCatalog in insertion order.
func (s *Store) ListProducts(_ context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Product(nil), s.products...), nil
}

// OpenBuyRequests implements repository.DemandSource.
func (s *Store) OpenBuyRequests(_ context.Context, productID string, now time.Time) ([]models.BuyRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BuyRequest
	for _, b := range s.buyRequests {
		if productID != "" && b.ProductID != productID {
			continue
		}
		if b.CountsAsDemand(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

// ActiveCultivationsExcluding implements repository.SupplySource.
func (s *Store) ActiveCultivationsExcluding(_ context.Context, excludeFarmID string) ([]models.Cultivation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Cultivation
	for _, c := range s.cultivations {
		if c.FarmID != excludeFarmID && c.Status.Active() {
			out = append(out, c)
		}
	}
	return out, nil
}

// WithinRoute implements repository.TransportStore.
func (s *Store) WithinRoute(ctx context.Context, routeID string, fn func(tx repository.RouteTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &routeTx{routeID: routeID, state: s.transport.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.transport = tx.state
	return nil
}

// TransportRequest implements repository.TransportStore.
func (s *Store) TransportRequest(_ context.Context, requestID string) (models.TransportRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.transport.requests[requestID]
	if !ok {
		return models.TransportRequest{}, repository.ErrNotFound
	}
	return r, nil
}

// CompareAndSetRequestStatus implements repository.TransportStore.
func (s *Store) CompareAndSetRequestStatus(_ context.Context, requestID string, from, to models.TransportRequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return compareAndSet(s.transport.requests, requestID, from, to)
}

// OpenRoutesBefore implements repository.TransportStore.
func (s *Store) OpenRoutesBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, r := range s.transport.routes {
		if r.Status == models.RouteOpen && r.Date.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type routeTx struct {
	routeID string
	state   transportState
}

func (tx *routeTx) Route(_ context.Context) (models.TransportRoute, error) {
	r, ok := tx.state.routes[tx.routeID]
	if !ok {
		return models.TransportRoute{}, repository.ErrNotFound
	}
	return r, nil
}

func (tx *routeTx) ParticipantsOf(_ context.Context) ([]models.TransportRouteParticipant, error) {
	return append([]models.TransportRouteParticipant(nil), tx.state.participants[tx.routeID]...), nil
}

func (tx *routeTx) Request(_ context.Context, requestID string) (models.TransportRequest, error) {
	r, ok := tx.state.requests[requestID]
	if !ok {
		return models.TransportRequest{}, repository.ErrNotFound
	}
	return r, nil
}

func (tx *routeTx) InsertParticipant(_ context.Context, p models.TransportRouteParticipant) error {
	for _, existing := range tx.state.participants[p.RouteID] {
		if existing.RequestID == p.RequestID {
			return repository.ErrConflict
		}
	}
	tx.state.participants[p.RouteID] = append(tx.state.participants[p.RouteID], p)
	return nil
}

func (tx *routeTx) CompareAndSetRequestStatus(_ context.Context, requestID string, from, to models.TransportRequestStatus) error {
	return compareAndSet(tx.state.requests, requestID, from, to)
}

func (tx *routeTx) SetRouteStatus(_ context.Context, status models.RouteStatus) error {
	r, ok := tx.state.routes[tx.routeID]
	if !ok {
		return repository.ErrNotFound
	}
	r.Status = status
	tx.state.routes[tx.routeID] = r
	return nil
}

func compareAndSet(requests map[string]models.TransportRequest, requestID string, from, to models.TransportRequestStatus) error {
	r, ok := requests[requestID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.Status != from {
		return repository.ErrConflict
	}
	r.Status = to
	requests[requestID] = r
	return nil
}
