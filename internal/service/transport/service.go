package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/agromarket/internal/domain/models"
	"github.com/mamadbah2/agromarket/internal/repository"
)

// ErrInternal is surfaced for storage failures. Details are logged, not returned.
var ErrInternal = errors.New("internal error")

// Publisher emits domain events after a commit.
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// Coordinator is the boundary the HTTP layer integrates against.
type Coordinator interface {
	Join(ctx context.Context, in JoinInput) (models.TransportRouteParticipant, error)
	Capacity(ctx context.Context, routeID string) (Ledger, error)
	TransitionRequest(ctx context.Context, callerID, requestID string, next models.TransportRequestStatus) (models.TransportRequest, error)
	CloseRoute(ctx context.Context, callerID, routeID string) error
}

// JoinInput carries a request to share a route.
type JoinInput struct {
	CallerID       string
	RouteID        string
	RequestID      string
	AllocatedSpace decimal.Decimal
	AgreedPrice    decimal.Decimal
}

func (in JoinInput) validate() error {
	switch {
	case in.CallerID == "":
		return fmt.Errorf("%w: caller id is required", ErrInvalidInput)
	case in.RouteID == "":
		return fmt.Errorf("%w: route id is required", ErrInvalidInput)
	case in.RequestID == "":
		return fmt.Errorf("%w: request id is required", ErrInvalidInput)
	case !in.AllocatedSpace.IsPositive():
		return fmt.Errorf("%w: allocated space must be greater than zero", ErrInvalidInput)
	case in.AgreedPrice.IsNegative():
		return fmt.Errorf("%w: agreed price must not be negative", ErrInvalidInput)
	}
	return nil
}

// Service allocates route capacity and drives transport request state.
type Service struct {
	store     repository.TransportStore
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewService wires a transport service. publisher may be nil.
func NewService(store repository.TransportStore, publisher Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Join commits the request onto the route if every precondition holds. The
// capacity check and both writes happen inside the route's serialization boundary.
func (s *Service) Join(ctx context.Context, in JoinInput) (models.TransportRouteParticipant, error) {
	if err := in.validate(); err != nil {
		return models.TransportRouteParticipant{}, err
	}

	var (
		participant models.TransportRouteParticipant
		remaining   decimal.Decimal
		farmerID    string
	)

	err := s.store.WithinRoute(ctx, in.RouteID, func(tx repository.RouteTx) error {
		route, err := tx.Route(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: route %s does not exist", ErrRouteClosed, in.RouteID)
			}
			return fmt.Errorf("load route: %w", err)
		}
		if !route.Status.AcceptsParticipants() {
			return fmt.Errorf("%w: route %s is %s", ErrRouteClosed, route.ID, route.Status)
		}

		req, err := tx.Request(ctx, in.RequestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrRequestNotFound, in.RequestID)
			}
			return fmt.Errorf("load request: %w", err)
		}
		if req.FarmerID != in.CallerID {
			return ErrForbidden
		}

		participants, err := tx.ParticipantsOf(ctx)
		if err != nil {
			return fmt.Errorf("load participants: %w", err)
		}
		joined := hasRequest(participants, req.ID)

		if req.Status != models.RequestOpen {
			// A request that left open because it joined this very route is a duplicate join.
			if joined {
				return ErrAlreadyJoined
			}
			return fmt.Errorf("%w: request %s is %s", ErrRequestNotAvailable, req.ID, req.Status)
		}

		ledger := NewLedger(route, participants)
		if !ledger.Fits(in.AllocatedSpace) {
			return &CapacityExceededError{RouteID: route.ID, Requested: in.AllocatedSpace, Remaining: ledger.Remaining}
		}
		if joined {
			return ErrAlreadyJoined
		}

		participant = models.TransportRouteParticipant{
			ID:             s.newID(),
			RouteID:        route.ID,
			RequestID:      req.ID,
			AllocatedSpace: in.AllocatedSpace,
			AgreedPrice:    in.AgreedPrice,
			CreatedAt:      s.now().UTC(),
		}
		if err := tx.InsertParticipant(ctx, participant); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrAlreadyJoined
			}
			return fmt.Errorf("insert participant: %w", err)
		}
		if err := tx.CompareAndSetRequestStatus(ctx, req.ID, models.RequestOpen, models.RequestMatched); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: request %s changed concurrently", ErrRequestNotAvailable, req.ID)
			}
			return fmt.Errorf("mark request matched: %w", err)
		}

		remaining = ledger.Remaining.Sub(in.AllocatedSpace)
		farmerID = req.FarmerID
		return nil
	})
	if err != nil {
		if isRejection(err) {
			s.logger.Info("join rejected",
				zap.String("route_id", in.RouteID),
				zap.String("request_id", in.RequestID),
				zap.String("allocated_space", in.AllocatedSpace.String()),
				zap.Error(err))
			return models.TransportRouteParticipant{}, err
		}
		s.logger.Error("join route failed",
			zap.String("route_id", in.RouteID),
			zap.String("request_id", in.RequestID),
			zap.String("allocated_space", in.AllocatedSpace.String()),
			zap.String("agreed_price", in.AgreedPrice.String()),
			zap.Error(err))
		return models.TransportRouteParticipant{}, fmt.Errorf("%w: join route %s", ErrInternal, in.RouteID)
	}

	s.logger.Info("participant joined route",
		zap.String("participant_id", participant.ID),
		zap.String("route_id", participant.RouteID),
		zap.String("request_id", participant.RequestID),
		zap.String("remaining", remaining.String()))

	s.publish(ctx, participant.RouteID, models.ParticipantJoinedEvent{
		Type:           models.EventParticipantJoined,
		ParticipantID:  participant.ID,
		RouteID:        participant.RouteID,
		RequestID:      participant.RequestID,
		FarmerID:       farmerID,
		AllocatedSpace: participant.AllocatedSpace,
		AgreedPrice:    participant.AgreedPrice,
		Remaining:      remaining,
		OccurredAt:     participant.CreatedAt,
	})

	return participant, nil
}

// Capacity returns the route's ledger read inside its serialization boundary.
func (s *Service) Capacity(ctx context.Context, routeID string) (Ledger, error) {
	if routeID == "" {
		return Ledger{}, fmt.Errorf("%w: route id is required", ErrInvalidInput)
	}

	var ledger Ledger
	err := s.store.WithinRoute(ctx, routeID, func(tx repository.RouteTx) error {
		route, err := tx.Route(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrRouteNotFound, routeID)
			}
			return err
		}
		participants, err := tx.ParticipantsOf(ctx)
		if err != nil {
			return err
		}
		ledger = NewLedger(route, participants)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			return Ledger{}, err
		}
		s.logger.Error("read route capacity failed", zap.String("route_id", routeID), zap.Error(err))
		return Ledger{}, fmt.Errorf("%w: read capacity of route %s", ErrInternal, routeID)
	}
	return ledger, nil
}

// TransitionRequest moves a request the caller owns to next. Matching only
// happens through Join, so next may not be matched.
func (s *Service) TransitionRequest(ctx context.Context, callerID, requestID string, next models.TransportRequestStatus) (models.TransportRequest, error) {
	if callerID == "" || requestID == "" {
		return models.TransportRequest{}, fmt.Errorf("%w: caller id and request id are required", ErrInvalidInput)
	}

	req, err := s.store.TransportRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.TransportRequest{}, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
		}
		s.logger.Error("load transport request failed", zap.String("request_id", requestID), zap.Error(err))
		return models.TransportRequest{}, fmt.Errorf("%w: load request %s", ErrInternal, requestID)
	}
	if req.FarmerID != callerID {
		return models.TransportRequest{}, ErrForbidden
	}
	if req.Status.Terminal() {
		return models.TransportRequest{}, fmt.Errorf("%w: request %s is %s", ErrInvalidTransition, req.ID, req.Status)
	}
	if next == models.RequestMatched || !req.Status.CanTransitionTo(next) {
		return models.TransportRequest{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, next)
	}

	if err := s.store.CompareAndSetRequestStatus(ctx, req.ID, req.Status, next); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return models.TransportRequest{}, fmt.Errorf("%w: request %s changed concurrently", ErrInvalidTransition, req.ID)
		}
		s.logger.Error("update transport request status failed",
			zap.String("request_id", req.ID),
			zap.String("from", string(req.Status)),
			zap.String("to", string(next)),
			zap.Error(err))
		return models.TransportRequest{}, fmt.Errorf("%w: update request %s", ErrInternal, req.ID)
	}

	from := req.Status
	req.Status = next
	s.publish(ctx, req.ID, models.RequestStatusChangedEvent{
		Type:       models.EventRequestStatusChange,
		RequestID:  req.ID,
		From:       from,
		To:         next,
		OccurredAt: s.now().UTC(),
	})
	return req, nil
}

// CloseRoute stops a route from accepting participants. Only its driver may close it.
func (s *Service) CloseRoute(ctx context.Context, callerID, routeID string) error {
	if callerID == "" || routeID == "" {
		return fmt.Errorf("%w: caller id and route id are required", ErrInvalidInput)
	}

	err := s.store.WithinRoute(ctx, routeID, func(tx repository.RouteTx) error {
		route, err := tx.Route(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrRouteNotFound, routeID)
			}
			return err
		}
		if route.DriverID != callerID {
			return ErrForbidden
		}
		if route.Status != models.RouteOpen {
			return fmt.Errorf("%w: route %s is %s", ErrInvalidTransition, route.ID, route.Status)
		}
		return tx.SetRouteStatus(ctx, models.RouteClosed)
	})
	if err != nil {
		if isRejection(err) {
			return err
		}
		s.logger.Error("close route failed", zap.String("route_id", routeID), zap.Error(err))
		return fmt.Errorf("%w: close route %s", ErrInternal, routeID)
	}

	s.publish(ctx, routeID, models.RouteClosedEvent{
		Type:       models.EventRouteClosed,
		RouteID:    routeID,
		Reason:     "closed by driver",
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// CloseExpiredRoutes closes every open route dated before the day of now and
// returns how many were closed. It keeps going past individual failures.
func (s *Service) CloseExpiredRoutes(ctx context.Context, now time.Time) (int, error) {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	ids, err := s.store.OpenRoutesBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list expired routes: %w", err)
	}

	var (
		closed   int
		firstErr error
	)
	for _, id := range ids {
		changed := false
		err := s.store.WithinRoute(ctx, id, func(tx repository.RouteTx) error {
			route, err := tx.Route(ctx)
			if err != nil {
				return err
			}
			if route.Status != models.RouteOpen {
				return nil
			}
			changed = true
			return tx.SetRouteStatus(ctx, models.RouteClosed)
		})
		if err != nil {
			s.logger.Error("failed to close expired route", zap.String("route_id", id), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !changed {
			continue
		}
		closed++
		s.publish(ctx, id, models.RouteClosedEvent{
			Type:       models.EventRouteClosed,
			RouteID:    id,
			Reason:     "route date passed",
			OccurredAt: s.now().UTC(),
		})
	}

	return closed, firstErr
}

func (s *Service) publish(ctx context.Context, key string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("key", key), zap.Error(err))
	}
}

func hasRequest(participants []models.TransportRouteParticipant, requestID string) bool {
	for _, p := range participants {
		if p.RequestID == requestID {
			return true
		}
	}
	return false
}

var rejections = []error{
	ErrInvalidInput,
	ErrRouteClosed,
	ErrRouteNotFound,
	ErrRequestNotFound,
	ErrForbidden,
	ErrRequestNotAvailable,
	ErrCapacityExceeded,
	ErrAlreadyJoined,
	ErrInvalidTransition,
}

// isRejection reports whether err is a business outcome rather than a failure.
func isRejection(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
