package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agromarket/internal/domain/models"
	"github.com/mamadbah2/agromarket/internal/repository"
	"github.com/mamadbah2/agromarket/internal/repository/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []interface{}
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, value)
	return p.err
}

// brokenStore fails every write so internal errors can be observed.
type brokenStore struct {
	*memory.Store
}

func (b brokenStore) WithinRoute(ctx context.Context, routeID string, fn func(tx repository.RouteTx) error) error {
	return b.Store.WithinRoute(ctx, routeID, func(tx repository.RouteTx) error {
		return fn(brokenTx{tx})
	})
}

type brokenTx struct {
	repository.RouteTx
}

func (brokenTx) InsertParticipant(context.Context, models.TransportRouteParticipant) error {
	return errors.New("disk full")
}

var routeDay = time.Date(2025, time.December, 12, 0, 0, 0, 0, time.UTC)

func seedRoute(store *memory.Store, id string, capacity string) {
	store.PutRoute(models.TransportRoute{
		ID:                id,
		DriverID:          "driver-1",
		VehicleType:       "truck",
		Date:              routeDay,
		AvailableCapacity: dec(capacity),
		PricePerKm:        dec("1.5"),
		Status:            models.RouteOpen,
	})
}

func seedRequest(store *memory.Store, id, farmer string, status models.TransportRequestStatus) {
	store.PutTransportRequest(models.TransportRequest{
		ID:        id,
		FarmerID:  farmer,
		Cargo:     "rice",
		Weight:    dec("1"),
		Status:    status,
		Shareable: true,
	})
}

func newTestService(store repository.TransportStore, pub Publisher) *Service {
	svc := NewService(store, pub, nil)
	svc.now = func() time.Time { return routeDay.Add(-48 * time.Hour) }
	n := 0
	var mu sync.Mutex
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("p-%d", n)
	}
	return svc
}

func join(svc *Service, caller, route, request, space string) (models.TransportRouteParticipant, error) {
	return svc.Join(context.Background(), JoinInput{
		CallerID:       caller,
		RouteID:        route,
		RequestID:      request,
		AllocatedSpace: dec(space),
		AgreedPrice:    dec("20"),
	})
}

func TestJoin_CapacityScenario(t *testing.T) {
	store := memory.NewStore()
	seedRoute(store, "r1", "10")
	seedRequest(store, "existing", "u0", models.RequestOpen)
	seedRequest(store, "big", "u1", models.RequestOpen)
	seedRequest(store, "fits", "u2", models.RequestOpen)
	svc := newTestService(store, nil)

	_, err := join(svc, "u0", "r1", "existing", "6")
	require.NoError(t, err)

	_, err = join(svc, "u1", "r1", "big", "5")
	require.ErrorIs(t, err, ErrCapacityExceeded)
	var capErr *CapacityExceededError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "4", capErr.Remaining.String())
	assert.Contains(t, err.Error(), "remaining 4")

	p, err := join(svc, "u2", "r1", "fits", "4")
	require.NoError(t, err)
	assert.Equal(t, "r1", p.RouteID)
	assert.Equal(t, "fits", p.RequestID)

	ledger, err := svc.Capacity(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, ledger.Remaining.IsZero())

	big, err := store.TransportRequest(context.Background(), "big")
	require.NoError(t, err)
	assert.Equal(t, models.RequestOpen, big.Status)

	fits, err := store.TransportRequest(context.Background(), "fits")
	require.NoError(t, err)
	assert.Equal(t, models.RequestMatched, fits.Status)
}

func TestJoin_PreconditionOrder(t *testing.T) {
	store := memory.NewStore()
	seedRoute(store, "open", "10")
	store.PutRoute(models.TransportRoute{ID: "closed", DriverID: "d", AvailableCapacity: dec("10"), Status: models.RouteClosed})
	seedRequest(store, "mine", "u1", models.RequestOpen)
	seedRequest(store, "cancelled", "u1", models.RequestCancelled)
	svc := newTestService(store, nil)

	tests := []struct {
		name    string
		caller  string
		route   string
		request string
		space   string
		want    error
	}{
		{"missing route", "u1", "nope", "mine", "1", ErrRouteClosed},
		{"closed route wins over missing request", "u1", "closed", "ghost", "1", ErrRouteClosed},
		{"missing request", "u1", "open", "ghost", "1", ErrRequestNotFound},
		{"not owner wins over status", "u2", "open", "cancelled", "1", ErrForbidden},
		{"request not open wins over capacity", "u1", "open", "cancelled", "99", ErrRequestNotAvailable},
		{"capacity", "u1", "open", "mine", "10.01", ErrCapacityExceeded},
		{"zero allocation", "u1", "open", "mine", "0", ErrInvalidInput},
		{"missing caller", "", "open", "mine", "1", ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := join(svc, tc.caller, tc.route, tc.request, tc.space)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Empty(t, store.Participants("open"))
}

func TestJoin_NegativePriceRejected(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store, nil)

	_, err := svc.Join(context.Background(), JoinInput{
		CallerID: "u1", RouteID: "r1", RequestID: "q1",
		AllocatedSpace: dec("1"), AgreedPrice: dec("-1"),
	})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestJoin_DuplicateAlwaysAlreadyJoined(t *testing.T) {
	store := memory.NewStore()
	seedRoute(store, "r1", "10")
	seedRequest(store, "q1", "u1", models.RequestOpen)
	svc := newTestService(store, nil)

	_, err := join(svc, "u1", "r1", "q1", "3")
	require.NoError(t, err)

	// Same allocation, and one that would no longer fit.
	_, err = join(svc, "u1", "r1", "q1", "3")
	assert.ErrorIs(t, err, ErrAlreadyJoined)
	_, err = join(svc, "u1", "r1", "q1", "9")
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	assert.Len(t, store.Participants("r1"), 1)
}

func TestJoin_ConcurrentDuplicates(t *testing.T) {
	store := memory.NewStore()
	seedRoute(store, "r1", "10")
	seedRequest(store, "q1", "u1", models.RequestOpen)
	svc := newTestService(store, nil)

	const callers = 20
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = join(svc, "u1", "r1", "q1", "2")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyJoined)
	}
	assert.Equal(t, 1, succeeded)
}

func TestJoin_ConcurrentNeverOversells(t *testing.T) {
	store := memory.NewStore()
	seedRoute(store, "r1", "10")
	const callers = 25
	for i := 0; i < callers; i++ {
		seedRequest(store, fmt.Sprintf("q%d", i), fmt.Sprintf("u%d", i), models.RequestOpen)
	}
	svc := newTestService(store, nil)

	// 25 x 0.7 = 17.5 requested against 10 available: exactly 14 fit.
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = join(svc, fmt.Sprintf("u%d", i), "r1", fmt.Sprintf("q%d", i), "0.7")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrCapacityExceeded)
	}
	assert.Equal(t, 14, succeeded)

	total := decimal.Zero
	for _, p := range store.Participants("r1") {
		total = total.Add(p.AllocatedSpace)
	}
	assert.True(t, total.LessThanOrEqual(dec("10")), "allocated %s", total)
	assert.Equal(t, "9.8", total.String())
}

func TestJoin_RequestRacingOntoTwoRoutesCommitsOnce(t *testing.T) {
	store := memory.NewStore()
	seedRoute(store, "r1", "10")
	seedRoute(store, "r2", "10")
	seedRequest(store, "q1", "u1", models.RequestOpen)
	svc := newTestService(store, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, route := range []string{"r1", "r2"} {
		wg.Add(1)
		go func(i int, route string) {
			defer wg.Done()
			_, errs[i] = join(svc, "u1", route, "q1", "1")
		}(i, route)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.ErrorIs(t, err, ErrRequestNotAvailable)
		}
	}
	assert.Equal(t, 1, failures)
	assert.Len(t, append(store.Participants("r1"), store.Participants("r2")...), 1)
}

func TestJoin_StorageFailureLeavesNoPartialState(t *testing.T) {
	store := memory.NewStore()
	seedRoute(store, "r1", "10")
	seedRequest(store, "q1", "u1", models.RequestOpen)
	svc := newTestService(brokenStore{store}, nil)

	_, err := join(svc, "u1", "r1", "q1", "1")

	require.ErrorIs(t, err, ErrInternal)
	assert.NotContains(t, err.Error(), "disk full")
	req, _ := store.TransportRequest(context.Background(), "q1")
	assert.Equal(t, models.RequestOpen, req.Status)
	assert.Empty(t, store.Participants("r1"))
}

func TestJoin_PublishesEventAndToleratesPublisherFailure(t *testing.T) {
	store := memory.NewStore()
	seedRoute(store, "r1", "10")
	seedRequest(store, "q1", "u1", models.RequestOpen)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(store, pub)

	p, err := join(svc, "u1", "r1", "q1", "2.5")

	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	event, ok := pub.events[0].(models.ParticipantJoinedEvent)
	require.True(t, ok)
	assert.Equal(t, p.ID, event.ParticipantID)
	assert.Equal(t, "7.5", event.Remaining.String())
}

func TestTransitionRequest(t *testing.T) {
	tests := []struct {
		name string
		from models.TransportRequestStatus
		to   models.TransportRequestStatus
		want error
	}{
		{"cancel open", models.RequestOpen, models.RequestCancelled, nil},
		{"cancel matched", models.RequestMatched, models.RequestCancelled, nil},
		{"start transit", models.RequestMatched, models.RequestInTransit, nil},
		{"complete", models.RequestInTransit, models.RequestCompleted, nil},
		{"cancel in transit", models.RequestInTransit, models.RequestCancelled, ErrInvalidTransition},
		{"cancel completed", models.RequestCompleted, models.RequestCancelled, ErrInvalidTransition},
		{"reopen matched", models.RequestMatched, models.RequestOpen, ErrInvalidTransition},
		{"reopen cancelled", models.RequestCancelled, models.RequestOpen, ErrInvalidTransition},
		{"cancel cancelled", models.RequestCancelled, models.RequestCancelled, ErrInvalidTransition},
		{"complete completed", models.RequestCompleted, models.RequestCompleted, ErrInvalidTransition},
		{"match outside join", models.RequestOpen, models.RequestMatched, ErrInvalidTransition},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore()
			seedRequest(store, "q1", "u1", tc.from)
			svc := newTestService(store, nil)

			got, err := svc.TransitionRequest(context.Background(), "u1", "q1", tc.to)

			stored, _ := store.TransportRequest(context.Background(), "q1")
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
				assert.Equal(t, tc.from, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, got.Status)
			assert.Equal(t, tc.to, stored.Status)
		})
	}
}

func TestTransitionRequest_TerminalStatesAreFinal(t *testing.T) {
	for _, status := range []models.TransportRequestStatus{models.RequestCompleted, models.RequestCancelled} {
		t.Run(string(status), func(t *testing.T) {
			store := memory.NewStore()
			seedRequest(store, "q1", "u1", status)
			pub := &recordingPublisher{}
			svc := newTestService(store, pub)

			_, err := svc.TransitionRequest(context.Background(), "u1", "q1", models.RequestInTransit)
			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Contains(t, err.Error(), "is "+string(status))
			assert.Empty(t, pub.events)
		})
	}
}

func TestTransitionRequest_Ownership(t *testing.T) {
	store := memory.NewStore()
	seedRequest(store, "q1", "u1", models.RequestOpen)
	svc := newTestService(store, nil)

	_, err := svc.TransitionRequest(context.Background(), "u2", "q1", models.RequestCancelled)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.TransitionRequest(context.Background(), "u1", "ghost", models.RequestCancelled)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestCloseRoute(t *testing.T) {
	store := memory.NewStore()
	seedRoute(store, "r1", "10")
	seedRequest(store, "q1", "u1", models.RequestOpen)
	pub := &recordingPublisher{}
	svc := newTestService(store, pub)

	assert.ErrorIs(t, svc.CloseRoute(context.Background(), "u1", "r1"), ErrForbidden)
	assert.ErrorIs(t, svc.CloseRoute(context.Background(), "driver-1", "ghost"), ErrRouteNotFound)
	require.NoError(t, svc.CloseRoute(context.Background(), "driver-1", "r1"))
	assert.ErrorIs(t, svc.CloseRoute(context.Background(), "driver-1", "r1"), ErrInvalidTransition)

	_, err := join(svc, "u1", "r1", "q1", "1")
	assert.ErrorIs(t, err, ErrRouteClosed)
	assert.Len(t, pub.events, 1)
}

func TestCloseExpiredRoutes(t *testing.T) {
	store := memory.NewStore()
	seedRoute(store, "today", "10")
	store.PutRoute(models.TransportRoute{ID: "yesterday", Date: routeDay.AddDate(0, 0, -1), AvailableCapacity: dec("5"), Status: models.RouteOpen})
	store.PutRoute(models.TransportRoute{ID: "old-closed", Date: routeDay.AddDate(0, 0, -3), AvailableCapacity: dec("5"), Status: models.RouteCancelled})
	svc := newTestService(store, nil)

	closed, err := svc.CloseExpiredRoutes(context.Background(), routeDay.Add(15*time.Hour))

	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	ids, err := store.OpenRoutesBefore(context.Background(), routeDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"today"}, ids)
}
