package transport

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/agromarket/internal/domain/models"
)

// Ledger is the capacity position of a route derived from one participant snapshot.
type Ledger struct {
	RouteID   string          `json:"routeId"`
	Capacity  decimal.Decimal `json:"availableCapacity"`
	Allocated decimal.Decimal `json:"allocated"`
	Remaining decimal.Decimal `json:"remaining"`
}

// NewLedger sums the participants of route. Participants of other routes are ignored.
func NewLedger(route models.TransportRoute, participants []models.TransportRouteParticipant) Ledger {
	allocated := decimal.Zero
	for _, p := range participants {
		if p.RouteID != route.ID {
			continue
		}
		allocated = allocated.Add(p.AllocatedSpace)
	}
	return Ledger{
		RouteID:   route.ID,
		Capacity:  route.AvailableCapacity,
		Allocated: allocated,
		Remaining: route.AvailableCapacity.Sub(allocated),
	}
}

// RemainingCapacity returns availableCapacity minus every committed allocation.
func RemainingCapacity(route models.TransportRoute, participants []models.TransportRouteParticipant) decimal.Decimal {
	return NewLedger(route, participants).Remaining
}

// Fits reports whether space can be allocated without overselling.
func (l Ledger) Fits(space decimal.Decimal) bool {
	return space.LessThanOrEqual(l.Remaining)
}
