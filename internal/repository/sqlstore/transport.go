package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mamadbah2/agromarket/internal/domain/models"
	"github.com/mamadbah2/agromarket/internal/repository"
)

// WithinRoute runs fn in a transaction whose first statement bumps the route's
// lock_version. That write takes the route row (on SQLite, the database) lock
// before any capacity read.
func (s *Store) WithinRoute(ctx context.Context, routeID string, fn func(tx repository.RouteTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&routeRow{}).
			Where("id = ?", routeID).
			UpdateColumn("lock_version", gorm.Expr("lock_version + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("lock route %s: %w", routeID, res.Error)
		}
		return fn(&routeTx{db: tx, routeID: routeID, missing: res.RowsAffected == 0})
	})
}

// TransportRequest loads a transport request.
func (s *Store) TransportRequest(ctx context.Context, requestID string) (models.TransportRequest, error) {
	return findRequest(s.db.WithContext(ctx), requestID)
}

// CompareAndSetRequestStatus moves a request from one status to another atomically.
func (s *Store) CompareAndSetRequestStatus(ctx context.Context, requestID string, from, to models.TransportRequestStatus) error {
	return compareAndSetRequest(s.db.WithContext(ctx), requestID, from, to)
}

// OpenRoutesBefore lists open routes dated before cutoff.
func (s *Store) OpenRoutesBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&routeRow{}).
		Where("status = ? AND date < ?", string(models.RouteOpen), cutoff.UTC()).
		Order("id asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list expired routes: %w", err)
	}
	return ids, nil
}

type routeTx struct {
	db      *gorm.DB
	routeID string
	missing bool
}

func (tx *routeTx) Route(_ context.Context) (models.TransportRoute, error) {
	if tx.missing {
		return models.TransportRoute{}, repository.ErrNotFound
	}
	var row routeRow
	if err := tx.db.First(&row, "id = ?", tx.routeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TransportRoute{}, repository.ErrNotFound
		}
		return models.TransportRoute{}, fmt.Errorf("find route %s: %w", tx.routeID, err)
	}
	return row.toModel(), nil
}

func (tx *routeTx) ParticipantsOf(_ context.Context) ([]models.TransportRouteParticipant, error) {
	var rows []participantRow
	if err := tx.db.Where("route_id = ?", tx.routeID).Order("created_at asc, id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list participants of %s: %w", tx.routeID, err)
	}
	out := make([]models.TransportRouteParticipant, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (tx *routeTx) Request(_ context.Context, requestID string) (models.TransportRequest, error) {
	return findRequest(tx.db, requestID)
}

func (tx *routeTx) InsertParticipant(_ context.Context, p models.TransportRouteParticipant) error {
	var n int64
	if err := tx.db.Model(&participantRow{}).
		Where("route_id = ? AND request_id = ?", p.RouteID, p.RequestID).
		Count(&n).Error; err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if n > 0 {
		return repository.ErrConflict
	}

	row := participantRow{
		ID:             p.ID,
		RouteID:        p.RouteID,
		RequestID:      p.RequestID,
		AllocatedSpace: p.AllocatedSpace,
		AgreedPrice:    p.AgreedPrice,
		CreatedAt:      p.CreatedAt.UTC(),
	}
	if err := tx.db.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (tx *routeTx) CompareAndSetRequestStatus(_ context.Context, requestID string, from, to models.TransportRequestStatus) error {
	return compareAndSetRequest(tx.db, requestID, from, to)
}

func (tx *routeTx) SetRouteStatus(_ context.Context, status models.RouteStatus) error {
	res := tx.db.Model(&routeRow{}).Where("id = ?", tx.routeID).Update("status", string(status))
	if res.Error != nil {
		return fmt.Errorf("update route %s status: %w", tx.routeID, res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func findRequest(db *gorm.DB, requestID string) (models.TransportRequest, error) {
	var row requestRow
	if err := db.First(&row, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TransportRequest{}, repository.ErrNotFound
		}
		return models.TransportRequest{}, fmt.Errorf("find transport request %s: %w", requestID, err)
	}
	return row.toModel(), nil
}

func compareAndSetRequest(db *gorm.DB, requestID string, from, to models.TransportRequestStatus) error {
	res := db.Model(&requestRow{}).
		Where("id = ? AND status = ?", requestID, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return fmt.Errorf("update transport request %s: %w", requestID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := db.Model(&requestRow{}).Where("id = ?", requestID).Count(&n).Error; err != nil {
		return fmt.Errorf("count transport request %s: %w", requestID, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}
