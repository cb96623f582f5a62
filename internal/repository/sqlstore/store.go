// Package sqlstore implements the repository contracts on a relational database
// through gorm, using the CGO-free SQLite driver.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mamadbah2/agromarket/internal/domain/models"
	"github.com/mamadbah2/agromarket/internal/repository"
)

const busyTimeoutMillis = 5000

// Store is a gorm-backed repository.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (or creates) the SQLite database at path and migrates the schema.
// ":memory:" gives a private in-memory database.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite has a single writer; one connection also keeps ":memory:" databases alive.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis)).Error; err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := db.AutoMigrate(
		&farmRow{},
		&productRow{},
		&buyRequestRow{},
		&cultivationRow{},
		&routeRow{},
		&requestRow{},
		&participantRow{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	logger.Info("sqlite store ready", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FarmByID loads a farm profile.
func (s *Store) FarmByID(ctx context.Context, farmID string) (models.Farm, error) {
	var row farmRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", farmID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Farm{}, repository.ErrNotFound
		}
		return models.Farm{}, fmt.Errorf("find farm %s: %w", farmID, err)
	}
	return row.toModel()
}

// ListProducts returns the catalog ordered by id.
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var rows []productRow
	if err := s.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]models.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// OpenBuyRequests returns open buy requests expiring after now.
func (s *Store) OpenBuyRequests(ctx context.Context, productID string, now time.Time) ([]models.BuyRequest, error) {
	q := s.db.WithContext(ctx).Model(&buyRequestRow{}).
		Where("status = ? AND expires_at > ?", string(models.BuyRequestOpen), now.UTC())
	if productID != "" {
		q = q.Where("product_id = ?", productID)
	}

	var rows []buyRequestRow
	if err := q.Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list open buy requests: %w", err)
	}
	out := make([]models.BuyRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// ActiveCultivationsExcluding returns planning/growing cultivations of other farms.
func (s *Store) ActiveCultivationsExcluding(ctx context.Context, excludeFarmID string) ([]models.Cultivation, error) {
	statuses := make([]string, 0, len(models.ActiveCultivationStatuses))
	for _, st := range models.ActiveCultivationStatuses {
		statuses = append(statuses, string(st))
	}

	var rows []cultivationRow
	err := s.db.WithContext(ctx).
		Where("status IN ? AND farm_id <> ?", statuses, excludeFarmID).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list active cultivations: %w", err)
	}
	out := make([]models.Cultivation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
