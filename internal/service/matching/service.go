package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/agromarket/internal/domain/models"
	"github.com/mamadbah2/agromarket/internal/repository"
)

// ErrFarmNotFound indicates the farm being scored does not exist.
var ErrFarmNotFound = errors.New("farm not found")

// ErrInvalidFarmID indicates an empty or malformed farm identifier.
var ErrInvalidFarmID = errors.New("invalid farm id")

const defaultBatchConcurrency = 8

// Recommender is the boundary the HTTP layer integrates against.
type Recommender interface {
	GetRecommendations(ctx context.Context, farmID string) ([]models.Recommendation, error)
	GetRecommendationsBatch(ctx context.Context, farmIDs []string) (map[string][]models.Recommendation, error)
}

// Service gathers catalog, demand and supply snapshots and scores them.
type Service struct {
	farms    repository.FarmReader
	catalog  repository.ProductCatalog
	demand   repository.DemandSource
	supply   repository.SupplySource
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a recommendation service. The current month is evaluated in loc.
func NewService(farms repository.FarmReader, catalog repository.ProductCatalog, demand repository.DemandSource, supply repository.SupplySource, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		farms:    farms,
		catalog:  catalog,
		demand:   demand,
		supply:   supply,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// GetRecommendations returns every catalog product ranked for farmID.
func (s *Service) GetRecommendations(ctx context.Context, farmID string) ([]models.Recommendation, error) {
	if farmID == "" {
		return nil, ErrInvalidFarmID
	}

	farm, err := s.farms.FarmByID(ctx, farmID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFarmNotFound, farmID)
		}
		return nil, fmt.Errorf("load farm %s: %w", farmID, err)
	}

	now := s.now().In(s.location)

	var (
		products     []models.Product
		buyRequests  []models.BuyRequest
		cultivations []models.Cultivation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.catalog.ListProducts(gctx)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		buyRequests, err = s.demand.OpenBuyRequests(gctx, "", now)
		if err != nil {
			return fmt.Errorf("load open buy requests: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cultivations, err = s.supply.ActiveCultivationsExcluding(gctx, farm.ID)
		if err != nil {
			return fmt.Errorf("load active cultivations: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load scoring snapshot", zap.String("farm_id", farmID), zap.Error(err))
		return nil, err
	}

	recs := Score(farm, products, buyRequests, cultivations, now)

	s.logger.Debug("recommendations computed",
		zap.String("farm_id", farmID),
		zap.Int("products", len(products)),
		zap.Int("open_buy_requests", len(buyRequests)),
		zap.Int("competing_cultivations", len(cultivations)))

	return recs, nil
}

// GetRecommendationsBatch scores several farms in parallel. Any failure fails the batch.
func (s *Service) GetRecommendationsBatch(ctx context.Context, farmIDs []string) (map[string][]models.Recommendation, error) {
	results := make([][]models.Recommendation, len(farmIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultBatchConcurrency)
	for i, id := range farmIDs {
		i, id := i, id
		g.Go(func() error {
			recs, err := s.GetRecommendations(gctx, id)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]models.Recommendation, len(farmIDs))
	for i, id := range farmIDs {
		out[id] = results[i]
	}
	return out, nil
}
