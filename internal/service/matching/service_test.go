package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agromarket/internal/domain/models"
	"github.com/mamadbah2/agromarket/internal/repository/memory"
)

type failingCatalog struct{}

func (failingCatalog) ListProducts(context.Context) ([]models.Product, error) {
	return nil, errors.New("catalog unavailable")
}

func newSeededStore() *memory.Store {
	store := memory.NewStore()
	store.PutFarm(models.Farm{ID: "farm-1", FarmerID: "u1", WaterSource: models.WaterIrrigation})
	store.PutFarm(models.Farm{ID: "farm-2", FarmerID: "u2", WaterSource: models.WaterRainOnly})
	store.PutProduct(models.Product{ID: "rice", Category: models.CategoryCrop, SuitableMonths: []int{11, 12, 1}})
	store.PutProduct(models.Product{ID: "tilapia", Category: models.CategoryAquatic})
	for _, id := range []string{"b1", "b2"} {
		store.PutBuyRequest(models.BuyRequest{ID: id, ProductID: "rice", Status: models.BuyRequestOpen, ExpiresAt: december.AddDate(0, 0, 7)})
	}
	// farm-1's own rice does not count against it.
	store.PutCultivation(models.Cultivation{ID: "c1", ProductID: "rice", FarmID: "farm-1", Status: models.CultivationGrowing})
	return store
}

func newTestService(store *memory.Store) *Service {
	svc := NewService(store, store, store, store, time.UTC, nil)
	svc.now = func() time.Time { return december }
	return svc
}

func TestService_GetRecommendations(t *testing.T) {
	svc := newTestService(newSeededStore())

	recs, err := svc.GetRecommendations(context.Background(), "farm-1")

	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "rice", recs[0].ProductID)
	assert.Equal(t, 90, recs[0].Score)
	assert.Equal(t, "tilapia", recs[1].ProductID)
	assert.Equal(t, 50, recs[1].Score)
}

func TestService_UsesConfiguredTimezoneForMonth(t *testing.T) {
	store := memory.NewStore()
	store.PutFarm(models.Farm{ID: "farm-1", WaterSource: models.WaterIrrigation})
	store.PutProduct(models.Product{ID: "rice", Category: models.CategoryCrop, SuitableMonths: []int{1}})

	loc := time.FixedZone("UTC+7", 7*3600)
	svc := NewService(store, store, store, store, loc, nil)
	// 20:00 UTC on Dec 31 is already January in UTC+7.
	svc.now = func() time.Time { return time.Date(2025, time.December, 31, 20, 0, 0, 0, time.UTC) }

	recs, err := svc.GetRecommendations(context.Background(), "farm-1")

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 70, recs[0].Score)
}

func TestService_UnknownFarm(t *testing.T) {
	svc := newTestService(newSeededStore())

	_, err := svc.GetRecommendations(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrFarmNotFound)
}

func TestService_EmptyFarmID(t *testing.T) {
	svc := newTestService(newSeededStore())

	_, err := svc.GetRecommendations(context.Background(), "")

	assert.ErrorIs(t, err, ErrInvalidFarmID)
}

func TestService_EmptyCatalogIsNotAnError(t *testing.T) {
	store := memory.NewStore()
	store.PutFarm(models.Farm{ID: "farm-1", WaterSource: models.WaterIrrigation})
	svc := newTestService(store)

	recs, err := svc.GetRecommendations(context.Background(), "farm-1")

	require.NoError(t, err)
	require.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestService_CatalogFailure(t *testing.T) {
	store := newSeededStore()
	svc := NewService(store, failingCatalog{}, store, store, time.UTC, nil)

	_, err := svc.GetRecommendations(context.Background(), "farm-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFarmNotFound)
}

func TestService_Batch(t *testing.T) {
	svc := newTestService(newSeededStore())

	out, err := svc.GetRecommendationsBatch(context.Background(), []string{"farm-1", "farm-2"})

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 90, out["farm-1"][0].Score)

	// farm-2 sees farm-1's rice as competition but one competitor is below the threshold.
	farm2 := out["farm-2"]
	require.Len(t, farm2, 2)
	assert.Equal(t, "rice", farm2[0].ProductID)
	assert.Equal(t, 90, farm2[0].Score)
	assert.Equal(t, 0, farm2[1].Score)
}

func TestService_BatchFailsOnUnknownFarm(t *testing.T) {
	svc := newTestService(newSeededStore())

	_, err := svc.GetRecommendationsBatch(context.Background(), []string{"farm-1", "ghost"})

	assert.ErrorIs(t, err, ErrFarmNotFound)
}
