package matching

import (
	"fmt"
	"sort"
	"time"

	"github.com/mamadbah2/agromarket/internal/domain/models"
)

const (
	baseScore          = 50
	seasonBonus        = 20
	demandPerRequest   = 10
	maxDemandBonus     = 30
	oversupplyLimit    = 5
	oversupplyPenalty  = 30
	waterRiskPenalty   = 50
	minScore, maxScore = 0, 100
)

// Score ranks products for farm. It only reads its arguments, so it is safe to
// call concurrently. Products with equal scores keep their input order.
func Score(farm models.Farm, products []models.Product, openBuyRequests []models.BuyRequest, activeCultivations []models.Cultivation, now time.Time) []models.Recommendation {
	demand := CountDemand(openBuyRequests, now)
	saturation := CountSaturation(activeCultivations, farm.ID)

	out := make([]models.Recommendation, 0, len(products))
	for _, p := range products {
		out = append(out, scoreProduct(farm, p, demand[p.ID], saturation[p.ID], now.Month()))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func scoreProduct(farm models.Farm, p models.Product, demandCount, competitorCount int, month time.Month) models.Recommendation {
	rec := models.Recommendation{
		ProductID:   p.ID,
		ProductName: p.Name,
		Category:    p.Category,
		Reasons:     []string{},
		Warnings:    []string{},
	}

	score := baseScore

	if p.HasSeasonData() && p.InSeason(month) {
		score += seasonBonus
		rec.Reasons = append(rec.Reasons, "in season")
	}

	if demandCount > 0 {
		score += min(demandCount*demandPerRequest, maxDemandBonus)
		rec.Reasons = append(rec.Reasons, fmt.Sprintf("%d open buy requests", demandCount))
	}

	if competitorCount > oversupplyLimit {
		score -= oversupplyPenalty
		rec.Warnings = append(rec.Warnings, fmt.Sprintf("oversupply risk: %d other farms are already cultivating this product", competitorCount))
	}

	if p.Category == models.CategoryAquatic && farm.WaterSource == models.WaterRainOnly {
		score -= waterRiskPenalty
		rec.Warnings = append(rec.Warnings, "not suitable: aquatic products need a permanent water source and this farm relies on rain only")
	}

	rec.Score = max(minScore, min(score, maxScore))
	return rec
}
