package matching

import (
	"time"

	"github.com/mamadbah2/agromarket/internal/domain/models"
)

// CountDemand counts buy requests per product that are open and unexpired at now.
func CountDemand(requests []models.BuyRequest, now time.Time) map[string]int {
	counts := make(map[string]int)
	for _, r := range requests {
		if r.CountsAsDemand(now) {
			counts[r.ProductID]++
		}
	}
	return counts
}

// CountSaturation counts active cultivations per product on farms other than farmID.
func CountSaturation(cultivations []models.Cultivation, farmID string) map[string]int {
	counts := make(map[string]int)
	for _, c := range cultivations {
		if c.FarmID == farmID || !c.Status.Active() {
			continue
		}
		counts[c.ProductID]++
	}
	return counts
}
