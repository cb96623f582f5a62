package models

import "time"

// BuyRequestStatus enumerates buyer demand states.
type BuyRequestStatus string

const (
	BuyRequestOpen      BuyRequestStatus = "open"
	BuyRequestClosed    BuyRequestStatus = "closed"
	BuyRequestFulfilled BuyRequestStatus = "fulfilled"
)

// BuyRequest is a buyer's posted demand for a product.
type BuyRequest struct {
	ID        string           `json:"id"`
	ProductID string           `json:"productId"`
	BuyerID   string           `json:"buyerId"`
	Quantity  float64          `json:"quantity"`
	Status    BuyRequestStatus `json:"status"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// CountsAsDemand reports whether the request is open and unexpired at now.
func (b BuyRequest) CountsAsDemand(now time.Time) bool {
	return b.Status == BuyRequestOpen && b.ExpiresAt.After(now)
}

// CultivationStatus enumerates the lifecycle of a planted product.
type CultivationStatus string

const (
	CultivationPlanning  CultivationStatus = "planning"
	CultivationGrowing   CultivationStatus = "growing"
	CultivationHarvested CultivationStatus = "harvested"
	CultivationSold      CultivationStatus = "sold"
)

// Active reports whether the cultivation still adds to upcoming supply.
func (s CultivationStatus) Active() bool {
	return s == CultivationPlanning || s == CultivationGrowing
}

// ActiveCultivationStatuses lists the statuses counted as upcoming supply.
var ActiveCultivationStatuses = []CultivationStatus{CultivationPlanning, CultivationGrowing}

// Cultivation links a farm to a product it is growing.
type Cultivation struct {
	ID        string            `json:"id"`
	ProductID string            `json:"productId"`
	FarmID    string            `json:"farmId"`
	Status    CultivationStatus `json:"status"`
}

// Recommendation is a transient scoring result for one product.
type Recommendation struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Category    ProductCategory `json:"category,omitempty"`
	Score       int             `json:"score"`
	Reasons     []string        `json:"reasons"`
	Warnings    []string        `json:"warnings"`
}
