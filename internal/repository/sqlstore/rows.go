package sqlstore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mamadbah2/agromarket/internal/domain/models"
)

type farmRow struct {
	ID          string `gorm:"primaryKey"`
	FarmerID    string `gorm:"index"`
	Name        string
	Lat         float64
	Lng         float64
	AreaSize    float64
	WaterSource string
	SoilType    string
}

func (farmRow) TableName() string { return "farms" }

type productRow struct {
	ID             string `gorm:"primaryKey"`
	Name           string
	Category       string
	SuitableMonths []int `gorm:"serializer:json"`
}

func (productRow) TableName() string { return "products" }

type buyRequestRow struct {
	ID        string `gorm:"primaryKey"`
	ProductID string `gorm:"index"`
	BuyerID   string
	Quantity  float64
	Status    string    `gorm:"index"`
	ExpiresAt time.Time `gorm:"index"`
}

func (buyRequestRow) TableName() string { return "buy_requests" }

// Times are stored as text, so they are kept in UTC for range filters to
// compare correctly.
func (r *buyRequestRow) BeforeSave(*gorm.DB) error {
	r.ExpiresAt = r.ExpiresAt.UTC()
	return nil
}

type cultivationRow struct {
	ID        string `gorm:"primaryKey"`
	ProductID string `gorm:"index"`
	FarmID    string `gorm:"index"`
	Status    string `gorm:"index"`
}

func (cultivationRow) TableName() string { return "cultivations" }

type routeRow struct {
	ID                string `gorm:"primaryKey"`
	DriverID          string `gorm:"index"`
	VehicleType       string
	Date              time.Time       `gorm:"index"`
	AvailableCapacity decimal.Decimal `gorm:"type:text"`
	PricePerKm        decimal.Decimal `gorm:"type:text"`
	Status            string          `gorm:"index"`
	LockVersion       int64           `gorm:"not null;default:0"`
}

func (routeRow) TableName() string { return "transport_routes" }

func (r *routeRow) BeforeSave(*gorm.DB) error {
	r.Date = r.Date.UTC()
	return nil
}

type requestRow struct {
	ID         string `gorm:"primaryKey"`
	FarmerID   string `gorm:"index"`
	Cargo      string
	Weight     decimal.Decimal     `gorm:"type:text"`
	Status     string              `gorm:"index"`
	PriceOffer decimal.NullDecimal `gorm:"type:text"`
	Shareable  bool
}

func (requestRow) TableName() string { return "transport_requests" }

type participantRow struct {
	ID             string          `gorm:"primaryKey"`
	RouteID        string          `gorm:"uniqueIndex:uniq_route_request"`
	RequestID      string          `gorm:"uniqueIndex:uniq_route_request"`
	AllocatedSpace decimal.Decimal `gorm:"type:text"`
	AgreedPrice    decimal.Decimal `gorm:"type:text"`
	CreatedAt      time.Time
}

func (participantRow) TableName() string { return "transport_route_participants" }

func (r *participantRow) BeforeSave(*gorm.DB) error {
	r.CreatedAt = r.CreatedAt.UTC()
	return nil
}

func (r farmRow) toModel() (models.Farm, error) {
	water, err := models.ParseWaterSource(r.WaterSource)
	if err != nil {
		return models.Farm{}, fmt.Errorf("farm %s: %w", r.ID, err)
	}
	return models.Farm{
		ID:          r.ID,
		FarmerID:    r.FarmerID,
		Name:        r.Name,
		Location:    models.GeoPoint{Lat: r.Lat, Lng: r.Lng},
		AreaSize:    r.AreaSize,
		WaterSource: water,
		SoilType:    r.SoilType,
	}, nil
}

func (r productRow) toModel() models.Product {
	return models.Product{
		ID:             r.ID,
		Name:           r.Name,
		Category:       models.ProductCategory(r.Category),
		SuitableMonths: r.SuitableMonths,
	}
}

func (r buyRequestRow) toModel() models.BuyRequest {
	return models.BuyRequest{
		ID:        r.ID,
		ProductID: r.ProductID,
		BuyerID:   r.BuyerID,
		Quantity:  r.Quantity,
		Status:    models.BuyRequestStatus(r.Status),
		ExpiresAt: r.ExpiresAt,
	}
}

func (r cultivationRow) toModel() models.Cultivation {
	return models.Cultivation{
		ID:        r.ID,
		ProductID: r.ProductID,
		FarmID:    r.FarmID,
		Status:    models.CultivationStatus(r.Status),
	}
}

func (r routeRow) toModel() models.TransportRoute {
	return models.TransportRoute{
		ID:                r.ID,
		DriverID:          r.DriverID,
		VehicleType:       r.VehicleType,
		Date:              r.Date,
		AvailableCapacity: r.AvailableCapacity,
		PricePerKm:        r.PricePerKm,
		Status:            models.RouteStatus(r.Status),
	}
}

func (r requestRow) toModel() models.TransportRequest {
	out := models.TransportRequest{
		ID:        r.ID,
		FarmerID:  r.FarmerID,
		Cargo:     r.Cargo,
		Weight:    r.Weight,
		Status:    models.TransportRequestStatus(r.Status),
		Shareable: r.Shareable,
	}
	if r.PriceOffer.Valid {
		offer := r.PriceOffer.Decimal
		out.PriceOffer = &offer
	}
	return out
}

func (r participantRow) toModel() models.TransportRouteParticipant {
	return models.TransportRouteParticipant{
		ID:             r.ID,
		RouteID:        r.RouteID,
		RequestID:      r.RequestID,
		AllocatedSpace: r.AllocatedSpace,
		AgreedPrice:    r.AgreedPrice,
		CreatedAt:      r.CreatedAt,
	}
}
