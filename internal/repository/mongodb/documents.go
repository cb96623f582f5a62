package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/agromarket/internal/domain/models"
)

type farmDoc struct {
	ID          string          `bson:"_id"`
	FarmerID    string          `bson:"farmer_id"`
	Name        string          `bson:"name"`
	Location    models.GeoPoint `bson:"location"`
	AreaSize    float64         `bson:"area_size"`
	WaterSource string          `bson:"water_source"`
	SoilType    string          `bson:"soil_type"`
}

func (d farmDoc) toModel() (models.Farm, error) {
	water, err := models.ParseWaterSource(d.WaterSource)
	if err != nil {
		return models.Farm{}, fmt.Errorf("farm %s: %w", d.ID, err)
	}
	return models.Farm{
		ID:          d.ID,
		FarmerID:    d.FarmerID,
		Name:        d.Name,
		Location:    d.Location,
		AreaSize:    d.AreaSize,
		WaterSource: water,
		SoilType:    d.SoilType,
	}, nil
}

type productDoc struct {
	ID             string `bson:"_id"`
	Name           string `bson:"name"`
	Category       string `bson:"category"`
	SuitableMonths []int  `bson:"suitable_months,omitempty"`
}

func (d productDoc) toModel() models.Product {
	return models.Product{
		ID:             d.ID,
		Name:           d.Name,
		Category:       models.ProductCategory(d.Category),
		SuitableMonths: d.SuitableMonths,
	}
}

type buyRequestDoc struct {
	ID        string    `bson:"_id"`
	ProductID string    `bson:"product_id"`
	BuyerID   string    `bson:"buyer_id"`
	Quantity  float64   `bson:"quantity"`
	Status    string    `bson:"status"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func (d buyRequestDoc) toModel() models.BuyRequest {
	return models.BuyRequest{
		ID:        d.ID,
		ProductID: d.ProductID,
		BuyerID:   d.BuyerID,
		Quantity:  d.Quantity,
		Status:    models.BuyRequestStatus(d.Status),
		ExpiresAt: d.ExpiresAt,
	}
}

type cultivationDoc struct {
	ID        string `bson:"_id"`
	ProductID string `bson:"product_id"`
	FarmID    string `bson:"farm_id"`
	Status    string `bson:"status"`
}

func (d cultivationDoc) toModel() models.Cultivation {
	return models.Cultivation{
		ID:        d.ID,
		ProductID: d.ProductID,
		FarmID:    d.FarmID,
		Status:    models.CultivationStatus(d.Status),
	}
}

type routeDoc struct {
	ID                string               `bson:"_id"`
	DriverID          string               `bson:"driver_id"`
	VehicleType       string               `bson:"vehicle_type"`
	Date              time.Time            `bson:"date"`
	AvailableCapacity primitive.Decimal128 `bson:"available_capacity"`
	PricePerKm        primitive.Decimal128 `bson:"price_per_km"`
	Status            string               `bson:"status"`
	LockVersion       int64                `bson:"lock_version"`
}

func (d routeDoc) toModel() (models.TransportRoute, error) {
	capacity, err := fromDecimal128(d.AvailableCapacity)
	if err != nil {
		return models.TransportRoute{}, fmt.Errorf("route %s capacity: %w", d.ID, err)
	}
	price, err := fromDecimal128(d.PricePerKm)
	if err != nil {
		return models.TransportRoute{}, fmt.Errorf("route %s price: %w", d.ID, err)
	}
	return models.TransportRoute{
		ID:                d.ID,
		DriverID:          d.DriverID,
		VehicleType:       d.VehicleType,
		Date:              d.Date,
		AvailableCapacity: capacity,
		PricePerKm:        price,
		Status:            models.RouteStatus(d.Status),
	}, nil
}

type requestDoc struct {
	ID         string                `bson:"_id"`
	FarmerID   string                `bson:"farmer_id"`
	Cargo      string                `bson:"cargo"`
	Weight     primitive.Decimal128  `bson:"weight"`
	Status     string                `bson:"status"`
	PriceOffer *primitive.Decimal128 `bson:"price_offer,omitempty"`
	Shareable  bool                  `bson:"shareable"`
}

func (d requestDoc) toModel() (models.TransportRequest, error) {
	weight, err := fromDecimal128(d.Weight)
	if err != nil {
		return models.TransportRequest{}, fmt.Errorf("request %s weight: %w", d.ID, err)
	}
	out := models.TransportRequest{
		ID:        d.ID,
		FarmerID:  d.FarmerID,
		Cargo:     d.Cargo,
		Weight:    weight,
		Status:    models.TransportRequestStatus(d.Status),
		Shareable: d.Shareable,
	}
	if d.PriceOffer != nil {
		offer, err := fromDecimal128(*d.PriceOffer)
		if err != nil {
			return models.TransportRequest{}, fmt.Errorf("request %s price offer: %w", d.ID, err)
		}
		out.PriceOffer = &offer
	}
	return out, nil
}

type participantDoc struct {
	ID             string               `bson:"_id"`
	RouteID        string               `bson:"route_id"`
	RequestID      string               `bson:"request_id"`
	AllocatedSpace primitive.Decimal128 `bson:"allocated_space"`
	AgreedPrice    primitive.Decimal128 `bson:"agreed_price"`
	CreatedAt      time.Time            `bson:"created_at"`
}

func newParticipantDoc(p models.TransportRouteParticipant) (participantDoc, error) {
	space, err := toDecimal128(p.AllocatedSpace)
	if err != nil {
		return participantDoc{}, err
	}
	price, err := toDecimal128(p.AgreedPrice)
	if err != nil {
		return participantDoc{}, err
	}
	return participantDoc{
		ID:             p.ID,
		RouteID:        p.RouteID,
		RequestID:      p.RequestID,
		AllocatedSpace: space,
		AgreedPrice:    price,
		CreatedAt:      p.CreatedAt,
	}, nil
}

func (d participantDoc) toModel() (models.TransportRouteParticipant, error) {
	space, err := fromDecimal128(d.AllocatedSpace)
	if err != nil {
		return models.TransportRouteParticipant{}, fmt.Errorf("participant %s space: %w", d.ID, err)
	}
	price, err := fromDecimal128(d.AgreedPrice)
	if err != nil {
		return models.TransportRouteParticipant{}, fmt.Errorf("participant %s price: %w", d.ID, err)
	}
	return models.TransportRouteParticipant{
		ID:             d.ID,
		RouteID:        d.RouteID,
		RequestID:      d.RequestID,
		AllocatedSpace: space,
		AgreedPrice:    price,
		CreatedAt:      d.CreatedAt,
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	out, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d.String(), err)
	}
	return out, nil
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}
