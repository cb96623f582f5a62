package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// WaterSource enumerates how a farm is supplied with water.
type WaterSource string

const (
	WaterIrrigation  WaterSource = "irrigation"
	WaterGroundwater WaterSource = "groundwater"
	WaterRainOnly    WaterSource = "rain_only"
)

// Valid reports whether the water source is one of the known values.
func (w WaterSource) Valid() bool {
	switch w {
	case WaterIrrigation, WaterGroundwater, WaterRainOnly:
		return true
	}
	return false
}

// ParseWaterSource converts a raw value into a WaterSource. "rain" and
// "rain-only" are accepted as aliases of rain_only.
func ParseWaterSource(raw string) (WaterSource, error) {
	switch raw {
	case "rain", "rain-only", "rain_only", "RAIN", "RAIN_ONLY":
		return WaterRainOnly, nil
	case "irrigation", "IRRIGATION":
		return WaterIrrigation, nil
	case "groundwater", "GROUNDWATER":
		return WaterGroundwater, nil
	}
	return "", fmt.Errorf("unknown water source %q", raw)
}

// UnmarshalJSON accepts the aliases ParseWaterSource knows and rejects
// anything else.
func (w *WaterSource) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("water source: %w", err)
	}
	parsed, err := ParseWaterSource(raw)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Farm is the farm profile consumed by the match scorer.
type Farm struct {
	ID          string      `json:"id"`
	FarmerID    string      `json:"farmerId"`
	Name        string      `json:"name"`
	Location    GeoPoint    `json:"location"`
	AreaSize    float64     `json:"areaSize"`
	WaterSource WaterSource `json:"waterSource"`
	SoilType    string      `json:"soilType"`
}

// ProductCategory enumerates catalog categories.
type ProductCategory string

const (
	CategoryCrop      ProductCategory = "crop"
	CategoryLivestock ProductCategory = "livestock"
	CategoryAquatic   ProductCategory = "aquatic"
)

// Valid reports whether the category is known.
func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryCrop, CategoryLivestock, CategoryAquatic:
		return true
	}
	return false
}

// Product is an immutable catalog entry.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category ProductCategory `json:"category"`
	// SuitableMonths holds calendar months (1-12). Empty means unknown.
	SuitableMonths []int `json:"suitableMonths,omitempty"`
}

// HasSeasonData reports whether the product carries suitable-month data.
func (p Product) HasSeasonData() bool {
	return len(p.SuitableMonths) > 0
}

// InSeason reports whether month is one of the product's suitable months.
func (p Product) InSeason(month time.Month) bool {
	for _, m := range p.SuitableMonths {
		if m == int(month) {
			return true
		}
	}
	return false
}
