package dto

import "time"

type NearbyStationsRequest struct {
	Lat       float64 `validate:"gte=-90,lte=90"`
	Lon       float64 `validate:"gte=-180,lte=180"`
	RadiusDeg float64 `validate:"gt=0,lte=5"`
}

type StationResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	Price   float64 `json:"price"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type ListStationsResponse struct {
	Stations []StationResponse `json:"stations"`
}

type RebuildIndexResponse struct {
	Stations int       `json:"stations"`
	BuiltAt  time.Time `json:"built_at"`
}

type HealthResponse struct {
	Status     string     `json:"status"`
	IndexReady bool       `json:"index_ready"`
	IndexBuilt *time.Time `json:"index_built_at,omitempty"`
}
