package dto

// Plan inputs. origin_address/destination_address are accepted as aliases.
type PlanRequest struct {
	Origin             string  `json:"origin"`
	Destination        string  `json:"destination"`
	OriginAddress      string  `json:"origin_address"`
	DestinationAddress string  `json:"destination_address"`
	MaxStops           int     `json:"max_stops" validate:"gte=0,lte=50"`
	VehicleRangeKm     float64 `json:"vehicle_range_km" validate:"gte=0"`
}

// ResolvedOrigin returns Origin, falling back to OriginAddress.
func (r PlanRequest) ResolvedOrigin() string {
	if r.Origin != "" {
		return r.Origin
	}
	return r.OriginAddress
}

// ResolvedDestination returns Destination, falling back to DestinationAddress.
func (r PlanRequest) ResolvedDestination() string {
	if r.Destination != "" {
		return r.Destination
	}
	return r.DestinationAddress
}

type FuelStopResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	AlongKm float64 `json:"along_km"`
}

type PlanResponse struct {
	// [lat, lon] pairs in travel order.
	Polyline  [][2]float64       `json:"polyline"`
	TotalKm   float64            `json:"total_km"`
	FuelStops []FuelStopResponse `json:"fuel_stops"`
}
