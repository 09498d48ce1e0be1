package domain

// Represents a driving route returned by the routing provider.
// Points is the decoded polyline in travel order; TotalKm is the
// provider's road distance, which is usually longer than the
// great-circle length of the polyline.
type Route struct {
	Points  []Coordinates
	TotalKm float64
}

// IsEmpty reports whether the route carries no geometry.
func (r *Route) IsEmpty() bool {
	return r == nil || len(r.Points) == 0
}

// Represents a single chosen refuelling stop.
// AlongKm is the cumulative distance from the route start to the
// polyline vertex nearest the station.
type FuelStop struct {
	Station *FuelStation
	AlongKm float64
}

// Represents the fuel stops planned for one route.
// Stops are ordered by AlongKm and each station appears at most once.
// A StopPlan is computed per request and never persisted.
type StopPlan struct {
	Route Route
	Stops []FuelStop
}
