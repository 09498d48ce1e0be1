package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Represents a single truck stop from the fuel price feed.
// Location is nil until the station address has been geocoded; only
// located stations take part in spatial queries.
type FuelStation struct {
	ID              int64
	OPISTruckStopID int64
	Name            string
	Address         string
	City            string
	State           string
	RackID          int64
	Price           decimal.Decimal
	Location        *Coordinates
}

// Prices are fixed-point with this many decimal places.
const PriceScale = 4

// RoundPrice rounds p to PriceScale decimal places (half away from zero).
func RoundPrice(p decimal.Decimal) decimal.Decimal {
	return p.Round(PriceScale)
}

// HasLocation reports whether the station has been geocoded.
func (s *FuelStation) HasLocation() bool {
	return s != nil && s.Location != nil
}

// GeocodeQuery is the free-text address sent to the geocoder.
func (s *FuelStation) GeocodeQuery() string {
	return fmt.Sprintf("%s, %s, %s, USA", s.Address, s.City, s.State)
}

// Aggregate row counts for the station catalog.
type StationCounts struct {
	Total   int
	Located int
}

// Missing is the number of stations still waiting for coordinates.
func (c StationCounts) Missing() int { return c.Total - c.Located }

// A set of stations sharing the same street address.
type AddressGroup struct {
	Address string
	City    string
	State   string
	Count   int
}
