package services

import (
	"fuel-route-service/internal/domain"
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

type candidate struct {
	station *domain.FuelStation
	price   decimal.Decimal
	alongKm float64
	used    bool
}

// PlanSegmentStops picks at most maxStops fuel stops for a route.
//
// The route's total distance is split into min(maxStops, ceil(totalKm/rangeKm))
// equal segments, resolved from the start of the route onward. Each segment
// takes its cheapest unused candidate in [segStart, segEnd), preferring the one
// nearer the start on equal prices. A segment with no candidates falls back to
// the unused candidate closest to its midpoint, cheaper first on equal
// distance; when no candidates remain the segment is skipped. Prices compare
// at domain.PriceScale decimal places.
//
// The result is ordered by along-route distance with each station at most once.
func PlanSegmentStops(
	candidates []*domain.FuelStation,
	points []domain.Coordinates,
	profile []float64,
	totalKm float64,
	rangeKm float64,
	maxStops int,
) []domain.FuelStop {
	if len(points) == 0 || len(candidates) == 0 || maxStops < 1 {
		return []domain.FuelStop{}
	}

	numSegments := maxStops
	if rangeKm > 0 {
		needed := max(1, int(math.Ceil(totalKm/rangeKm)))
		numSegments = min(maxStops, needed)
	}
	segmentWidth := totalKm / float64(numSegments)

	pool := make([]*candidate, 0, len(candidates))
	seen := make(map[int64]struct{}, len(candidates))
	for _, s := range candidates {
		if !s.HasLocation() {
			continue
		}
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		pool = append(pool, &candidate{
			station: s,
			price:   domain.RoundPrice(s.Price),
			alongKm: DistanceAlongRoute(*s.Location, points, profile),
		})
	}

	stops := make([]domain.FuelStop, 0, numSegments)
	for seg := 0; seg < numSegments; seg++ {
		segStart := float64(seg) * segmentWidth
		segEnd := float64(seg+1) * segmentWidth
		segMid := (segStart + segEnd) / 2

		pick := cheapestInSegment(pool, segStart, segEnd)
		if pick == nil {
			pick = nearestToMidpoint(pool, segMid)
		}
		if pick == nil {
			continue
		}

		pick.used = true
		stops = append(stops, domain.FuelStop{Station: pick.station, AlongKm: pick.alongKm})
	}

	slices.SortStableFunc(stops, func(a, b domain.FuelStop) int {
		switch {
		case a.AlongKm < b.AlongKm:
			return -1
		case a.AlongKm > b.AlongKm:
			return 1
		}
		return 0
	})

	return stops
}

// cheapestInSegment returns argmin (price, alongKm) over unused candidates in [start, end).
func cheapestInSegment(pool []*candidate, start, end float64) *candidate {
	var best *candidate
	for _, c := range pool {
		if c.used || c.alongKm < start || c.alongKm >= end {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		cmp := c.price.Cmp(best.price)
		if cmp < 0 || (cmp == 0 && c.alongKm < best.alongKm) {
			best = c
		}
	}
	return best
}

// nearestToMidpoint returns argmin (|alongKm - mid|, price) over all unused candidates.
func nearestToMidpoint(pool []*candidate, mid float64) *candidate {
	var best *candidate
	bestGap := math.Inf(1)
	for _, c := range pool {
		if c.used {
			continue
		}
		gap := math.Abs(c.alongKm - mid)
		if best == nil || gap < bestGap || (gap == bestGap && c.price.LessThan(best.price)) {
			best = c
			bestGap = gap
		}
	}
	return best
}
