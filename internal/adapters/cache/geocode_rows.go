package cache

import (
	"fuel-route-service/internal/domain"
	"strings"
)

type geocodeRow struct {
	Address string  `db:"address"`
	Lon     float64 `db:"lon"`
	Lat     float64 `db:"lat"`
}

// uniqueAddresses trims, drops blanks and dedupes while keeping order.
func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	uniq := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		uniq = append(uniq, a)
	}
	return uniq
}

func rowsToCoordinates(rows []geocodeRow) map[string]domain.Coordinates {
	out := make(map[string]domain.Coordinates, len(rows))
	for _, r := range rows {
		out[r.Address] = domain.Coordinates{Lon: r.Lon, Lat: r.Lat}
	}
	return out
}
