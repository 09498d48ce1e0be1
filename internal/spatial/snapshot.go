package spatial

import (
	"sort"

	"github.com/tidwall/rtree"
)

// Point is a station coordinate fed to the index.
type Point struct {
	ID  int64
	Lat float64
	Lon float64
}

// Snapshot is an immutable spatial index over a fixed set of station
// coordinates. Coordinates are treated as planar degrees, so a radius is
// compared in raw degree units with no correction for longitude
// compression at higher latitudes.
//
// A Snapshot is never modified after Build returns and is safe for
// concurrent queries.
type Snapshot struct {
	tree   rtree.RTree
	coords [][2]float64
	ids    []int64
}

// Build creates a snapshot from points. An empty input yields an empty
// snapshot that answers every query with no results.
func Build(points []Point) *Snapshot {
	s := &Snapshot{
		coords: make([][2]float64, len(points)),
		ids:    make([]int64, len(points)),
	}

	// Points are stored as degenerate rectangles where min == max == [lat, lon].
	for i, p := range points {
		c := [2]float64{p.Lat, p.Lon}
		s.coords[i] = c
		s.ids[i] = p.ID
		s.tree.Insert(c, c, i)
	}

	return s
}

// Len returns the number of indexed points.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// QueryWithinRadius returns the ids of every point whose planar distance to
// (lat, lon) is at most radiusDeg, in the order the points were given to Build.
func (s *Snapshot) QueryWithinRadius(lat, lon, radiusDeg float64) []int64 {
	if s == nil || len(s.ids) == 0 || radiusDeg < 0 {
		return []int64{}
	}

	r2 := radiusDeg * radiusDeg
	var hits []int

	// The bounding box is a superset of the circle; the exact test below trims it.
	s.tree.Search(
		[2]float64{lat - radiusDeg, lon - radiusDeg},
		[2]float64{lat + radiusDeg, lon + radiusDeg},
		func(_, _ [2]float64, data interface{}) bool {
			i := data.(int)
			dLat := s.coords[i][0] - lat
			dLon := s.coords[i][1] - lon
			if dLat*dLat+dLon*dLon <= r2 {
				hits = append(hits, i)
			}
			return true
		},
	)

	sort.Ints(hits)

	out := make([]int64, 0, len(hits))
	for _, i := range hits {
		out = append(out, s.ids[i])
	}
	return out
}
