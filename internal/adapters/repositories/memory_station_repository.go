package repositories

import (
	"cmp"
	"context"
	"fuel-route-service/internal/domain"
	"slices"
	"sync"
)

// In-memory implementation of the StationStore port.
// Stored stations are copied on the way in and out so callers cannot
// mutate the catalog behind its back.
type MemoryStationRepository struct {
	mu       sync.RWMutex
	stations map[int64]*domain.FuelStation
	nextID   int64
}

func NewMemoryStationRepository(stations ...*domain.FuelStation) *MemoryStationRepository {
	m := &MemoryStationRepository{stations: make(map[int64]*domain.FuelStation)}
	_ = m.InsertStations(context.Background(), stations)
	return m
}

func cloneStation(s *domain.FuelStation) *domain.FuelStation {
	c := *s
	if s.Location != nil {
		loc := *s.Location
		c.Location = &loc
	}
	return &c
}

func (m *MemoryStationRepository) sorted(keep func(*domain.FuelStation) bool) []*domain.FuelStation {
	out := make([]*domain.FuelStation, 0, len(m.stations))
	for _, s := range m.stations {
		if keep(s) {
			out = append(out, cloneStation(s))
		}
	}
	slices.SortFunc(out, func(a, b *domain.FuelStation) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (m *MemoryStationRepository) ListLocatedStations(ctx context.Context) ([]*domain.FuelStation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sorted((*domain.FuelStation).HasLocation), nil
}

func (m *MemoryStationRepository) GetStationsByIDs(ctx context.Context, ids []int64) ([]*domain.FuelStation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.FuelStation, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.stations[id]; ok {
			out = append(out, cloneStation(s))
		}
	}
	return out, nil
}

// InsertStations stores the stations. A zero ID is assigned the next free id.
func (m *MemoryStationRepository) InsertStations(ctx context.Context, stations []*domain.FuelStation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range stations {
		if s == nil {
			continue
		}
		c := cloneStation(s)
		c.Price = domain.RoundPrice(c.Price)
		if c.ID == 0 {
			m.nextID++
			c.ID = m.nextID
		}
		m.nextID = max(m.nextID, c.ID)
		m.stations[c.ID] = c
	}
	return nil
}

func (m *MemoryStationRepository) DeleteAllStations(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.stations))
	clear(m.stations)
	return n, nil
}

// RemoveStation drops a single station. Used to simulate catalog drift.
func (m *MemoryStationRepository) RemoveStation(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.stations, id)
}

func (m *MemoryStationRepository) ListStationsMissingLocation(ctx context.Context, limit int) ([]*domain.FuelStation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.sorted(func(s *domain.FuelStation) bool { return !s.HasLocation() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStationRepository) UpdateStationLocation(ctx context.Context, id int64, c domain.Coordinates) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stations[id]
	if !ok {
		return nil
	}
	s.Location = &domain.Coordinates{Lat: c.Lat, Lon: c.Lon}
	return nil
}

// ClearStationLocation removes the coordinates of a station.
func (m *MemoryStationRepository) ClearStationLocation(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stations[id]; ok {
		s.Location = nil
	}
}

func (m *MemoryStationRepository) CountStations(ctx context.Context) (domain.StationCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var c domain.StationCounts
	for _, s := range m.stations {
		c.Total++
		if s.HasLocation() {
			c.Located++
		}
	}
	return c, nil
}

func (m *MemoryStationRepository) DeleteStationsOutsideStates(ctx context.Context, states []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, s := range m.stations {
		if !slices.Contains(states, s.State) {
			delete(m.stations, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStationRepository) DuplicateAddressGroups(ctx context.Context, limit int) ([]domain.AddressGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[domain.AddressGroup]int)
	for _, s := range m.stations {
		counts[domain.AddressGroup{Address: s.Address, City: s.City, State: s.State}]++
	}

	groups := make([]domain.AddressGroup, 0)
	for g, n := range counts {
		if n > 1 {
			g.Count = n
			groups = append(groups, g)
		}
	}
	slices.SortFunc(groups, func(a, b domain.AddressGroup) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Address, b.Address)
	})

	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}
