package ports

import (
	"context"
	"fuel-route-service/internal/domain"
)

// Port: read-only access to the fuel station catalog used during planning.
type StationRepository interface {
	// Return every station that has coordinates.
	ListLocatedStations(ctx context.Context) ([]*domain.FuelStation, error)
	// Return the stations with the given ids. Unknown ids are ignored;
	// the result order is unspecified.
	GetStationsByIDs(ctx context.Context, ids []int64) ([]*domain.FuelStation, error)
}

// Port: administrative access to the station catalog used by the bulk utilities.
type StationStore interface {
	StationRepository

	InsertStations(ctx context.Context, stations []*domain.FuelStation) error
	DeleteAllStations(ctx context.Context) (int64, error)
	// Return stations without coordinates, lowest id first. limit <= 0 means no limit.
	ListStationsMissingLocation(ctx context.Context, limit int) ([]*domain.FuelStation, error)
	UpdateStationLocation(ctx context.Context, id int64, c domain.Coordinates) error
	CountStations(ctx context.Context) (domain.StationCounts, error)
	DeleteStationsOutsideStates(ctx context.Context, states []string) (int64, error)
	// Return addresses shared by more than one station, largest groups first.
	DuplicateAddressGroups(ctx context.Context, limit int) ([]domain.AddressGroup, error)
}
