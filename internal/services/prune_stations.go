package services

import (
	"context"
	"fmt"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/ports"
)

// USStateCodes lists the 50 state postal codes. DC and territories are excluded.
var USStateCodes = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

type PruneStationsResult struct {
	Deleted    int64
	Remaining  domain.StationCounts
	Duplicates []domain.AddressGroup
}

// PruneNonUSStations deletes stations outside the 50 states and reports
// the addresses still shared by more than one station.
func PruneNonUSStations(ctx context.Context, store ports.StationStore, duplicateLimit int) (PruneStationsResult, error) {
	var res PruneStationsResult

	deleted, err := store.DeleteStationsOutsideStates(ctx, USStateCodes)
	if err != nil {
		return res, fmt.Errorf("prune stations: delete outside states: %w", err)
	}
	res.Deleted = deleted

	res.Remaining, err = store.CountStations(ctx)
	if err != nil {
		return res, fmt.Errorf("prune stations: count stations: %w", err)
	}

	res.Duplicates, err = store.DuplicateAddressGroups(ctx, duplicateLimit)
	if err != nil {
		return res, fmt.Errorf("prune stations: duplicate addresses: %w", err)
	}

	return res, nil
}
