package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"fuel-route-service/internal/domain"
	"net/http"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// geocodeOne resolves a normalized address with /geocode/search.
// An address with no match wraps domain.ErrAddressResolution; upstream
// failures wrap domain.ErrRouting.
func (o *ORSClient) geocodeOne(ctx context.Context, address string) (domain.Coordinates, error) {
	endpoint := o.baseURL + "/geocode/search"

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", address)
		q.Set("boundary.country", o.country)
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		var he *httpStatusError
		if errors.As(err, &he) && (he.Code == http.StatusBadRequest || he.Code == http.StatusNotFound) {
			return domain.Coordinates{}, fmt.Errorf("geocode %q: %w: %w", address, domain.ErrAddressResolution, err)
		}
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w: %w", address, domain.ErrRouting, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode geocode response: %w: %w", domain.ErrRouting, err)
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, fmt.Errorf("no geocode results for %q: %w", address, domain.ErrAddressResolution)
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		return domain.Coordinates{}, fmt.Errorf("invalid coordinate format for %q: %w", address, domain.ErrAddressResolution)
	}

	return domain.Coordinates{Lon: coords[0], Lat: coords[1]}, nil
}
