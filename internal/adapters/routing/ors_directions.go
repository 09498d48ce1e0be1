package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"fuel-route-service/internal/domain"
	"net/http"
	"net/url"

	"github.com/twpayne/go-polyline"
)

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Routes []struct {
		Geometry string `json:"geometry"`
		Summary  struct {
			Distance float64 `json:"distance"`
		} `json:"summary"`
	} `json:"routes"`
}

// fetchDirections requests a single driving route between two coordinates
// from /v2/directions/{profile}. Every failure wraps domain.ErrRouting.
func (o *ORSClient) fetchDirections(ctx context.Context, origin, destination domain.Coordinates) (*domain.Route, error) {
	endpoint := o.baseURL + "/v2/directions/" + url.PathEscape(o.profile)

	body, err := json.Marshal(directionsRequest{
		Coordinates: [][]float64{origin.CoordsToList(), destination.CoordsToList()},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal directions body: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	})
	if err != nil {
		return nil, fmt.Errorf("execute request: %w: %w", domain.ErrRouting, err)
	}
	defer resp.Body.Close()

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode directions response: %w: %w", domain.ErrRouting, err)
	}

	if len(decoded.Routes) == 0 {
		return nil, fmt.Errorf("no routes in response: %w", domain.ErrRouting)
	}
	r := decoded.Routes[0]
	if r.Geometry == "" {
		return nil, fmt.Errorf("route has no geometry: %w", domain.ErrRouting)
	}

	coords, _, err := polyline.DecodeCoords([]byte(r.Geometry))
	if err != nil {
		return nil, fmt.Errorf("decode route geometry: %w: %w", domain.ErrRouting, err)
	}

	points := make([]domain.Coordinates, 0, len(coords))
	for _, c := range coords {
		points = append(points, domain.Coordinates{Lat: c[0], Lon: c[1]})
	}

	return &domain.Route{
		Points:  points,
		TotalKm: r.Summary.Distance / 1000.0,
	}, nil
}
