package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/ports"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultLoadBatchSize = 1000

// CSV columns of the OPIS fuel price export.
const (
	colOPISID  = "OPIS Truckstop ID"
	colName    = "Truckstop Name"
	colAddress = "Address"
	colCity    = "City"
	colState   = "State"
	colRackID  = "Rack ID"
	colPrice   = "Retail Price"
)

type LoadFuelPricesOptions struct {
	// Delete every existing station before loading.
	Clear     bool
	BatchSize int
	Logger    *zap.Logger
}

type LoadFuelPricesResult struct {
	Cleared  int64
	Inserted int
	Skipped  int
	Total    int
}

// LoadFuelPrices imports stations from an OPIS price CSV.
// Rows without a parsable retail price or with malformed integer ids are
// skipped and counted. Loaded stations have no coordinates until geocoded.
func LoadFuelPrices(ctx context.Context, r io.Reader, store ports.StationStore, opts LoadFuelPricesOptions) (LoadFuelPricesResult, error) {
	var res LoadFuelPricesResult

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultLoadBatchSize
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return res, fmt.Errorf("load fuel prices: read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\uFEFF")
		cols[strings.TrimSpace(h)] = i
	}
	if _, ok := cols[colPrice]; !ok {
		return res, fmt.Errorf("load fuel prices: missing %q column", colPrice)
	}

	if opts.Clear {
		n, err := store.DeleteAllStations(ctx)
		if err != nil {
			return res, fmt.Errorf("load fuel prices: clear stations: %w", err)
		}
		res.Cleared = n
		logger.Info("cleared existing stations", zap.Int64("rows", n))
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	flush := func(batch []*domain.FuelStation) error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.InsertStations(ctx, batch); err != nil {
			return fmt.Errorf("load fuel prices: insert batch of %d: %w", len(batch), err)
		}
		res.Inserted += len(batch)
		logger.Info("inserted station batch", zap.Int("rows", len(batch)), zap.Int("inserted", res.Inserted))
		return nil
	}

	batch := make([]*domain.FuelStation, 0, batchSize)
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return res, fmt.Errorf("load fuel prices: read line %d: %w", line, err)
		}

		s, ok := parseStationRow(rec, field)
		if !ok {
			res.Skipped++
			continue
		}

		batch = append(batch, s)
		if len(batch) >= batchSize {
			if err := flush(batch); err != nil {
				return res, err
			}
			batch = batch[:0]
		}
	}
	if err := flush(batch); err != nil {
		return res, err
	}

	counts, err := store.CountStations(ctx)
	if err != nil {
		return res, fmt.Errorf("load fuel prices: count stations: %w", err)
	}
	res.Total = counts.Total

	return res, nil
}

func parseStationRow(rec []string, field func([]string, string) string) (*domain.FuelStation, bool) {
	raw := field(rec, colPrice)
	if raw == "" {
		return nil, false
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, false
	}

	rackID, err := parseOptionalInt(field(rec, colRackID))
	if err != nil {
		return nil, false
	}
	opisID, err := parseOptionalInt(field(rec, colOPISID))
	if err != nil {
		return nil, false
	}

	return &domain.FuelStation{
		OPISTruckStopID: opisID,
		Name:            truncate(field(rec, colName), 255),
		Address:         truncate(field(rec, colAddress), 255),
		City:            truncate(field(rec, colCity), 100),
		State:           truncate(field(rec, colState), 2),
		RackID:          rackID,
		Price:           domain.RoundPrice(price),
	}, true
}

func parseOptionalInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
