package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/platform/obs"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// SQL implementation of the StationStore port. Queries are written with
// ? placeholders and rebound for the connected driver, so the same
// repository serves SQLite and Postgres.
type SQLStationRepository struct{ DB *sqlx.DB }

func NewSQLStationRepository(db *sqlx.DB) *SQLStationRepository {
	return &SQLStationRepository{DB: db}
}

type stationRow struct {
	ID              int64           `db:"id"`
	OPISTruckStopID int64           `db:"opis_truck_stop_id"`
	Name            string          `db:"name"`
	Address         string          `db:"address"`
	City            string          `db:"city"`
	State           string          `db:"state"`
	RackID          int64           `db:"rack_id"`
	Price           decimal.Decimal `db:"retail_price"`
	Lat             sql.NullFloat64 `db:"lat"`
	Lon             sql.NullFloat64 `db:"lon"`
}

const stationColumns = `id, opis_truck_stop_id, name, address, city, state, rack_id, retail_price, lat, lon`

func (r stationRow) toDomain() *domain.FuelStation {
	s := &domain.FuelStation{
		ID:              r.ID,
		OPISTruckStopID: r.OPISTruckStopID,
		Name:            r.Name,
		Address:         r.Address,
		City:            r.City,
		State:           r.State,
		RackID:          r.RackID,
		Price:           r.Price,
	}
	if r.Lat.Valid && r.Lon.Valid {
		s.Location = &domain.Coordinates{Lat: r.Lat.Float64, Lon: r.Lon.Float64}
	}
	return s
}

func rowFromDomain(s *domain.FuelStation) stationRow {
	r := stationRow{
		OPISTruckStopID: s.OPISTruckStopID,
		Name:            s.Name,
		Address:         s.Address,
		City:            s.City,
		State:           s.State,
		RackID:          s.RackID,
		Price:           domain.RoundPrice(s.Price),
	}
	if s.Location != nil {
		r.Lat = sql.NullFloat64{Float64: s.Location.Lat, Valid: true}
		r.Lon = sql.NullFloat64{Float64: s.Location.Lon, Valid: true}
	}
	return r
}

func (s *SQLStationRepository) selectStations(ctx context.Context, op, query string, args ...any) ([]*domain.FuelStation, error) {
	if s.DB == nil {
		return nil, errors.New("station repository: DB is nil")
	}

	var rows []stationRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: query fuel_stations table: %w", op, err)
	}

	out := make([]*domain.FuelStation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Return every station that has coordinates.
func (s *SQLStationRepository) ListLocatedStations(ctx context.Context) (_ []*domain.FuelStation, err error) {
	defer obs.Time(ctx, "stations.ListLocated")(&err)

	return s.selectStations(ctx, "list located stations", `
	SELECT `+stationColumns+`
	FROM fuel_stations
	WHERE lat IS NOT NULL AND lon IS NOT NULL
	ORDER BY id;
	`)
}

// Return the stations with the given ids.
func (s *SQLStationRepository) GetStationsByIDs(ctx context.Context, ids []int64) (_ []*domain.FuelStation, err error) {
	defer obs.Time(ctx, "stations.GetByIDs")(&err)

	if len(ids) == 0 {
		return []*domain.FuelStation{}, nil
	}

	q, args, err := sqlx.In(`
	SELECT `+stationColumns+`
	FROM fuel_stations
	WHERE id IN (?);
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("get stations by ids: expand query: %w", err)
	}

	return s.selectStations(ctx, "get stations by ids", q, args...)
}

// InsertStations stores the stations in one transaction. IDs are assigned by the database.
func (s *SQLStationRepository) InsertStations(ctx context.Context, stations []*domain.FuelStation) error {
	if s.DB == nil {
		return errors.New("station repository: DB is nil")
	}

	rows := make([]stationRow, 0, len(stations))
	for _, st := range stations {
		if st != nil {
			rows = append(rows, rowFromDomain(st))
		}
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert stations: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `
	INSERT INTO fuel_stations (
		opis_truck_stop_id, name, address, city, state, rack_id, retail_price, lat, lon
	)
	VALUES (
		:opis_truck_stop_id, :name, :address, :city, :state, :rack_id, :retail_price, :lat, :lon
	);
	`, rows)
	if err != nil {
		return fmt.Errorf("insert stations: insert %d rows: %w", len(rows), err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert stations: commit tx: %w", err)
	}

	return nil
}

func (s *SQLStationRepository) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	if s.DB == nil {
		return 0, errors.New("station repository: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, s.DB.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}

func (s *SQLStationRepository) DeleteAllStations(ctx context.Context) (int64, error) {
	return s.exec(ctx, "delete all stations", `DELETE FROM fuel_stations;`)
}

// Return stations without coordinates, lowest id first. limit <= 0 means no limit.
func (s *SQLStationRepository) ListStationsMissingLocation(ctx context.Context, limit int) ([]*domain.FuelStation, error) {
	q := `
	SELECT ` + stationColumns + `
	FROM fuel_stations
	WHERE lat IS NULL OR lon IS NULL
	ORDER BY id
	`
	if limit > 0 {
		return s.selectStations(ctx, "list stations missing location", q+" LIMIT ?;", limit)
	}
	return s.selectStations(ctx, "list stations missing location", q+";")
}

func (s *SQLStationRepository) UpdateStationLocation(ctx context.Context, id int64, c domain.Coordinates) error {
	_, err := s.exec(ctx, fmt.Sprintf("update station location id=%d", id), `
	UPDATE fuel_stations
	SET lat = ?, lon = ?
	WHERE id = ?;
	`, c.Lat, c.Lon, id)
	return err
}

func (s *SQLStationRepository) CountStations(ctx context.Context) (domain.StationCounts, error) {
	if s.DB == nil {
		return domain.StationCounts{}, errors.New("station repository: DB is nil")
	}

	var row struct {
		Total   int `db:"total"`
		Located int `db:"located"`
	}
	err := s.DB.GetContext(ctx, &row, `
	SELECT
		COUNT(*) AS total,
		COUNT(CASE WHEN lat IS NOT NULL AND lon IS NOT NULL THEN 1 END) AS located
	FROM fuel_stations;
	`)
	if err != nil {
		return domain.StationCounts{}, fmt.Errorf("count stations: %w", err)
	}

	return domain.StationCounts{Total: row.Total, Located: row.Located}, nil
}

func (s *SQLStationRepository) DeleteStationsOutsideStates(ctx context.Context, states []string) (int64, error) {
	if len(states) == 0 {
		return s.DeleteAllStations(ctx)
	}

	q, args, err := sqlx.In(`DELETE FROM fuel_stations WHERE state NOT IN (?);`, states)
	if err != nil {
		return 0, fmt.Errorf("delete stations outside states: expand query: %w", err)
	}
	return s.exec(ctx, "delete stations outside states", q, args...)
}

// Return addresses shared by more than one station, largest groups first.
func (s *SQLStationRepository) DuplicateAddressGroups(ctx context.Context, limit int) ([]domain.AddressGroup, error) {
	if s.DB == nil {
		return nil, errors.New("station repository: DB is nil")
	}

	q := `
	SELECT address, city, state, COUNT(*) AS count
	FROM fuel_stations
	GROUP BY address, city, state
	HAVING COUNT(*) > 1
	ORDER BY count DESC, address
	`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	var groups []domain.AddressGroup
	if err := s.DB.SelectContext(ctx, &groups, s.DB.Rebind(q+";"), args...); err != nil {
		return nil, fmt.Errorf("duplicate address groups: %w", err)
	}
	if groups == nil {
		groups = []domain.AddressGroup{}
	}
	return groups, nil
}
