package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx, so the
// same store code works inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Store on a PostgreSQL database.
type Postgres struct {
	db DBTX
}

// NewPostgres creates a Postgres store over a pool or transaction.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

const propertyColumns = `id, user_id, address, lat, lon, timezone, program_goal,
	irrigation, cultivar, mower, hoc_in, state, pgr_last_gdd0, pgr_last_gdd10`

func scanProperty(row pgx.Row) (*Property, error) {
	var p Property
	err := row.Scan(&p.ID, &p.UserID, &p.Address, &p.Lat, &p.Lon, &p.Timezone,
		&p.ProgramGoal, &p.Irrigation, &p.Cultivar, &p.Mower, &p.HocIn,
		&p.State, &p.PgrLastGdd0, &p.PgrLastGdd10)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan property: %w", err)
	}
	return &p, nil
}

func (s *Postgres) CreateProperty(ctx context.Context, p *Property) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO properties (user_id, address, lat, lon, timezone, program_goal,
			irrigation, cultivar, mower, hoc_in, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		p.UserID, p.Address, p.Lat, p.Lon, p.Timezone, p.ProgramGoal,
		p.Irrigation, p.Cultivar, p.Mower, p.HocIn, p.State,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}
	return nil
}

func (s *Postgres) GetProperty(ctx context.Context, id int64) (*Property, error) {
	row := s.db.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	return scanProperty(row)
}

func (s *Postgres) ListLocatedProperties(ctx context.Context) ([]Property, error) {
	rows, err := s.db.Query(ctx, `SELECT `+propertyColumns+`
		FROM properties WHERE lat IS NOT NULL AND lon IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var out []Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Postgres) SetPGRApplied(ctx context.Context, propertyID int64, model, date string) error {
	column := "pgr_last_gdd10"
	if model == "gdd0" {
		column = "pgr_last_gdd0"
	}
	tag, err := s.db.Exec(ctx,
		fmt.Sprintf(`UPDATE properties SET %s = $1 WHERE id = $2`, column),
		date, propertyID)
	if err != nil {
		return fmt.Errorf("update pgr date: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) AddPolygon(ctx context.Context, p *Polygon) error {
	if _, err := s.GetProperty(ctx, p.PropertyID); err != nil {
		return err
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO polygons (property_id, name, geojson, area_sqft)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		p.PropertyID, p.Name, p.GeoJSON, p.AreaSqft,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert polygon: %w", err)
	}
	return nil
}

func (s *Postgres) ListPolygons(ctx context.Context, propertyID int64) ([]Polygon, error) {
	if _, err := s.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, property_id, name, geojson, area_sqft
		FROM polygons WHERE property_id = $1 ORDER BY id`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list polygons: %w", err)
	}
	defer rows.Close()

	var out []Polygon
	for rows.Next() {
		var p Polygon
		if err := rows.Scan(&p.ID, &p.PropertyID, &p.Name, &p.GeoJSON, &p.AreaSqft); err != nil {
			return nil, fmt.Errorf("scan polygon: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdatePolygon(ctx context.Context, propertyID, polygonID int64, patch PolygonPatch) (*Polygon, error) {
	var p Polygon
	err := s.db.QueryRow(ctx, `
		UPDATE polygons SET
			name = COALESCE($1, name),
			geojson = COALESCE($2, geojson),
			area_sqft = COALESCE($3, area_sqft)
		WHERE id = $4 AND property_id = $5
		RETURNING id, property_id, name, geojson, area_sqft`,
		patch.Name, patch.GeoJSON, patch.AreaSqft, polygonID, propertyID,
	).Scan(&p.ID, &p.PropertyID, &p.Name, &p.GeoJSON, &p.AreaSqft)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update polygon: %w", err)
	}
	return &p, nil
}

func (s *Postgres) DeletePolygon(ctx context.Context, propertyID, polygonID int64) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM polygons WHERE id = $1 AND property_id = $2`, polygonID, propertyID)
	if err != nil {
		return fmt.Errorf("delete polygon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const applicationColumns = `id, property_id, product_id, date, rate_value, rate_unit,
	area_sqft, carrier_gpa, tank_size_gal, gdd_model, notes, weather_snapshot, batch_id`

func scanApplication(row pgx.Row) (*Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.PropertyID, &a.ProductID, &a.Date, &a.RateValue,
		&a.RateUnit, &a.AreaSqft, &a.CarrierGPA, &a.TankSizeGal, &a.GddModel,
		&a.Notes, &a.WeatherSnapshot, &a.BatchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}
	return &a, nil
}

func (s *Postgres) InsertApplications(ctx context.Context, apps []Application) error {
	for i := range apps {
		err := s.db.QueryRow(ctx, `
			INSERT INTO applications (property_id, product_id, date, rate_value,
				rate_unit, area_sqft, carrier_gpa, tank_size_gal, gdd_model,
				notes, weather_snapshot, batch_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`,
			apps[i].PropertyID, apps[i].ProductID, apps[i].Date, apps[i].RateValue,
			apps[i].RateUnit, apps[i].AreaSqft, apps[i].CarrierGPA, apps[i].TankSizeGal,
			apps[i].GddModel, apps[i].Notes, apps[i].WeatherSnapshot, apps[i].BatchID,
		).Scan(&apps[i].ID)
		if err != nil {
			return fmt.Errorf("insert application: %w", err)
		}
	}
	return nil
}

func (s *Postgres) ListApplications(ctx context.Context, propertyID int64) ([]Application, error) {
	rows, err := s.db.Query(ctx, `SELECT `+applicationColumns+`
		FROM applications WHERE property_id = $1 ORDER BY id`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()
	return collectApplications(rows)
}

func (s *Postgres) GetApplication(ctx context.Context, id int64) (*Application, error) {
	row := s.db.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	return scanApplication(row)
}

func (s *Postgres) GetApplicationBatch(ctx context.Context, batchID string) ([]Application, error) {
	rows, err := s.db.Query(ctx, `SELECT `+applicationColumns+`
		FROM applications WHERE batch_id = $1 ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("get application batch: %w", err)
	}
	defer rows.Close()

	out, err := collectApplications(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func collectApplications(rows pgx.Rows) ([]Application, error) {
	var out []Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// NearestStation finds the closest soil-temperature station by great-circle
// distance, computed in SQL so the station table never leaves the database.
func (s *Postgres) NearestStation(ctx context.Context, lat, lon float64) (*Station, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, provider, name, lat, lon, state, has_soil_temp
		FROM stations
		WHERE has_soil_temp = true
		ORDER BY 2 * asin(sqrt(
			pow(sin(radians(lat - $1) / 2), 2) +
			cos(radians($1)) * cos(radians(lat)) *
			pow(sin(radians(lon - $2) / 2), 2)
		)) ASC
		LIMIT 1`, lat, lon)

	var st Station
	err := row.Scan(&st.ID, &st.Provider, &st.Name, &st.Lat, &st.Lon, &st.State, &st.HasSoilTemp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("nearest station: %w", err)
	}
	return &st, nil
}
