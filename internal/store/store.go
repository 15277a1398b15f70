// Package store persists property, polygon, application and station records.
// Two implementations exist: a Postgres-backed one for production and a
// concurrency-safe in-memory one for tests and database-less development.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Property is a user's lawn: address, coordinates, and program settings.
type Property struct {
	ID          int64    `json:"id"`
	UserID      *string  `json:"user_id,omitempty"`
	Address     string   `json:"address"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	Timezone    *string  `json:"timezone,omitempty"`
	ProgramGoal *string  `json:"program_goal,omitempty"`
	Irrigation  *string  `json:"irrigation,omitempty"`
	Cultivar    *string  `json:"cultivar,omitempty"`
	Mower       *string  `json:"mower,omitempty"`
	HocIn       *float64 `json:"hoc_in,omitempty"`
	State       *string  `json:"state,omitempty"`
	// Last plant-growth-regulator application dates (ISO dates), per GDD model.
	PgrLastGdd0  *string `json:"pgr_last_gdd0,omitempty"`
	PgrLastGdd10 *string `json:"pgr_last_gdd10,omitempty"`
}

// Polygon is a named treated section of a property.
type Polygon struct {
	ID         int64    `json:"id"`
	PropertyID int64    `json:"property_id"`
	Name       string   `json:"name"`
	GeoJSON    *string  `json:"geojson,omitempty"`
	AreaSqft   *float64 `json:"area_sqft,omitempty"`
}

// PolygonPatch carries the fields of a polygon update; nil means unchanged.
type PolygonPatch struct {
	Name     *string
	GeoJSON  *string
	AreaSqft *float64
}

// Application is one logged product application. Applications created in the
// same submission share a BatchID.
type Application struct {
	ID              int64           `json:"id"`
	PropertyID      int64           `json:"property_id"`
	ProductID       string          `json:"product_id"`
	Date            string          `json:"date"`
	RateValue       float64         `json:"rate_value"`
	RateUnit        string          `json:"rate_unit"`
	AreaSqft        *float64        `json:"area_sqft,omitempty"`
	CarrierGPA      *float64        `json:"carrier_gpa,omitempty"`
	TankSizeGal     *float64        `json:"tank_size_gal,omitempty"`
	GddModel        *string         `json:"gdd_model,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	WeatherSnapshot json.RawMessage `json:"weather_snapshot,omitempty"`
	BatchID         string          `json:"batch_id"`
}

// Station is a weather station usable for soil-temperature readings.
type Station struct {
	ID          int64   `json:"id"`
	Provider    string  `json:"provider"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	State       string  `json:"state"`
	HasSoilTemp bool    `json:"has_soil_temp"`
}

// PropertyStore persists properties.
type PropertyStore interface {
	CreateProperty(ctx context.Context, p *Property) error
	GetProperty(ctx context.Context, id int64) (*Property, error)
	// ListLocatedProperties returns properties that have coordinates,
	// for forecast cache warming.
	ListLocatedProperties(ctx context.Context) ([]Property, error)
	// SetPGRApplied stamps the last PGR application date for the given
	// GDD model ("gdd0" or "gdd10").
	SetPGRApplied(ctx context.Context, propertyID int64, model, date string) error
}

// PolygonStore persists property sections.
type PolygonStore interface {
	AddPolygon(ctx context.Context, p *Polygon) error
	ListPolygons(ctx context.Context, propertyID int64) ([]Polygon, error)
	UpdatePolygon(ctx context.Context, propertyID, polygonID int64, patch PolygonPatch) (*Polygon, error)
	DeletePolygon(ctx context.Context, propertyID, polygonID int64) error
}

// ApplicationStore persists logged applications.
type ApplicationStore interface {
	InsertApplications(ctx context.Context, apps []Application) error
	ListApplications(ctx context.Context, propertyID int64) ([]Application, error)
	GetApplication(ctx context.Context, id int64) (*Application, error)
	GetApplicationBatch(ctx context.Context, batchID string) ([]Application, error)
}

// StationStore locates reference weather stations.
type StationStore interface {
	// NearestStation returns the closest station with soil-temperature
	// support, or ErrNotFound when none exists.
	NearestStation(ctx context.Context, lat, lon float64) (*Station, error)
}

// Store bundles all persistence concerns behind one interface.
type Store interface {
	PropertyStore
	PolygonStore
	ApplicationStore
	StationStore
}
