package httpapi

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/bermudabuddy/lawn-api/internal/mix"
	"github.com/bermudabuddy/lawn-api/internal/spray"
	"github.com/bermudabuddy/lawn-api/internal/store"
	"github.com/bermudabuddy/lawn-api/internal/weather"
)

var validate = validator.New()

// Deps bundles everything the HTTP handlers need.
type Deps struct {
	Weather *weather.Service
	Store   store.Store

	// GeocoderEnabled turns on address geocoding for property creation.
	GeocoderEnabled bool
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	api := app.Group("/api")

	api.Get("/weather/ok-to-spray", deps.handleOkToSpray)
	api.Get("/weather/summary", deps.handleWeatherSummary)
	api.Get("/nws/alerts", deps.handleAlerts)
	api.Post("/mix/calc", deps.handleMixCalc)

	api.Post("/properties", deps.handleCreateProperty)
	api.Get("/properties/:id", deps.handleGetProperty)
	api.Post("/properties/:id/polygons", deps.handleAddPolygon)
	api.Get("/properties/:id/polygons", deps.handleListPolygons)
	api.Put("/properties/:id/polygons/:polygonID", deps.handleUpdatePolygon)
	api.Delete("/properties/:id/polygons/:polygonID", deps.handleDeletePolygon)

	api.Post("/applications/bulk", deps.handleApplicationsBulk)
	api.Get("/properties/:id/applications", deps.handleListApplications)
	api.Get("/applications/:id", deps.handleGetApplication)
	api.Get("/application-batches/:batchID", deps.handleGetApplicationBatch)

	api.Post("/pgr/apply", deps.handlePGRApply)
}

// pointQuery holds the lat/lon/hours parameters shared by the weather endpoints.
type pointQuery struct {
	Lat   float64 `validate:"gte=-90,lte=90"`
	Lon   float64 `validate:"gte=-180,lte=180"`
	Hours int     `validate:"gte=1,lte=48"`
}

func parsePointQuery(c *fiber.Ctx, defaultHours int) (pointQuery, error) {
	var q pointQuery

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return q, errors.New("lat and lon query parameters are required")
	}

	var err error
	if q.Lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return q, fmt.Errorf("invalid lat: %w", err)
	}
	if q.Lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
		return q, fmt.Errorf("invalid lon: %w", err)
	}

	q.Hours = defaultHours
	if hoursStr := c.Query("hours"); hoursStr != "" {
		if q.Hours, err = strconv.Atoi(hoursStr); err != nil {
			return q, fmt.Errorf("invalid hours: %w", err)
		}
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// sprayRow is one table entry of the ok-to-spray response: the normalized
// hour plus its classification.
type sprayRow struct {
	weather.HourlyRow
	Status spray.Status `json:"status"`
	Rules  spray.Rules  `json:"rules"`
}

// sourceInfo labels which providers produced the data, plus the nearest
// soil-temperature station when one is known.
type sourceInfo struct {
	Provider string         `json:"provider"`
	Station  *store.Station `json:"station"`
}

func (d Deps) handleOkToSpray(c *fiber.Ctx) error {
	q, err := parsePointQuery(c, 24)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	windSource := c.Query("wind_source", weather.SourceOpenMeteo)
	if windSource != weather.SourceOpenMeteo && windSource != weather.SourceNWS {
		return fiber.NewError(fiber.StatusBadRequest, "wind_source must be openmeteo or nws")
	}

	ctx := c.UserContext()
	result := d.Weather.HourlyRows(ctx, q.Lat, q.Lon, q.Hours, windSource)

	evals := spray.ClassifyAll(result.Rows)
	table := make([]sprayRow, len(evals))
	for i, ev := range evals {
		table[i] = sprayRow{HourlyRow: ev.Row, Status: ev.Status, Rules: ev.Rules}
	}

	return c.JSON(fiber.Map{
		"source":    sourceInfo{Provider: result.Source, Station: d.nearestStation(c)},
		"table":     table,
		"ok_window": spray.FindWindow(evals),
	})
}

func (d Deps) handleWeatherSummary(c *fiber.Ctx) error {
	q, err := parsePointQuery(c, 6)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	summary := d.Weather.GetSummary(c.UserContext(), q.Lat, q.Lon, q.Hours)
	return c.JSON(fiber.Map{
		"source":   sourceInfo{Provider: summary.Source, Station: d.nearestStation(c)},
		"current":  summary.Current,
		"hourlies": summary.Hourlies,
		"alerts":   summary.Alerts,
	})
}

func (d Deps) handleAlerts(c *fiber.Ctx) error {
	q, err := parsePointQuery(c, 1)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if !d.Weather.AlertsConfigured() {
		return fiber.NewError(fiber.StatusInternalServerError, "NWS user agent is not configured")
	}

	alerts, err := d.Weather.GetAlerts(c.UserContext(), q.Lat, q.Lon)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch alerts")
	}
	return c.JSON(fiber.Map{"alerts": alerts})
}

func (d Deps) handleMixCalc(c *fiber.Ctx) error {
	var req mix.Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result, err := mix.Calc(req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(result)
}

// nearestStation resolves the closest soil-temperature station for the
// request's coordinates. Lookup failures degrade to a nil station; station
// context is never worth failing a weather request over.
func (d Deps) nearestStation(c *fiber.Ctx) *store.Station {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return nil
	}
	st, err := d.Store.NearestStation(c.UserContext(), lat, lon)
	if err != nil {
		return nil
	}
	return st
}
