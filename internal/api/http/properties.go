package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kelvins/geocoder"

	"github.com/bermudabuddy/lawn-api/internal/mix"
	"github.com/bermudabuddy/lawn-api/internal/store"
)

type propertyCreateRequest struct {
	Address     string   `json:"address" validate:"required"`
	State       *string  `json:"state"`
	ProgramGoal *string  `json:"program_goal"`
	Irrigation  *string  `json:"irrigation"`
	Mower       *string  `json:"mower"`
	HocIn       *float64 `json:"hoc_in"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	Timezone    *string  `json:"timezone"`
}

func (d Deps) handleCreateProperty(c *fiber.Ctx) error {
	var req propertyCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	p := store.Property{
		Address:     req.Address,
		State:       req.State,
		ProgramGoal: req.ProgramGoal,
		Irrigation:  req.Irrigation,
		Mower:       req.Mower,
		HocIn:       req.HocIn,
		Lat:         req.Lat,
		Lon:         req.Lon,
		Timezone:    req.Timezone,
	}

	// Fill coordinates from the address when the client did not supply them.
	// A geocoding failure is not worth failing onboarding over.
	if p.Lat == nil && p.Lon == nil && d.GeocoderEnabled {
		addr := geocoder.Address{Street: req.Address}
		if req.State != nil {
			addr.State = *req.State
		}
		loc, err := geocoder.Geocoding(addr)
		if err != nil {
			log.Printf("geocoding failed for %q: %v", req.Address, err)
		} else {
			p.Lat = &loc.Latitude
			p.Lon = &loc.Longitude
		}
	}

	if err := d.Store.CreateProperty(c.UserContext(), &p); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create property")
	}
	return c.JSON(fiber.Map{"id": p.ID, "address": p.Address, "state": p.State})
}

func (d Deps) handleGetProperty(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid property id")
	}

	p, err := d.Store.GetProperty(c.UserContext(), int64(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "property not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch property")
	}
	return c.JSON(p)
}

type polygonCreateRequest struct {
	Name     string   `json:"name" validate:"required"`
	GeoJSON  *string  `json:"geojson"`
	AreaSqft *float64 `json:"area_sqft"`
}

func (d Deps) handleAddPolygon(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid property id")
	}

	var req polygonCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	poly := store.Polygon{
		PropertyID: int64(id),
		Name:       req.Name,
		GeoJSON:    req.GeoJSON,
		AreaSqft:   req.AreaSqft,
	}
	if err := d.Store.AddPolygon(c.UserContext(), &poly); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "property not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to add polygon")
	}
	return c.JSON(fiber.Map{"id": poly.ID, "property_id": poly.PropertyID, "area_sqft": poly.AreaSqft})
}

func (d Deps) handleListPolygons(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid property id")
	}

	polys, err := d.Store.ListPolygons(c.UserContext(), int64(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "property not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list polygons")
	}
	if polys == nil {
		polys = []store.Polygon{}
	}
	return c.JSON(polys)
}

type polygonUpdateRequest struct {
	Name     *string  `json:"name"`
	GeoJSON  *string  `json:"geojson"`
	AreaSqft *float64 `json:"area_sqft"`
}

func (d Deps) handleUpdatePolygon(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid property id")
	}
	polygonID, err := c.ParamsInt("polygonID")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid polygon id")
	}

	var req polygonUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	patch := store.PolygonPatch{Name: req.Name, GeoJSON: req.GeoJSON, AreaSqft: req.AreaSqft}
	poly, err := d.Store.UpdatePolygon(c.UserContext(), int64(id), int64(polygonID), patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "polygon not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to update polygon")
	}
	return c.JSON(poly)
}

func (d Deps) handleDeletePolygon(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid property id")
	}
	polygonID, err := c.ParamsInt("polygonID")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid polygon id")
	}

	if err := d.Store.DeletePolygon(c.UserContext(), int64(id), int64(polygonID)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "polygon not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to delete polygon")
	}
	return c.JSON(fiber.Map{"ok": true})
}

type applicationItem struct {
	ProductID string  `json:"product_id" validate:"required"`
	RateValue float64 `json:"rate_value" validate:"required,gt=0"`
	RateUnit  string  `json:"rate_unit" validate:"required"`
}

type applicationsBulkRequest struct {
	PropertyID  int64             `json:"property_id" validate:"required"`
	Date        *string           `json:"date"`
	AreaSqft    *float64          `json:"area_sqft"`
	CarrierGPA  *float64          `json:"carrier_gpa"`
	TankSizeGal *float64          `json:"tank_size_gal"`
	GddModel    *string           `json:"gdd_model"`
	Notes       *string           `json:"notes"`
	Items       []applicationItem `json:"items" validate:"required,min=1,dive"`
}

func (d Deps) handleApplicationsBulk(c *fiber.Ctx) error {
	var req applicationsBulkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	for _, item := range req.Items {
		if _, err := mix.ParseRateUnit(item.RateUnit); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	ctx := c.UserContext()
	prop, err := d.Store.GetProperty(ctx, req.PropertyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "property not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch property")
	}

	date := time.Now().UTC().Format("2006-01-02")
	if req.Date != nil && *req.Date != "" {
		date = *req.Date
	}
	batchID := uuid.NewString()

	// Capture the conditions the products went down under. Missing location
	// or a marshalling problem downgrades the snapshot, never the insert.
	snapshot := json.RawMessage(`{"status":"skipped_missing_location"}`)
	if prop.Lat != nil && prop.Lon != nil {
		summary := d.Weather.GetSummary(ctx, *prop.Lat, *prop.Lon, 6)
		if data, err := json.Marshal(summary); err != nil {
			log.Printf("marshalling weather snapshot failed: %v", err)
			snapshot = json.RawMessage(`{"status":"error"}`)
		} else {
			snapshot = data
		}
	}

	apps := make([]store.Application, len(req.Items))
	for i, item := range req.Items {
		apps[i] = store.Application{
			PropertyID:      req.PropertyID,
			ProductID:       item.ProductID,
			Date:            date,
			RateValue:       item.RateValue,
			RateUnit:        item.RateUnit,
			AreaSqft:        req.AreaSqft,
			CarrierGPA:      req.CarrierGPA,
			TankSizeGal:     req.TankSizeGal,
			GddModel:        req.GddModel,
			Notes:           req.Notes,
			WeatherSnapshot: snapshot,
			BatchID:         batchID,
		}
	}
	if err := d.Store.InsertApplications(ctx, apps); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to record applications")
	}

	return c.JSON(fiber.Map{"ok": true, "count": len(apps), "batch_id": batchID})
}

func (d Deps) handleListApplications(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid property id")
	}

	ctx := c.UserContext()
	if _, err := d.Store.GetProperty(ctx, int64(id)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "property not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch property")
	}

	apps, err := d.Store.ListApplications(ctx, int64(id))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list applications")
	}
	if apps == nil {
		apps = []store.Application{}
	}
	return c.JSON(apps)
}

func (d Deps) handleGetApplication(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid application id")
	}

	app, err := d.Store.GetApplication(c.UserContext(), int64(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "application not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch application")
	}
	return c.JSON(app)
}

func (d Deps) handleGetApplicationBatch(c *fiber.Ctx) error {
	batchID := c.Params("batchID")

	apps, err := d.Store.GetApplicationBatch(c.UserContext(), batchID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "batch not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch batch")
	}
	return c.JSON(apps)
}

type pgrApplyRequest struct {
	PropertyID int64  `json:"property_id" validate:"required"`
	Model      string `json:"model" validate:"required,oneof=gdd0 gdd10"`
}

func (d Deps) handlePGRApply(c *fiber.Ctx) error {
	var req pgrApplyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	date := time.Now().UTC().Format("2006-01-02")
	if err := d.Store.SetPGRApplied(c.UserContext(), req.PropertyID, req.Model, date); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "property not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to record PGR application")
	}
	return c.JSON(fiber.Map{"ok": true, "date": date})
}
