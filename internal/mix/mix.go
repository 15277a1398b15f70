package mix

import (
	"errors"
	"fmt"
)

// Turf conventions used throughout:
// - areas are square feet
// - carrier (spray solution) rates are gallons per 1,000 sqft
// - tank sizes are gallons

const (
	sqftPerAcre  = 43560.0
	flOzPerGal   = 128.0
	splitEpsilon = 1e-6 // sqft below which a remainder tank is not worth mixing
)

var (
	// ErrUnsupportedUnit is returned for a rate unit outside the supported set.
	ErrUnsupportedUnit = errors.New("unsupported rate unit")
	// ErrInvalidInput is returned for non-positive geometry or carrier values.
	ErrInvalidInput = errors.New("invalid input")
)

// RateUnit is the closed set of label application-rate units.
type RateUnit string

const (
	OzPer1k    RateUnit = "oz_per_1k"
	LbPer1k    RateUnit = "lb_per_1k"
	OzPerAcre  RateUnit = "oz_per_acre"
	LbPerAcre  RateUnit = "lb_per_acre"
	FlOzPerGal RateUnit = "fl_oz_per_gal"
	PercentVV  RateUnit = "percent_vv"
)

// ParseRateUnit validates a wire token against the supported units.
func ParseRateUnit(s string) (RateUnit, error) {
	switch u := RateUnit(s); u {
	case OzPer1k, LbPer1k, OzPerAcre, LbPerAcre, FlOzPerGal, PercentVV:
		return u, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedUnit, s)
	}
}

// ProductUnit is the physical unit of a dispensed quantity.
type ProductUnit string

const (
	UnitOz   ProductUnit = "oz"
	UnitLb   ProductUnit = "lb"
	UnitFlOz ProductUnit = "fl_oz"
)

// Request holds a label rate plus field and tank geometry.
type Request struct {
	RateValue    float64  `json:"rate_value" validate:"required,gt=0"`
	RateUnit     RateUnit `json:"rate_unit" validate:"required"`
	AreaSqft     float64  `json:"area_sqft" validate:"required,gt=0"`
	CarrierGPA1k float64  `json:"carrier_gpa_per_1k" validate:"required,gt=0"`
	TankSizeGal  float64  `json:"tank_size_gal" validate:"required,gt=0"`
}

// Concentration is the per-gallon rate passthrough for concentration-style units.
type Concentration struct {
	Value float64  `json:"value"`
	Unit  RateUnit `json:"unit"`
}

// Result is the dispensing plan derived from a Request.
type Result struct {
	TotalProduct      float64        `json:"total_product"`
	ProductUnit       ProductUnit    `json:"product_unit"`
	TanksNeeded       int            `json:"tanks_needed"`
	PerTank           []float64      `json:"per_tank"`
	SprayGallonsTotal float64        `json:"spray_gallons_total"`
	Concentration     *Concentration `json:"per_gallon_concentration,omitempty"`
}

// TankCoverage returns the sqft one tank fill covers at the given carrier rate.
func TankCoverage(tankSizeGal, carrierGPA1k float64) (float64, error) {
	if carrierGPA1k <= 0 {
		return 0, fmt.Errorf("%w: carrier_gpa_per_1k must be > 0", ErrInvalidInput)
	}
	return (tankSizeGal / carrierGPA1k) * 1000.0, nil
}

// GallonsForArea returns the total carrier volume for an area at the given rate.
func GallonsForArea(areaSqft, carrierGPA1k float64) float64 {
	return (areaSqft / 1000.0) * carrierGPA1k
}

// TotalProduct converts a label rate into the total quantity of product for
// the area, together with its physical unit.
func TotalProduct(rateValue float64, unit RateUnit, areaSqft, carrierGPA1k float64) (float64, ProductUnit, error) {
	switch unit {
	case OzPer1k:
		return rateValue * (areaSqft / 1000.0), UnitOz, nil
	case LbPer1k:
		return rateValue * (areaSqft / 1000.0), UnitLb, nil
	case OzPerAcre:
		return rateValue * (areaSqft / sqftPerAcre), UnitOz, nil
	case LbPerAcre:
		return rateValue * (areaSqft / sqftPerAcre), UnitLb, nil
	case FlOzPerGal:
		return rateValue * GallonsForArea(areaSqft, carrierGPA1k), UnitFlOz, nil
	case PercentVV:
		// percent v/v of spray volume -> fl oz of product
		return (rateValue / 100.0) * GallonsForArea(areaSqft, carrierGPA1k) * flOzPerGal, UnitFlOz, nil
	default:
		return 0, "", fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
}

// SplitPerTank splits a total product quantity across tank loads sized to the
// tank's ground coverage. Full tanks come first; a trailing partial load is
// added when the remaining area is non-negligible.
func SplitPerTank(total, totalAreaSqft, tankSizeGal, carrierGPA1k float64) ([]float64, error) {
	cov, err := TankCoverage(tankSizeGal, carrierGPA1k)
	if err != nil {
		return nil, err
	}
	if cov <= 0 {
		return nil, fmt.Errorf("%w: tank coverage must be > 0", ErrInvalidInput)
	}
	if totalAreaSqft <= 0 {
		return []float64{}, nil
	}

	nFull := int(totalAreaSqft / cov)
	remainderArea := totalAreaSqft - float64(nFull)*cov

	parts := make([]float64, 0, nFull+1)
	for i := 0; i < nFull; i++ {
		parts = append(parts, total*(cov/totalAreaSqft))
	}
	if remainderArea > splitEpsilon {
		parts = append(parts, total*(remainderArea/totalAreaSqft))
	}
	return parts, nil
}

// perGallonConcentration returns the raw rate for concentration-style units,
// nil otherwise.
func perGallonConcentration(rateValue float64, unit RateUnit) *Concentration {
	switch unit {
	case FlOzPerGal, PercentVV:
		return &Concentration{Value: rateValue, Unit: unit}
	default:
		return nil
	}
}

// Calc composes the mix arithmetic into a full dispensing plan.
func Calc(req Request) (Result, error) {
	if req.AreaSqft <= 0 {
		return Result{}, fmt.Errorf("%w: area_sqft must be > 0", ErrInvalidInput)
	}
	if req.CarrierGPA1k <= 0 {
		return Result{}, fmt.Errorf("%w: carrier_gpa_per_1k must be > 0", ErrInvalidInput)
	}
	if req.TankSizeGal <= 0 {
		return Result{}, fmt.Errorf("%w: tank_size_gal must be > 0", ErrInvalidInput)
	}

	total, unit, err := TotalProduct(req.RateValue, req.RateUnit, req.AreaSqft, req.CarrierGPA1k)
	if err != nil {
		return Result{}, err
	}
	perTank, err := SplitPerTank(total, req.AreaSqft, req.TankSizeGal, req.CarrierGPA1k)
	if err != nil {
		return Result{}, err
	}

	return Result{
		TotalProduct:      total,
		ProductUnit:       unit,
		TanksNeeded:       len(perTank),
		PerTank:           perTank,
		SprayGallonsTotal: GallonsForArea(req.AreaSqft, req.CarrierGPA1k),
		Concentration:     perGallonConcentration(req.RateValue, req.RateUnit),
	}, nil
}
