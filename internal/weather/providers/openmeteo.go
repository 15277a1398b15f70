package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/bermudabuddy/lawn-api/internal/weather"
)

const (
	openMeteoName       = "OpenMeteo"
	openMeteoDegraded   = "OpenMeteo (unavailable)"
	openMeteoCacheSize  = 128
	syntheticSoilTempF  = 16.0
	millimetersPerInch  = 25.4
	openMeteoHourlyVars = "temperature_2m,precipitation_probability,precipitation,wind_speed_10m,wind_gusts_10m,dew_point_2m,soil_temperature_0cm,et0_fao_evapotranspiration"
)

// OpenMeteo is the primary hourly forecast provider. Transport failures never
// reach the caller: the provider degrades to synthetic placeholder rows with
// a distinct label so classification stays available when the upstream is not.
type OpenMeteo struct {
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
	cache      *rowCache
}

// NewOpenMeteo creates the provider with a bounded response cache.
// ttl bounds how long a (lat, lon, window) lookup is served from cache.
func NewOpenMeteo(client *http.Client, ttl time.Duration, clock clockwork.Clock) *OpenMeteo {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteo{
		baseURL:    "https://api.open-meteo.com/v1/forecast",
		httpClient: client,
		circuit:    cb,
		cache:      newRowCache(openMeteoCacheSize, ttl, clock),
	}
}

// openMeteoPayload mirrors the hourly block of the Open-Meteo response.
// Array slots may be null upstream, hence pointer elements.
type openMeteoPayload struct {
	Hourly struct {
		Time        []string   `json:"time"`
		Temperature []*float64 `json:"temperature_2m"`
		PrecipProb  []*float64 `json:"precipitation_probability"`
		Precip      []*float64 `json:"precipitation"`
		WindSpeed   []*float64 `json:"wind_speed_10m"`
		WindGusts   []*float64 `json:"wind_gusts_10m"`
		Dewpoint    []*float64 `json:"dew_point_2m"`
		SoilTemp    []*float64 `json:"soil_temperature_0cm"`
		ET0         []*float64 `json:"et0_fao_evapotranspiration"`
	} `json:"hourly"`
}

// GetHourly returns one normalized row per requested hour in [start, end).
// Results are cached per rounded coordinates and window.
func (p *OpenMeteo) GetHourly(ctx context.Context, lat, lon float64, start, end time.Time) []weather.HourlyRow {
	hours := int(end.Sub(start).Hours())
	if hours <= 0 {
		return nil
	}

	key := fmt.Sprintf("%.4f,%.4f:%s:%s", lat, lon, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	if rows, ok := p.cache.get(key); ok {
		return rows
	}

	payload, err := p.fetch(ctx, lat, lon)
	if err != nil {
		log.Printf("openmeteo fetch failed, serving synthetic rows: %v", err)
		return syntheticRows(start, hours)
	}

	h := payload.Hourly
	rows := make([]weather.HourlyRow, 0, hours)
	for i, ts := range h.Time {
		if i >= hours {
			break
		}
		rows = append(rows, weather.HourlyRow{
			Timestamp:   ts,
			TAirF:       idx(h.Temperature, i),
			WindMph:     idx(h.WindSpeed, i),
			WindGustMph: idx(h.WindGusts, i),
			PrecipProb:  normProb(idx(h.PrecipProb, i)),
			PrecipIn:    idx(h.Precip, i),
			DewpointF:   idx(h.Dewpoint, i),
			SoilTempF:   idx(h.SoilTemp, i),
			ET0In:       mmToIn(idx(h.ET0, i)),
			Provider:    openMeteoName,
		})
	}

	p.cache.put(key, rows)
	return rows
}

func (p *OpenMeteo) fetch(ctx context.Context, lat, lon float64) (*openMeteoPayload, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", lat))
	values.Set("longitude", fmt.Sprintf("%f", lon))
	values.Set("hourly", openMeteoHourlyVars)
	values.Set("wind_speed_unit", "mph")
	values.Set("temperature_unit", "fahrenheit")
	values.Set("precipitation_unit", "inch")
	values.Set("forecast_days", "2")
	values.Set("timezone", "UTC")

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())

	result, err := p.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}

		var payload openMeteoPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, err
		}
		return &payload, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*openMeteoPayload), nil
}

// syntheticRows builds the availability-over-correctness fallback: the right
// number of hour-aligned rows with placeholder readings. Gust, temperature
// and dewpoint stay null; wind and precipitation read as calm and dry.
func syntheticRows(start time.Time, hours int) []weather.HourlyRow {
	rows := make([]weather.HourlyRow, 0, hours)
	for i := 0; i < hours; i++ {
		rows = append(rows, weather.HourlyRow{
			Timestamp:  start.UTC().Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
			WindMph:    weather.Float(0),
			PrecipProb: weather.Float(0),
			PrecipIn:   weather.Float(0),
			SoilTempF:  weather.Float(syntheticSoilTempF),
			ET0In:      weather.Float(0),
			Provider:   openMeteoDegraded,
		})
	}
	return rows
}

// idx returns the i-th element of arr, or nil when the index is out of range
// or the slot itself is null.
func idx(arr []*float64, i int) *float64 {
	if i < 0 || i >= len(arr) {
		return nil
	}
	return arr[i]
}

// normProb normalizes a precipitation probability to the 0.0-1.0 range.
// Values above 1 are treated as percentages; values at or below 1 pass
// through as already-fractional.
func normProb(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v > 1 {
		return weather.Float(*v / 100.0)
	}
	return v
}

func mmToIn(mm *float64) *float64 {
	if mm == nil {
		return nil
	}
	return weather.Float(*mm / millimetersPerInch)
}
