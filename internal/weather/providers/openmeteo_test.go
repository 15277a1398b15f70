package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bermudabuddy/lawn-api/internal/weather"
)

const openMeteoFixture = `{
	"hourly": {
		"time": ["2026-06-01T10:00", "2026-06-01T11:00", "2026-06-01T12:00"],
		"temperature_2m": [85.1, 86.0, null],
		"precipitation_probability": [50, 0.1, null],
		"precipitation": [0, 0.25, null],
		"wind_speed_10m": [5.5, null, 7.0],
		"wind_gusts_10m": [12.0, 14.5, null],
		"dew_point_2m": [70.0, null, null],
		"soil_temperature_0cm": [78.0, 77.5, null],
		"et0_fao_evapotranspiration": [2.54, null, null]
	}
}`

func newTestOpenMeteo(t *testing.T, handler http.HandlerFunc, clock clockwork.Clock) (*OpenMeteo, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewOpenMeteo(srv.Client(), time.Hour, clock)
	p.baseURL = srv.URL
	return p, srv
}

func hourWindow(n int) (time.Time, time.Time) {
	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	return start, start.Add(time.Duration(n) * time.Hour)
}

func TestGetHourlyMapsFields(t *testing.T) {
	p, _ := newTestOpenMeteo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mph", r.URL.Query().Get("wind_speed_unit"))
		assert.Equal(t, "fahrenheit", r.URL.Query().Get("temperature_unit"))
		assert.Equal(t, "inch", r.URL.Query().Get("precipitation_unit"))
		assert.Equal(t, "UTC", r.URL.Query().Get("timezone"))
		fmt.Fprint(w, openMeteoFixture)
	}, nil)

	start, end := hourWindow(3)
	rows := p.GetHourly(context.Background(), 32.9, -96.7, start, end)

	require.Len(t, rows, 3)
	first := rows[0]
	assert.Equal(t, "2026-06-01T10:00", first.Timestamp)
	assert.Equal(t, 85.1, *first.TAirF)
	assert.Equal(t, 5.5, *first.WindMph)
	assert.Equal(t, 12.0, *first.WindGustMph)
	assert.Equal(t, 0.50, *first.PrecipProb) // percentage input scaled down
	assert.Equal(t, 0.0, *first.PrecipIn)
	assert.Equal(t, 70.0, *first.DewpointF)
	assert.Equal(t, 78.0, *first.SoilTempF)
	assert.InDelta(t, 0.1, *first.ET0In, 1e-9) // 2.54mm is a tenth of an inch
	assert.Equal(t, "OpenMeteo", first.Provider)

	// Fractional probability passes through unscaled.
	assert.Equal(t, 0.1, *rows[1].PrecipProb)

	// Null upstream slots stay null.
	third := rows[2]
	assert.Nil(t, third.TAirF)
	assert.Nil(t, third.PrecipProb)
	assert.Nil(t, third.WindGustMph)
}

func TestGetHourlyTruncatesToRequestedHours(t *testing.T) {
	p, _ := newTestOpenMeteo(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, openMeteoFixture)
	}, nil)

	start, end := hourWindow(2)
	rows := p.GetHourly(context.Background(), 32.9, -96.7, start, end)

	assert.Len(t, rows, 2)
}

func TestGetHourlyServesSyntheticRowsOnfailure(t *testing.T) {
	p, _ := newTestOpenMeteo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	start, end := hourWindow(4)
	rows := p.GetHourly(context.Background(), 32.9, -96.7, start, end)

	require.Len(t, rows, 4)
	for i, row := range rows {
		assert.Equal(t, "OpenMeteo (unavailable)", row.Provider)
		assert.Equal(t, start.Add(time.Duration(i)*time.Hour).Format(time.RFC3339), row.Timestamp)
		assert.Equal(t, 0.0, *row.WindMph)
		assert.Equal(t, 0.0, *row.PrecipProb)
		assert.Equal(t, 0.0, *row.PrecipIn)
		assert.Equal(t, 16.0, *row.SoilTempF)
		assert.Equal(t, 0.0, *row.ET0In)
		assert.Nil(t, row.WindGustMph)
		assert.Nil(t, row.TAirF)
		assert.Nil(t, row.DewpointF)
	}
}

func TestGetHourlyDoesNotCacheSyntheticRows(t *testing.T) {
	var fail = true
	var calls int
	p, _ := newTestOpenMeteo(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, openMeteoFixture)
	}, nil)

	start, end := hourWindow(3)
	rows := p.GetHourly(context.Background(), 32.9, -96.7, start, end)
	assert.Equal(t, "OpenMeteo (unavailable)", rows[0].Provider)

	// Upstream recovers; the degraded result must not shadow it.
	fail = false
	rows = p.GetHourly(context.Background(), 32.9, -96.7, start, end)
	assert.Equal(t, "OpenMeteo", rows[0].Provider)
	assert.Equal(t, 2, calls)
}

func TestGetHourlyCachesByPointAndWindow(t *testing.T) {
	var calls int
	p, _ := newTestOpenMeteo(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, openMeteoFixture)
	}, nil)

	start, end := hourWindow(3)
	p.GetHourly(context.Background(), 32.9, -96.7, start, end)
	p.GetHourly(context.Background(), 32.9, -96.7, start, end)
	assert.Equal(t, 1, calls)

	// Different coordinates miss.
	p.GetHourly(context.Background(), 33.0, -96.7, start, end)
	assert.Equal(t, 2, calls)

	// Different window misses.
	p.GetHourly(context.Background(), 32.9, -96.7, start, start.Add(2*time.Hour))
	assert.Equal(t, 3, calls)
}

func TestGetHourlyCacheExpires(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	var calls int
	p, _ := newTestOpenMeteo(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, openMeteoFixture)
	}, fc)

	start, end := hourWindow(3)
	p.GetHourly(context.Background(), 32.9, -96.7, start, end)
	fc.Advance(30 * time.Minute)
	p.GetHourly(context.Background(), 32.9, -96.7, start, end)
	assert.Equal(t, 1, calls)

	fc.Advance(31 * time.Minute)
	p.GetHourly(context.Background(), 32.9, -96.7, start, end)
	assert.Equal(t, 2, calls)
}

func TestGetHourlyEmptyWindow(t *testing.T) {
	p, _ := newTestOpenMeteo(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty window")
	}, nil)

	start, _ := hourWindow(0)
	assert.Nil(t, p.GetHourly(context.Background(), 32.9, -96.7, start, start))
}

func TestNormProb(t *testing.T) {
	assert.Nil(t, normProb(nil))
	assert.Equal(t, 0.10, *normProb(weather.Float(10)))
	assert.Equal(t, 0.1, *normProb(weather.Float(0.1)))
	assert.Equal(t, 1.0, *normProb(weather.Float(1)))
	assert.Equal(t, 1.0, *normProb(weather.Float(100)))
}

func TestIdxOutOfRange(t *testing.T) {
	arr := []*float64{weather.Float(1)}
	assert.Equal(t, 1.0, *idx(arr, 0))
	assert.Nil(t, idx(arr, 1))
	assert.Nil(t, idx(arr, -1))
	assert.Nil(t, idx(nil, 0))
}
