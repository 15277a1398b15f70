package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBackoff = BackoffConfig{
	MaxAttempts:     3,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
}

func newTestNWS(t *testing.T, handler http.HandlerFunc) *NWS {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewNWS(srv.Client(), "lawn-api test (ops@example.com)")
	require.NoError(t, err)
	p.baseURL = srv.URL
	p.backoff = testBackoff
	return p
}

func TestNewNWSRequiresUserAgent(t *testing.T) {
	p, err := NewNWS(http.DefaultClient, "")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrMissingUserAgent)
}

func TestGetAlerts(t *testing.T) {
	p := newTestNWS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lawn-api test (ops@example.com)", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/geo+json", r.Header.Get("Accept"))
		assert.Contains(t, r.URL.RawQuery, "point=32.9000,-96.7000")
		fmt.Fprint(w, `{"features": [{
			"id": "urn:oid:test.1",
			"properties": {
				"areaDesc": "Dallas County",
				"event": "Heat Advisory",
				"severity": "Moderate",
				"headline": "Heat Advisory until 8 PM",
				"effective": "2026-06-01T10:00:00-05:00",
				"expires": "2026-06-01T20:00:00-05:00",
				"senderName": "NWS Fort Worth TX"
			}
		}]}`)
	})

	alerts, err := p.GetAlerts(context.Background(), 32.9, -96.7)

	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "urn:oid:test.1", alerts[0].ID)
	assert.Equal(t, "Heat Advisory", alerts[0].Event)
	assert.Equal(t, "Dallas County", alerts[0].Area)
	assert.Equal(t, "NWS Fort Worth TX", alerts[0].SenderName)
}

func TestGetForecastHourly(t *testing.T) {
	var srvURL string
	p := newTestNWS(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/points/32.9000,-96.7000":
			fmt.Fprintf(w, `{"properties": {"forecastHourly": "%s/gridpoints/FWD/89,110/forecast/hourly"}}`, srvURL)
		case r.URL.Path == "/gridpoints/FWD/89,110/forecast/hourly":
			fmt.Fprint(w, `{"properties": {"periods": [
				{"startTime": "2026-06-01T10:00:00-05:00", "windSpeed": "10 mph", "windGust": "20 mph",
				 "probabilityOfPrecipitation": {"value": 40}},
				{"startTime": "2026-06-01T11:00:00-05:00", "windSpeed": "5 to 10 mph", "windGust": "",
				 "probabilityOfPrecipitation": {"value": null}}
			]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	srvURL = p.baseURL

	rows, err := p.GetForecastHourly(context.Background(), 32.9, -96.7)

	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2026-06-01T10:00:00-05:00", rows[0].Timestamp)
	assert.Equal(t, 10.0, *rows[0].WindMph)
	assert.Equal(t, 20.0, *rows[0].WindGustMph)
	assert.Equal(t, 0.40, *rows[0].PrecipProb)
	assert.Nil(t, rows[0].PrecipIn)
	assert.Equal(t, "NWS", rows[0].Provider)

	// Ranged wind text takes the first number; empty gust text stays null.
	assert.Equal(t, 5.0, *rows[1].WindMph)
	assert.Nil(t, rows[1].WindGustMph)
	assert.Nil(t, rows[1].PrecipProb)
}

func TestGetForecastHourlyMissingGridpoint(t *testing.T) {
	p := newTestNWS(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"properties": {}}`)
	})

	rows, err := p.GetForecastHourly(context.Background(), 32.9, -96.7)

	assert.NoError(t, err)
	assert.Nil(t, rows)
}

func TestThrottledRequestsRetryThenFail(t *testing.T) {
	var calls int
	p := newTestNWS(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := p.GetAlerts(context.Background(), 32.9, -96.7)

	assert.ErrorIs(t, err, errThrottled)
	assert.Equal(t, 3, calls)
}

func TestThrottledRequestRecoversMidRetry(t *testing.T) {
	var calls int
	p := newTestNWS(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"features": []}`)
	})

	alerts, err := p.GetAlerts(context.Background(), 32.9, -96.7)

	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, 3, calls)
}

func TestNonThrottleErrorDoesNotRetry(t *testing.T) {
	var calls int
	p := newTestNWS(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := p.GetAlerts(context.Background(), 32.9, -96.7)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errUnexpected))
	assert.Equal(t, 1, calls)
}

func TestParseWindText(t *testing.T) {
	cases := []struct {
		in   string
		want *float64
	}{
		{"10 mph", f(10)},
		{"5 to 10 mph", f(5)},
		{"2.5 mph", f(2.5)},
		{"", nil},
		{"calm", nil},
	}
	for _, tc := range cases {
		got := parseWindText(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, tc.in)
			continue
		}
		require.NotNil(t, got, tc.in)
		assert.Equal(t, *tc.want, *got, tc.in)
	}
}

func f(v float64) *float64 { return &v }
