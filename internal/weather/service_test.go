package weather

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHourly struct {
	rows      []HourlyRow
	lastStart time.Time
	lastEnd   time.Time
}

func (f *fakeHourly) GetHourly(_ context.Context, _, _ float64, start, end time.Time) []HourlyRow {
	f.lastStart = start
	f.lastEnd = end
	return f.rows
}

type fakeWind struct {
	rows []HourlyRow
	err  error
}

func (f *fakeWind) GetForecastHourly(context.Context, float64, float64) ([]HourlyRow, error) {
	return f.rows, f.err
}

type fakeAlerts struct {
	items []Alert
	err   error
}

func (f *fakeAlerts) GetAlerts(context.Context, float64, float64) ([]Alert, error) {
	return f.items, f.err
}

func omRows(n int, provider string) []HourlyRow {
	rows := make([]HourlyRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, HourlyRow{
			Timestamp:  fmt.Sprintf("T%d", i),
			WindMph:    Float(float64(i)),
			PrecipProb: Float(0.1),
			PrecipIn:   Float(0),
			TAirF:      Float(80),
			Provider:   provider,
		})
	}
	return rows
}

func TestHourlyRowsPrimaryOnly(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 10, 30, 0, 0, time.UTC))
	primary := &fakeHourly{rows: omRows(3, "OpenMeteo")}
	svc := NewService(primary, nil, nil, fc)

	res := svc.HourlyRows(context.Background(), 32.9, -96.7, 3, SourceOpenMeteo)

	assert.Equal(t, "OpenMeteo", res.Source)
	assert.Len(t, res.Rows, 3)
	// Request range is the current hour, truncated, plus the hour count.
	assert.Equal(t, time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC), primary.lastStart)
	assert.Equal(t, time.Date(2026, 6, 1, 13, 0, 0, 0, time.UTC), primary.lastEnd)
}

func TestHourlyRowsMergePrefersSecondaryWind(t *testing.T) {
	primary := &fakeHourly{rows: omRows(2, "OpenMeteo")}
	wind := &fakeWind{rows: []HourlyRow{
		{Timestamp: "N0", WindMph: Float(7), WindGustMph: Float(12), Provider: "NWS"},
		{Timestamp: "N1", WindMph: nil, WindGustMph: nil, Provider: "NWS"},
	}}
	svc := NewService(primary, wind, nil, clockwork.NewFakeClock())

	res := svc.HourlyRows(context.Background(), 32.9, -96.7, 2, SourceNWS)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "NWS+OpenMeteo", res.Source)

	// First row takes NWS wind and gust.
	assert.Equal(t, 7.0, *res.Rows[0].WindMph)
	assert.Equal(t, 12.0, *res.Rows[0].WindGustMph)
	// Second row falls back to the primary value where NWS is null.
	assert.Equal(t, 1.0, *res.Rows[1].WindMph)
	assert.Nil(t, res.Rows[1].WindGustMph)

	// Timestamps and precipitation always come from the primary.
	assert.Equal(t, "T0", res.Rows[0].Timestamp)
	assert.Equal(t, 0.1, *res.Rows[0].PrecipProb)
	assert.Equal(t, "NWS+OpenMeteo", res.Rows[0].Provider)
}

func TestHourlyRowsMergeTruncatesToShorterSeries(t *testing.T) {
	primary := &fakeHourly{rows: omRows(5, "OpenMeteo")}
	wind := &fakeWind{rows: []HourlyRow{
		{Timestamp: "N0", WindMph: Float(4), Provider: "NWS"},
		{Timestamp: "N1", WindMph: Float(5), Provider: "NWS"},
	}}
	svc := NewService(primary, wind, nil, clockwork.NewFakeClock())

	res := svc.HourlyRows(context.Background(), 32.9, -96.7, 5, SourceNWS)

	assert.Len(t, res.Rows, 2)
}

func TestHourlyRowsSecondaryFailureFallsBack(t *testing.T) {
	primary := &fakeHourly{rows: omRows(2, "OpenMeteo")}
	wind := &fakeWind{err: errors.New("boom")}
	svc := NewService(primary, wind, nil, clockwork.NewFakeClock())

	res := svc.HourlyRows(context.Background(), 32.9, -96.7, 2, SourceNWS)

	assert.Equal(t, "OpenMeteo", res.Source)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 0.0, *res.Rows[0].WindMph)
}

func TestHourlyRowsNWSRequestedButUnconfigured(t *testing.T) {
	primary := &fakeHourly{rows: omRows(1, "OpenMeteo")}
	svc := NewService(primary, nil, nil, clockwork.NewFakeClock())

	res := svc.HourlyRows(context.Background(), 32.9, -96.7, 1, SourceNWS)

	assert.Equal(t, "OpenMeteo", res.Source)
}

func TestHourlyRowsDegradedLabelPropagates(t *testing.T) {
	primary := &fakeHourly{rows: omRows(2, "OpenMeteo (unavailable)")}
	svc := NewService(primary, nil, nil, clockwork.NewFakeClock())

	res := svc.HourlyRows(context.Background(), 32.9, -96.7, 2, SourceOpenMeteo)

	assert.Equal(t, "OpenMeteo (unavailable)", res.Source)
}

func TestGetSummary(t *testing.T) {
	primary := &fakeHourly{rows: omRows(3, "OpenMeteo")}
	alerts := &fakeAlerts{items: []Alert{{ID: "a1", Event: "Heat Advisory"}}}
	svc := NewService(primary, nil, alerts, clockwork.NewFakeClock())

	sum := svc.GetSummary(context.Background(), 32.9, -96.7, 3)

	require.NotNil(t, sum.Current)
	assert.Equal(t, "T0", sum.Current.Timestamp)
	assert.Len(t, sum.Hourlies, 3)
	assert.Equal(t, AlertsOK, sum.Alerts.Status)
	assert.Len(t, sum.Alerts.Items, 1)
}

func TestGetSummaryAlertFailureDowngrades(t *testing.T) {
	primary := &fakeHourly{rows: omRows(1, "OpenMeteo")}
	alerts := &fakeAlerts{err: errors.New("502")}
	svc := NewService(primary, nil, alerts, clockwork.NewFakeClock())

	sum := svc.GetSummary(context.Background(), 32.9, -96.7, 1)

	assert.Equal(t, AlertsError, sum.Alerts.Status)
	assert.Empty(t, sum.Alerts.Items)
	require.NotNil(t, sum.Current)
}

func TestGetSummaryAlertsNotConfigured(t *testing.T) {
	primary := &fakeHourly{rows: omRows(1, "OpenMeteo")}
	svc := NewService(primary, nil, nil, clockwork.NewFakeClock())

	sum := svc.GetSummary(context.Background(), 32.9, -96.7, 1)

	assert.Equal(t, AlertsNotConfigured, sum.Alerts.Status)
	assert.False(t, svc.AlertsConfigured())
}
