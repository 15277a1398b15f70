package weather

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
)

// Wind source selectors accepted by the ok-to-spray surface.
const (
	SourceOpenMeteo = "openmeteo"
	SourceNWS       = "nws"
)

const mergedLabel = "NWS+OpenMeteo"

// Service orchestrates the providers: it fetches the primary hourly rows,
// optionally blends in secondary wind data, and fetches alerts.
type Service struct {
	primary HourlyProvider
	wind    WindProvider // nil when NWS is not configured
	alerts  AlertProvider
	clock   clockwork.Clock
}

// NewService creates a Service. wind and alerts may be nil when the NWS
// provider is unconfigured; callers then always get primary-only data.
func NewService(primary HourlyProvider, wind WindProvider, alerts AlertProvider, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		primary: primary,
		wind:    wind,
		alerts:  alerts,
		clock:   clock,
	}
}

// SourceResult carries the hourly rows together with the label describing
// which providers actually produced them, so degraded paths stay visible.
type SourceResult struct {
	Rows   []HourlyRow
	Source string
}

// HourlyRows returns normalized rows for the next `hours` hours starting at
// the current hour. When windSource is "nws" and the secondary provider is
// configured, NWS wind and gust values are merged in; any failure on the
// secondary path falls back to primary-only rows rather than erroring.
func (s *Service) HourlyRows(ctx context.Context, lat, lon float64, hours int, windSource string) SourceResult {
	start := s.clock.Now().UTC().Truncate(time.Hour)
	end := start.Add(time.Duration(hours) * time.Hour)

	primary := s.primary.GetHourly(ctx, lat, lon, start, end)
	result := SourceResult{Rows: primary, Source: openMeteoLabel(primary)}

	if windSource != SourceNWS || s.wind == nil {
		return result
	}

	secondary, err := s.wind.GetForecastHourly(ctx, lat, lon)
	if err != nil {
		// Degrade to primary-only; the source label tells the caller.
		log.Printf("nws hourly fetch failed, using primary wind data: %v", err)
		return result
	}

	return SourceResult{Rows: mergeRows(primary, secondary), Source: mergedLabel}
}

// mergeRows blends the secondary (NWS) wind fields into the primary
// (Open-Meteo) rows. Rows are aligned positionally over the shorter series:
// both sources are requested for the same start hour at hourly cadence, and
// that shared cadence is assumed rather than matched by timestamp. Wind and
// gust prefer the secondary value and fall back to primary when null;
// precipitation and timestamps always come from the primary.
func mergeRows(primary, secondary []HourlyRow) []HourlyRow {
	n := len(primary)
	if len(secondary) < n {
		n = len(secondary)
	}

	merged := make([]HourlyRow, 0, n)
	for i := 0; i < n; i++ {
		wind := secondary[i].WindMph
		if wind == nil {
			wind = primary[i].WindMph
		}
		gust := secondary[i].WindGustMph
		if gust == nil {
			gust = primary[i].WindGustMph
		}
		merged = append(merged, HourlyRow{
			Timestamp:   primary[i].Timestamp,
			WindMph:     wind,
			WindGustMph: gust,
			PrecipProb:  primary[i].PrecipProb,
			PrecipIn:    primary[i].PrecipIn,
			TAirF:       primary[i].TAirF,
			DewpointF:   primary[i].DewpointF,
			SoilTempF:   primary[i].SoilTempF,
			ET0In:       primary[i].ET0In,
			Provider:    mergedLabel,
		})
	}
	return merged
}

// openMeteoLabel reports the primary source label, preserving the degraded
// marker when the provider served synthetic rows.
func openMeteoLabel(rows []HourlyRow) string {
	if len(rows) > 0 {
		return rows[0].Provider
	}
	return "OpenMeteo"
}

// AlertsStatus values reported by Summary.
const (
	AlertsOK            = "ok"
	AlertsError         = "error"
	AlertsNotConfigured = "skipped_missing_user_agent"
)

// AlertsReport wraps alert items with the outcome of fetching them.
type AlertsReport struct {
	Items    []Alert `json:"items"`
	Status   string  `json:"status"`
	Provider string  `json:"provider"`
}

// Summary is a compact current-conditions view: the current hour, the next
// few hourlies, and any active alerts.
type Summary struct {
	Source   string       `json:"source"`
	Current  *HourlyRow   `json:"current"`
	Hourlies []HourlyRow  `json:"hourlies"`
	Alerts   AlertsReport `json:"alerts"`
}

// GetSummary assembles a Summary for the point. Alert failures downgrade the
// alerts section instead of failing the whole summary.
func (s *Service) GetSummary(ctx context.Context, lat, lon float64, hours int) Summary {
	start := s.clock.Now().UTC().Truncate(time.Hour)
	end := start.Add(time.Duration(hours) * time.Hour)

	rows := s.primary.GetHourly(ctx, lat, lon, start, end)
	var current *HourlyRow
	if len(rows) > 0 {
		current = &rows[0]
	}

	report := AlertsReport{Items: []Alert{}, Status: AlertsNotConfigured, Provider: "NWS"}
	if s.alerts != nil {
		alerts, err := s.alerts.GetAlerts(ctx, lat, lon)
		if err != nil {
			log.Printf("nws alerts fetch failed: %v", err)
			report.Status = AlertsError
		} else {
			report.Items = alerts
			report.Status = AlertsOK
		}
	}

	return Summary{
		Source:   openMeteoLabel(rows),
		Current:  current,
		Hourlies: rows,
		Alerts:   report,
	}
}

// GetAlerts returns active alerts for a point, or ErrMissingUserAgent-style
// configuration problems surfaced by the provider constructor earlier.
func (s *Service) GetAlerts(ctx context.Context, lat, lon float64) ([]Alert, error) {
	return s.alerts.GetAlerts(ctx, lat, lon)
}

// AlertsConfigured reports whether the secondary provider is available.
func (s *Service) AlertsConfigured() bool {
	return s.alerts != nil
}
