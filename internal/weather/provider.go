package weather

import (
	"context"
	"time"
)

// HourlyProvider abstracts the primary forecast source (Open-Meteo).
// Implementations must tolerate transport failure without failing the caller;
// degraded output is signaled through the rows' Provider label instead.
type HourlyProvider interface {
	GetHourly(ctx context.Context, lat, lon float64, start, end time.Time) []HourlyRow
}

// WindProvider abstracts the secondary wind/gust source (NWS hourly forecast).
type WindProvider interface {
	GetForecastHourly(ctx context.Context, lat, lon float64) ([]HourlyRow, error)
}

// AlertProvider abstracts the active-alerts source (NWS).
type AlertProvider interface {
	GetAlerts(ctx context.Context, lat, lon float64) ([]Alert, error)
}
