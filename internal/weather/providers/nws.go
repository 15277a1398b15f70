package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bermudabuddy/lawn-api/internal/weather"
)

// ErrMissingUserAgent is returned when the NWS provider is constructed
// without the client identifier api.weather.gov requires. This is a service
// misconfiguration, not a user input error, and it fails at construction.
var ErrMissingUserAgent = errors.New("nws: user agent is required to call NWS APIs")

const nwsName = "NWS"

// NWS is the secondary forecast and alerting provider (api.weather.gov).
// All requests retry on 403/429 with capped exponential backoff.
type NWS struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	backoff    BackoffConfig
}

// NewNWS creates the provider. userAgent identifies the calling application
// per NWS API policy; an empty value is rejected immediately.
func NewNWS(client *http.Client, userAgent string) (*NWS, error) {
	if userAgent == "" {
		return nil, ErrMissingUserAgent
	}
	return &NWS{
		baseURL:    "https://api.weather.gov",
		userAgent:  userAgent,
		httpClient: client,
		backoff:    DefaultBackoff,
	}, nil
}

func (p *NWS) get(ctx context.Context, url string) (*http.Response, error) {
	return doGetWithBackoff(ctx, p.httpClient, p.backoff, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", p.userAgent)
		req.Header.Set("Accept", "application/geo+json")
		return req, nil
	})
}

type nwsAlertsPayload struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			AreaDesc   string `json:"areaDesc"`
			Event      string `json:"event"`
			Severity   string `json:"severity"`
			Headline   string `json:"headline"`
			Effective  string `json:"effective"`
			Expires    string `json:"expires"`
			SenderName string `json:"senderName"`
		} `json:"properties"`
	} `json:"features"`
}

// GetAlerts returns the active alerts covering a point.
func (p *NWS) GetAlerts(ctx context.Context, lat, lon float64) ([]weather.Alert, error) {
	url := fmt.Sprintf("%s/alerts/active?point=%.4f,%.4f", p.baseURL, lat, lon)
	resp, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload nwsAlertsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	alerts := make([]weather.Alert, 0, len(payload.Features))
	for _, f := range payload.Features {
		alerts = append(alerts, weather.Alert{
			ID:         f.ID,
			Area:       f.Properties.AreaDesc,
			Event:      f.Properties.Event,
			Severity:   f.Properties.Severity,
			Headline:   f.Properties.Headline,
			Effective:  f.Properties.Effective,
			Expires:    f.Properties.Expires,
			SenderName: f.Properties.SenderName,
		})
	}
	return alerts, nil
}

type nwsPointsPayload struct {
	Properties struct {
		ForecastHourly string `json:"forecastHourly"`
	} `json:"properties"`
}

type nwsForecastPayload struct {
	Properties struct {
		Periods []struct {
			StartTime  string `json:"startTime"`
			WindSpeed  string `json:"windSpeed"`
			WindGust   string `json:"windGust"`
			PrecipProb struct {
				Value *float64 `json:"value"`
			} `json:"probabilityOfPrecipitation"`
		} `json:"periods"`
	} `json:"properties"`
}

// GetForecastHourly resolves the gridpoint for the coordinates and returns
// its hourly forecast as normalized rows. Wind fields arrive as free text and
// are parsed to mph; NWS hourly data carries no precipitation quantity, so
// PrecipIn is always null.
func (p *NWS) GetForecastHourly(ctx context.Context, lat, lon float64) ([]weather.HourlyRow, error) {
	ptURL := fmt.Sprintf("%s/points/%.4f,%.4f", p.baseURL, lat, lon)
	ptResp, err := p.get(ctx, ptURL)
	if err != nil {
		return nil, err
	}
	defer ptResp.Body.Close()

	var pt nwsPointsPayload
	if err := json.NewDecoder(ptResp.Body).Decode(&pt); err != nil {
		return nil, err
	}
	if pt.Properties.ForecastHourly == "" {
		return nil, nil
	}

	fcResp, err := p.get(ctx, pt.Properties.ForecastHourly)
	if err != nil {
		return nil, err
	}
	defer fcResp.Body.Close()

	var fc nwsForecastPayload
	if err := json.NewDecoder(fcResp.Body).Decode(&fc); err != nil {
		return nil, err
	}

	rows := make([]weather.HourlyRow, 0, len(fc.Properties.Periods))
	for _, period := range fc.Properties.Periods {
		var prob *float64
		if v := period.PrecipProb.Value; v != nil {
			prob = weather.Float(*v / 100.0)
		}
		rows = append(rows, weather.HourlyRow{
			Timestamp:   period.StartTime,
			WindMph:     parseWindText(period.WindSpeed),
			WindGustMph: parseWindText(period.WindGust),
			PrecipProb:  prob,
			PrecipIn:    nil, // not available from NWS hourly
			Provider:    nwsName,
		})
	}
	return rows, nil
}

// parseWindText extracts the first numeric token from strings like "10 mph"
// or "5 to 10 mph". Returns nil when nothing parses.
func parseWindText(s string) *float64 {
	for _, token := range strings.Fields(s) {
		if v, err := strconv.ParseFloat(token, 64); err == nil {
			return weather.Float(v)
		}
	}
	return nil
}
