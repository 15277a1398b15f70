package weather

// HourlyRow is one normalized hour of forecast data, in imperial units.
//
// Optional fields are pointers so a missing upstream value stays null instead
// of collapsing to zero; zero is a real reading (calm wind, dry hour).
// Rows are built fresh per request and never persisted.
type HourlyRow struct {
	Timestamp   string   `json:"ts"`
	WindMph     *float64 `json:"wind_mph"`
	WindGustMph *float64 `json:"wind_gust_mph"`
	PrecipProb  *float64 `json:"precip_prob"` // fraction, 0.0-1.0
	PrecipIn    *float64 `json:"precip_in"`
	TAirF       *float64 `json:"t_air_f,omitempty"`
	DewpointF   *float64 `json:"dewpoint_f,omitempty"`
	SoilTempF   *float64 `json:"soil_temp_f,omitempty"`
	ET0In       *float64 `json:"et0_in,omitempty"`
	Provider    string   `json:"provider"`
}

// Alert is one active weather alert for a point, as issued by NWS.
type Alert struct {
	ID         string `json:"id"`
	Area       string `json:"area"`
	Event      string `json:"event"`
	Severity   string `json:"severity"`
	Headline   string `json:"headline"`
	Effective  string `json:"effective"`
	Expires    string `json:"expires"`
	SenderName string `json:"senderName"`
}

// Float returns a pointer to v, for building rows with optional fields.
func Float(v float64) *float64 {
	return &v
}
