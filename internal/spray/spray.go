// Package spray decides whether an hour of weather is safe for a herbicide
// application and scans a forecast for the first usable window.
package spray

import "github.com/bermudabuddy/lawn-api/internal/weather"

// Status is the tri-state spray-safety outcome for one hour.
type Status string

const (
	StatusOK      Status = "OK"
	StatusCaution Status = "CAUTION"
	StatusNotOK   Status = "NOT_OK"
)

// Thresholds for the three safety rules, in the row's units (mph, fraction, inches).
const (
	windMinMph  = 3.0
	windMaxMph  = 10.0
	gustMaxMph  = 15.0
	rainProbMax = 0.20
)

// Rules holds the per-rule outcomes for one classified hour.
type Rules struct {
	Wind bool `json:"wind"`
	Gust bool `json:"gust"`
	Rain bool `json:"rain"`
}

// Evaluation pairs a classified row with its status and rule breakdown.
type Evaluation struct {
	Row    weather.HourlyRow `json:"-"`
	Status Status            `json:"status"`
	Rules  Rules             `json:"rules"`
}

// Window is a contiguous two-hour span where both hours classify OK.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Classify applies the three safety rules to one hourly row.
//
// Missing data biases differently per rule: absent wind counts as 0 mph and
// fails the sustained-wind rule, absent gust passes the gust rule, absent
// precipitation counts as dry. The function is total; there is no error path.
func Classify(row weather.HourlyRow) Evaluation {
	wind := floatOrZero(row.WindMph)
	prob := floatOrZero(row.PrecipProb)
	qty := floatOrZero(row.PrecipIn)

	rules := Rules{
		Wind: wind >= windMinMph && wind <= windMaxMph,
		Gust: row.WindGustMph == nil || *row.WindGustMph < gustMaxMph,
		Rain: prob < rainProbMax && qty == 0,
	}

	score := 0
	for _, ok := range []bool{rules.Wind, rules.Gust, rules.Rain} {
		if ok {
			score++
		}
	}

	status := StatusNotOK
	switch score {
	case 3:
		status = StatusOK
	case 2:
		status = StatusCaution
	}

	return Evaluation{Row: row, Status: status, Rules: rules}
}

// ClassifyAll classifies a chronological sequence of rows in order.
func ClassifyAll(rows []weather.HourlyRow) []Evaluation {
	evals := make([]Evaluation, len(rows))
	for i, row := range rows {
		evals[i] = Classify(row)
	}
	return evals
}

// FindWindow returns the first two consecutive OK hours, or nil when the
// sequence has none. First match wins; the scan does not look for a "best"
// window.
func FindWindow(evals []Evaluation) *Window {
	for i := 0; i+1 < len(evals); i++ {
		if evals[i].Status == StatusOK && evals[i+1].Status == StatusOK {
			return &Window{Start: evals[i].Row.Timestamp, End: evals[i+1].Row.Timestamp}
		}
	}
	return nil
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
