package schema

import (
	"encoding/json"
	"regexp"
	"strings"
)

// WeatherQuery is a validated query for the WeatherAPI forecast.json
// endpoint. Defaults are already applied: Alerts and AirQuality are "yes"
// unless the payload said otherwise, Lang is "en".
type WeatherQuery struct {
	Location   string `json:"q"`
	Days       int    `json:"days"`
	Date       string `json:"dt,omitempty"`
	Hour       *int   `json:"hour,omitempty"`
	Alerts     string `json:"alerts"`
	AirQuality string `json:"aqi"`
	Lang       string `json:"lang"`
}

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseWeatherQuery validates raw JSON against the weather-query shape.
func ParseWeatherQuery(data []byte) (WeatherQuery, error) {
	var wire struct {
		Q      *string  `json:"q"`
		Days   *float64 `json:"days"`
		Dt     *string  `json:"dt"`
		Hour   *float64 `json:"hour"`
		Alerts *string  `json:"alerts"`
		Aqi    *string  `json:"aqi"`
		Lang   *string  `json:"lang"`
	}
	var q WeatherQuery
	if err := json.Unmarshal(data, &wire); err != nil {
		return q, decodeErr(err)
	}

	if wire.Q == nil || strings.TrimSpace(*wire.Q) == "" {
		return q, fieldErrf("q", "missing location")
	}
	q.Location = *wire.Q

	if wire.Days == nil {
		return q, fieldErrf("days", "expected an integer between 1 and 14, got nothing")
	}
	days, err := wholeInRange("days", *wire.Days, 1, 14)
	if err != nil {
		return q, err
	}
	q.Days = days

	if wire.Dt != nil {
		if !isoDateRe.MatchString(*wire.Dt) {
			return q, fieldErrf("dt", "expected a YYYY-MM-DD date, got %q", *wire.Dt)
		}
		q.Date = *wire.Dt
	}

	if wire.Hour != nil {
		hour, err := wholeInRange("hour", *wire.Hour, 0, 23)
		if err != nil {
			return q, err
		}
		q.Hour = &hour
	}

	q.Alerts = "yes"
	if wire.Alerts != nil {
		if *wire.Alerts != "yes" && *wire.Alerts != "no" {
			return q, fieldErrf("alerts", `expected "yes" or "no", got %q`, *wire.Alerts)
		}
		q.Alerts = *wire.Alerts
	}

	q.AirQuality = "yes"
	if wire.Aqi != nil {
		if *wire.Aqi != "yes" && *wire.Aqi != "no" {
			return q, fieldErrf("aqi", `expected "yes" or "no", got %q`, *wire.Aqi)
		}
		q.AirQuality = *wire.Aqi
	}

	q.Lang = "en"
	if wire.Lang != nil {
		if len(*wire.Lang) != 2 {
			return q, fieldErrf("lang", "expected a 2-letter language code, got %q", *wire.Lang)
		}
		q.Lang = *wire.Lang
	}

	return q, nil
}
