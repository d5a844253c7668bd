package schema

import (
	"encoding/json"
	"strings"
)

// Notification severity levels.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// NotificationResult is the weather briefing behind a meeting SMS.
type NotificationResult struct {
	WeatherSummary   string   `json:"weatherSummary"`
	ActionableAdvice string   `json:"actionableAdvice"`
	Severity         string   `json:"severity"`
	RelevantAlerts   []string `json:"relevantAlerts"`
}

// ParseNotificationResult validates raw JSON against the notification
// weather-result shape. RelevantAlerts normalizes to an empty slice when
// absent.
func ParseNotificationResult(data []byte) (NotificationResult, error) {
	var wire struct {
		WeatherSummary   *string  `json:"weatherSummary"`
		ActionableAdvice *string  `json:"actionableAdvice"`
		Severity         *string  `json:"severity"`
		RelevantAlerts   []string `json:"relevantAlerts"`
	}
	var r NotificationResult
	if err := json.Unmarshal(data, &wire); err != nil {
		return r, decodeErr(err)
	}
	if wire.WeatherSummary == nil || strings.TrimSpace(*wire.WeatherSummary) == "" {
		return r, fieldErrf("weatherSummary", "expected a non-empty string")
	}
	if wire.ActionableAdvice == nil || strings.TrimSpace(*wire.ActionableAdvice) == "" {
		return r, fieldErrf("actionableAdvice", "expected a non-empty string")
	}
	if wire.Severity == nil {
		return r, fieldErrf("severity", `expected one of "low", "medium", "high", got nothing`)
	}
	switch *wire.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		return r, fieldErrf("severity", `expected one of "low", "medium", "high", got %q`, *wire.Severity)
	}
	r.WeatherSummary = *wire.WeatherSummary
	r.ActionableAdvice = *wire.ActionableAdvice
	r.Severity = *wire.Severity
	r.RelevantAlerts = wire.RelevantAlerts
	if r.RelevantAlerts == nil {
		r.RelevantAlerts = []string{}
	}
	return r, nil
}
