package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestParseWeatherQuery_DefaultsApplied(t *testing.T) {
	q, err := ParseWeatherQuery([]byte(`{"q":"London","days":1}`))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if q.Location != "London" || q.Days != 1 {
		t.Errorf("unexpected parsed query: %+v", q)
	}
	if q.Alerts != "yes" || q.AirQuality != "yes" || q.Lang != "en" {
		t.Errorf("defaults not applied: %+v", q)
	}
}

func TestParseWeatherQuery_FullPayload(t *testing.T) {
	q, err := ParseWeatherQuery([]byte(`{"q":"Paris","days":3,"dt":"2024-07-12","hour":14,"alerts":"no","aqi":"no","lang":"fr"}`))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if q.Date != "2024-07-12" || q.Hour == nil || *q.Hour != 14 {
		t.Errorf("unexpected parsed query: %+v", q)
	}
	if q.Alerts != "no" || q.AirQuality != "no" || q.Lang != "fr" {
		t.Errorf("explicit values overridden: %+v", q)
	}
}

func TestParseWeatherQuery_DaysOutOfRange(t *testing.T) {
	for _, payload := range []string{
		`{"q":"London","days":15}`,
		`{"q":"London","days":0}`,
		`{"q":"London","days":1.5}`,
		`{"q":"London"}`,
	} {
		_, err := ParseWeatherQuery([]byte(payload))
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("payload %s: expected ValidationError, got %v", payload, err)
		}
		if verr.Field != "days" {
			t.Errorf("payload %s: expected failure on days, got %v", payload, verr)
		}
	}
}

func TestParseWeatherQuery_MissingLocation(t *testing.T) {
	for _, payload := range []string{`{"days":1}`, `{"q":"  ","days":1}`} {
		_, err := ParseWeatherQuery([]byte(payload))
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "q" {
			t.Errorf("payload %s: expected failure on q, got %v", payload, err)
		}
	}
}

func TestParseWeatherQuery_HourRange(t *testing.T) {
	_, err := ParseWeatherQuery([]byte(`{"q":"London","days":1,"hour":24}`))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "hour" {
		t.Errorf("expected failure on hour, got %v", err)
	}
}

func TestParseWeatherQuery_DateFormat(t *testing.T) {
	_, err := ParseWeatherQuery([]byte(`{"q":"London","days":1,"dt":"tomorrow"}`))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "dt" {
		t.Errorf("expected failure on dt, got %v", err)
	}
}

func TestParseWeatherQuery_EnumAndLang(t *testing.T) {
	_, err := ParseWeatherQuery([]byte(`{"q":"London","days":1,"alerts":"maybe"}`))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "alerts" {
		t.Errorf("expected failure on alerts, got %v", err)
	}
	_, err = ParseWeatherQuery([]byte(`{"q":"London","days":1,"lang":"eng"}`))
	if !errors.As(err, &verr) || verr.Field != "lang" {
		t.Errorf("expected failure on lang, got %v", err)
	}
}

func TestParseWeatherQuery_TypeMismatchIsFieldError(t *testing.T) {
	_, err := ParseWeatherQuery([]byte(`{"q":"London","days":"three"}`))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for type mismatch, got %v", err)
	}
	if !strings.Contains(verr.Field, "days") {
		t.Errorf("expected failure naming days, got %v", verr)
	}
}
