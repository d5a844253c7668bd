// Package schema validates JSON payloads produced by language-model
// extraction against the shapes the rest of the system consumes. Validators
// are pure: they take raw JSON, apply defaults, and return either a
// normalized typed value or an error naming the first violated constraint.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ValidationError reports the first violated constraint of a payload. The
// text is fed back to the model on retry, so it spells out field path and
// expected-vs-actual in plain language.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func fieldErrf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// decodeErr converts JSON decode errors into field-level validation errors
// where possible. Type mismatches (a string where a number belongs) are
// schema violations, not parse failures; the caller has already checked
// JSON well-formedness.
func decodeErr(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ValidationError{
			Field:  typeErr.Field,
			Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
		}
	}
	return err
}

// wholeInRange checks that a JSON number is an integer within [min, max].
func wholeInRange(field string, v float64, min, max int) (int, error) {
	n := int(v)
	if float64(n) != v {
		return 0, fieldErrf(field, "expected an integer, got %v", v)
	}
	if n < min || n > max {
		return 0, fieldErrf(field, "expected an integer between %d and %d, got %d", min, max, n)
	}
	return n, nil
}
