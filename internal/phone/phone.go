// Package phone validates and normalizes phone numbers for SMS delivery.
package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is assumed for numbers given without a country prefix.
const DefaultRegion = "FR"

// Format parses a raw phone number and returns it in E.164 form. Numbers
// without a leading + are interpreted in the default region.
func Format(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("phone number is empty")
	}
	num, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("invalid phone number %q: %w", raw, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// IsValid reports whether the raw number parses to a valid number.
func IsValid(raw string) bool {
	_, err := Format(raw)
	return err == nil
}
