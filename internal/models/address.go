package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Length limits applied to address fields.
const (
	MinCountryLen  = 2
	MaxCountryLen  = 3
	MaxCityLen     = 255
	MaxStreetLen   = 255
	MaxPostcodeLen = 16
)

// ErrInvalidAddress is wrapped by every error returned from Address.Validate.
var ErrInvalidAddress = errors.New("invalid address")

// Address is a postal address. The 4-tuple of its fields is the address identity
// used both as the lookup argument and as the cache key.
type Address struct {
	Country  string `json:"country"`  // ISO country code, 2 or 3 letters.
	City     string `json:"city"`     // City or locality name.
	Street   string `json:"street"`   // Street line including the house number.
	Postcode string `json:"postcode"` // Postal code.
}

// Key returns the address identity in a form usable as a flat cache key. Every
// field is prefixed with its byte length, so distinct addresses never share a key
// whatever characters their fields contain.
func (a Address) Key() string {
	var key strings.Builder
	for i, field := range []string{a.Country, a.City, a.Street, a.Postcode} {
		if i > 0 {
			key.WriteByte('|')
		}
		key.WriteString(strconv.Itoa(len(field)))
		key.WriteByte(':')
		key.WriteString(field)
	}

	return key.String()
}

// String returns a human readable single line representation of the address.
func (a Address) String() string {
	return fmt.Sprintf("%s, %s, %s, %s", a.Street, a.City, a.Postcode, a.Country)
}

// Validate checks that all fields are present and within their length bounds.
// The HTTP layer performs the same checks through binding tags; Validate covers
// callers that build an Address by hand, such as the CLI.
func (a Address) Validate() error {
	var errs []error

	countryLen := utf8.RuneCountInString(a.Country)
	switch {
	case strings.TrimSpace(a.Country) == "":
		errs = append(errs, errors.New("country code is required"))
	case countryLen < MinCountryLen || countryLen > MaxCountryLen:
		errs = append(errs, fmt.Errorf("country code must be %d to %d characters long", MinCountryLen, MaxCountryLen))
	}

	errs = append(errs, requireBounded("city", a.City, MaxCityLen)...)
	errs = append(errs, requireBounded("street", a.Street, MaxStreetLen)...)
	errs = append(errs, requireBounded("postcode", a.Postcode, MaxPostcodeLen)...)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidAddress, errors.Join(errs...))
	}

	return nil
}

func requireBounded(field, value string, maxLen int) []error {
	if strings.TrimSpace(value) == "" {
		return []error{fmt.Errorf("%s is required", field)}
	}
	if utf8.RuneCountInString(value) > maxLen {
		return []error{fmt.Errorf("%s cannot be longer than %d characters", field, maxLen)}
	}

	return nil
}
