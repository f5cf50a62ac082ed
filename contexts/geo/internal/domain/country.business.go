package domain

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

var ErrInvalidCountry = errors.New("invalid country code")

// CountryCode is an ISO 3166-1 alpha-2 code in its canonical, uppercase form.
type CountryCode string

func (c CountryCode) String() string {
	return string(c)
}

// NormaliseCountry trims and uppercases code, without validating it.
func NormaliseCountry(code string) CountryCode {
	return CountryCode(strings.ToUpper(strings.TrimSpace(code)))
}

// ParseCountry returns the canonical form of code, if it is an assigned
// two-letter country code. Groupings like EU or unknown codes like ZZ are invalid.
func ParseCountry(code string) (CountryCode, error) {
	country := NormaliseCountry(code)

	const alpha2 = 2
	if len(country) != alpha2 || !isASCIILetter(country[0]) || !isASCIILetter(country[1]) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCountry, code)
	}

	region, err := language.ParseRegion(string(country))
	if err != nil || !region.IsCountry() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCountry, code)
	}

	return country, nil
}

func isASCIILetter(b byte) bool {
	return b >= 'A' && b <= 'Z'
}
