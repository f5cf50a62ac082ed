package domain

import (
	"slices"
	"strings"
)

// Mode decides how the show and hide lists of an element are combined.
type Mode string

const (
	// ModeDefault requires the country to pass both, the show and the hide list.
	ModeDefault  Mode = "default"
	ModeShowOnly Mode = "show_only"
	ModeHideOnly Mode = "hide_only"
)

// ParseMode returns the Mode for mode. Unknown values are ModeDefault.
func ParseMode(mode string) Mode {
	switch m := Mode(strings.ToLower(strings.TrimSpace(mode))); m {
	case ModeShowOnly, ModeHideOnly:
		return m
	default:
		return ModeDefault
	}
}

// Attributes are the geo targeting settings of one content element.
type Attributes struct {
	Show []CountryCode
	Hide []CountryCode
	Mode Mode
}

// Targeted reports whether any geo targeting is set for the element.
// If not, the element is always visible and the visitor's country is not needed.
func (a Attributes) Targeted() bool {
	return len(a.Show) > 0 || len(a.Hide) > 0
}

// ParseCountryList parses a comma separated list like " au, NZ ,,us".
// Items are trimmed and uppercased, empty items are dropped.
func ParseCountryList(list string) []CountryCode {
	countries := []CountryCode{}

	for _, item := range strings.Split(list, ",") {
		if country := NormaliseCountry(item); country != "" {
			countries = append(countries, country)
		}
	}

	return countries
}

// ParseAttributes parses the raw element fields of the page builder.
func ParseAttributes(show string, hide string, mode string) Attributes {
	return Attributes{
		Show: ParseCountryList(show),
		Hide: ParseCountryList(hide),
		Mode: ParseMode(mode),
	}
}

// Evaluate decides whether an element with attrs is shown to a visitor from country.
func Evaluate(attrs Attributes, country CountryCode) bool {
	if !attrs.Targeted() {
		return true
	}

	country = NormaliseCountry(string(country))

	passesShow := len(attrs.Show) == 0 || containsCountry(attrs.Show, country)
	passesHide := len(attrs.Hide) == 0 || !containsCountry(attrs.Hide, country)

	switch ParseMode(string(attrs.Mode)) {
	case ModeShowOnly:
		return passesShow
	case ModeHideOnly:
		return passesHide
	default:
		return passesShow && passesHide
	}
}

func containsCountry(list []CountryCode, country CountryCode) bool {
	return slices.ContainsFunc(list, func(c CountryCode) bool {
		return NormaliseCountry(string(c)) == country
	})
}
