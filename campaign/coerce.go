package campaign

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
	"2006/01/02",
}

var currencyReplacer = strings.NewReplacer("$", "", ",", "", " ", "")

// ParseDate converts s into a calendar date using the first matching layout in dateLayouts.
func ParseDate(s string) (NullDate, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return NullDate{}, errors.Errorf("unrecognised date format %q", s)
}

// ParseCurrency strips currency symbols and thousands separators from s before
// converting it to a number, e.g. "$1,234.50" becomes 1234.5.
func ParseCurrency(s string) (NullFloat, error) {
	return ParseFloat(currencyReplacer.Replace(s))
}

// ParseDays strips a trailing "days" unit from s before converting it to a number.
func ParseDays(s string) (NullFloat, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, "days")
	v = strings.TrimSuffix(v, "day")
	return ParseFloat(strings.TrimSpace(v))
}

// ParseFloat converts s to a number. Empty input is null without an error.
func ParseFloat(s string) (NullFloat, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NullFloat{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NullFloat{}, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NullFloat{}, errors.Errorf("non-finite number %q", s)
	}
	return FloatOf(f), nil
}

// ParseInt converts s to an integer. Empty input is null without an error.
func ParseInt(s string) (NullInt, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NullInt{}, nil
	}
	i, err := parseIntegral(s)
	if err != nil {
		return NullInt{}, err
	}
	return IntOf(i), nil
}

// parseIntegral accepts plain integers and floats without a fractional part.
func parseIntegral(s string) (int64, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errors.Errorf("value %q is not an integer", s)
	}
	return int64(f), nil
}
