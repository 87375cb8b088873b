package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/ritzau/citegraph/pkg/model"
)

// ParseYear normalizes a year field. It accepts numbers, strings with a
// leading integer ("1998", "-300 BCE") or with embedded digits ("c. 1850"),
// and nil. Years outside the plausible range are reported as unknown.
func ParseYear(v any) (int, bool) {
	var year int
	switch val := v.(type) {
	case nil:
		return 0, false
	case int:
		year = val
	case int64:
		year = int(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		year = int(math.Trunc(val))
	case json.Number:
		if i, err := val.Int64(); err == nil {
			year = int(i)
		} else if f, err := val.Float64(); err == nil {
			return ParseYear(f)
		} else {
			return 0, false
		}
	case string:
		y, ok := parseYearString(val)
		if !ok {
			return 0, false
		}
		year = y
	default:
		return 0, false
	}

	if year < model.MinPlausibleYear || year > model.MaxPlausibleYear {
		return 0, false
	}
	return year, true
}

// YearPtr is ParseYear returning nil for unknown years
func YearPtr(v any) *int {
	if y, ok := ParseYear(v); ok {
		return &y
	}
	return nil
}

func parseYearString(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// Leading signed integer prefix
	end := 0
	if s[0] == '-' || s[0] == '+' {
		end = 1
	}
	digits := end
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits > end {
		y, err := strconv.Atoi(s[:digits])
		return y, err == nil
	}

	// Otherwise keep every digit of a digit-bearing string
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0, false
	}
	y, err := strconv.Atoi(cleaned)
	return y, err == nil
}
