package cars

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// toFloat coerces a decoded JSON value into a float, nil means the value
// cannot be read as a number.
func toFloat(value any) *float64 {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if !finite(f) {
		return nil
	}
	return &f
}

// toInt coerces a decoded JSON value into an integer, fractional values are
// rounded half away from zero.
func toInt(value any) *int64 {
	switch v := value.(type) {
	case int:
		i := int64(v)
		return &i
	case int64:
		return &v
	case int32:
		i := int64(v)
		return &i
	case json.Number:
		// exact path first so large integers do not lose precision through float64
		if i, err := v.Int64(); err == nil {
			return &i
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return &i
		}
	}

	f := toFloat(value)
	if f == nil {
		return nil
	}
	rounded := math.Round(*f)
	if rounded < math.MinInt64 || rounded >= math.MaxInt64 {
		return nil
	}
	i := int64(rounded)
	return &i
}

// toString passes strings through untouched and renders scalars with their
// JSON text, containers and null have no string form.
func toString(value any) *string {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case bool:
		s = strconv.FormatBool(v)
	case float64:
		if !finite(v) {
			return nil
		}
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		return nil
	}
	return &s
}

func toYear(value any) *int64 {
	year := toInt(value)
	if year == nil || *year < 1000 || *year > 9999 {
		return nil
	}
	return year
}
