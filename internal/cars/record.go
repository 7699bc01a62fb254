// Package cars holds the canonical fastest-car record and the normalizer that
// maps loosely keyed extraction output onto it.
package cars

// Record is one canonical fastest-car entry. Every field is independently
// nullable, a nil pointer means "unknown" and is never the same as zero.
type Record struct {
	Year                *int64   `json:"year"`
	MakeModel           *string  `json:"make_model"`
	Horsepower          *int64   `json:"horsepower"`
	TopSpeedKmh         *int64   `json:"top_speed_kmh"`
	EngineDisplacementL *float64 `json:"engine_displacement_l"`
	EngineType          *string  `json:"engine_type"`
}

// Columns are the canonical column names, in the same order as Record.Values.
var Columns = []string{
	"year",
	"make_model",
	"horsepower",
	"top_speed_kmh",
	"engine_displacement_l",
	"engine_type",
}

// Values returns the fields of the record in Columns order, nil pointers stay nil
// so that database drivers write NULL.
func (r Record) Values() []any {
	return []any{
		r.Year,
		r.MakeModel,
		r.Horsepower,
		r.TopSpeedKmh,
		r.EngineDisplacementL,
		r.EngineType,
	}
}

// Int64 and the helpers below are shorthands for building records by hand.
func Int64(v int64) *int64 { return &v }

func Float64(v float64) *float64 { return &v }

func String(v string) *string { return &v }
