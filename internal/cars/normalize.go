package cars

import (
	"sort"

	"fastestcars/lib/telemetry"
	"fastestcars/lib/textutil"

	"github.com/antzucaro/matchr"
)

const (
	report_normalizer_unknown_key = "normalizer.unknown-key"
)

type field struct {
	column string
	// label is the name the extraction prompt asks the model to use
	label string
	set   func(r *Record, value any) bool
}

var fields = []field{
	{
		column: "year",
		label:  "Year",
		set: func(r *Record, value any) bool {
			r.Year = toYear(value)
			return r.Year != nil
		},
	},
	{
		column: "make_model",
		label:  "Make and model",
		set: func(r *Record, value any) bool {
			r.MakeModel = toString(value)
			return r.MakeModel != nil
		},
	},
	{
		column: "horsepower",
		label:  "Horsepower",
		set: func(r *Record, value any) bool {
			r.Horsepower = toInt(value)
			return r.Horsepower != nil
		},
	},
	{
		column: "top_speed_kmh",
		label:  "Top speed (km/h)",
		set: func(r *Record, value any) bool {
			r.TopSpeedKmh = toInt(value)
			return r.TopSpeedKmh != nil
		},
	},
	{
		column: "engine_displacement_l",
		label:  "Engine displacement (L)",
		set: func(r *Record, value any) bool {
			r.EngineDisplacementL = toFloat(value)
			return r.EngineDisplacementL != nil
		},
	},
	{
		column: "engine_type",
		label:  "Engine type",
		set: func(r *Record, value any) bool {
			r.EngineType = toString(value)
			return r.EngineType != nil
		},
	},
}

// normalized source key -> index into fields
var fieldIndex = map[string]int{}

func init() {
	for i, f := range fields {
		fieldIndex[textutil.NormalizeKey(f.label)] = i
		fieldIndex[textutil.NormalizeKey(f.column)] = i
	}
}

// Labels returns the source labels the extraction contract asks for, in Columns order.
func Labels() []string {
	labels := make([]string, len(fields))
	for i, f := range fields {
		labels[i] = f.label
	}
	return labels
}

type Normalizer struct {
	tel telemetry.API
}

func NewNormalizer(tel telemetry.API) Normalizer {
	return Normalizer{tel: telemetry.NewScopedAPI("cars", tel)}
}

// Normalize maps generic key-value candidates onto canonical records, one record
// per candidate and in the same order. A value that cannot be coerced into its
// field's type leaves that field nil, it never drops the record.
func (n Normalizer) Normalize(candidates []map[string]any) []Record {
	records := make([]Record, len(candidates))
	var unknown []string
	seenUnknown := map[string]struct{}{}

	for i, candidate := range candidates {
		keys := make([]string, 0, len(candidate))
		for key := range candidate {
			keys = append(keys, key)
		}
		// keys are visited in a fixed order so that a candidate carrying both
		// "Year" and "year" always resolves the same way: first non-null wins.
		sort.Strings(keys)

		var record Record
		filled := make([]bool, len(fields))
		for _, key := range keys {
			idx, ok := fieldIndex[textutil.NormalizeKey(key)]
			if !ok {
				if _, seen := seenUnknown[key]; !seen {
					seenUnknown[key] = struct{}{}
					unknown = append(unknown, key)
				}
				continue
			}
			if filled[idx] {
				continue
			}
			filled[idx] = fields[idx].set(&record, candidate[key])
		}
		records[i] = record
	}

	for _, key := range unknown {
		n.tel.ReportWarning(report_normalizer_unknown_key, key, closestLabel(key))
	}

	return records
}

// closestLabel suggests which canonical label an unrecognized key was probably meant to be.
func closestLabel(key string) string {
	normalized := textutil.NormalizeKey(key)

	var best string
	var bestSimilarity float64
	for _, f := range fields {
		similarity := matchr.JaroWinkler(normalized, textutil.NormalizeKey(f.label), false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = f.label
		}
	}
	return best
}
