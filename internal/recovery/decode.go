package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/titanous/json5"
)

// Candidate is one decoded record with its keys and values exactly as the
// model produced them.
type Candidate = map[string]any

// Kind tags which branch an Outcome took.
type Kind int

const (
	// Parsed means the candidate was a JSON (or JSON5) array, Records may still be empty.
	Parsed Kind = iota
	// RecoveredEmpty means the candidate could not be decoded and was replaced
	// by an empty record set, Err says why.
	RecoveredEmpty
)

func (k Kind) String() string {
	switch k {
	case Parsed:
		return "parsed"
	case RecoveredEmpty:
		return "recovered-empty"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the tagged result of Decode.
type Outcome struct {
	Kind    Kind
	Records []Candidate
	// Lenient is set when strict JSON failed but the JSON5 pass succeeded.
	Lenient bool
	// Dropped counts array elements that were not objects.
	Dropped int
	Err     error
}

var ErrNotArray = errors.New("top-level value is not an array")

func checkArray(value any) ([]any, error) {
	arr, ok := value.([]any)
	if !ok {
		return nil, ErrNotArray
	}
	return arr, nil
}

func decodeStrict(candidate string) ([]any, error) {
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()

	var value any
	err := dec.Decode(&value)
	if err != nil {
		return nil, err
	}
	_, err = dec.Token()
	if err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return checkArray(value)
}

func decodeLenient(candidate string) ([]any, error) {
	var value any
	err := json5.Unmarshal([]byte(candidate), &value)
	if err != nil {
		return nil, err
	}
	return checkArray(value)
}

// Decode attempts to parse a recovery candidate as an array of records. It
// tries strict JSON first, then JSON5 (trailing commas, single quotes,
// comments), and otherwise returns a RecoveredEmpty outcome. Decode never
// panics and never returns a Parsed outcome holding invalid data.
func Decode(candidate string) Outcome {
	values, strictErr := decodeStrict(candidate)
	lenient := false
	if strictErr != nil {
		var lenientErr error
		values, lenientErr = decodeLenient(candidate)
		if lenientErr != nil {
			return Outcome{
				Kind:    RecoveredEmpty,
				Records: []Candidate{},
				Err: errors.Join(
					fmt.Errorf("json: %w", strictErr),
					fmt.Errorf("json5: %w", lenientErr),
				),
			}
		}
		lenient = true
	}

	records := make([]Candidate, 0, len(values))
	dropped := 0
	for _, v := range values {
		obj, ok := v.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		records = append(records, obj)
	}

	return Outcome{
		Kind:    Parsed,
		Records: records,
		Lenient: lenient,
		Dropped: dropped,
	}
}

// Process runs Recover and then Decode on a raw model response.
func Process(raw string) (candidate string, outcome Outcome) {
	candidate = Recover(raw)
	return candidate, Decode(candidate)
}
