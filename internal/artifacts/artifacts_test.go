package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"fastestcars/internal/cars"

	"github.com/stretchr/testify/require"
)

func TestWriteRecords(t *testing.T) {
	dir, err := NewDir(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)

	path, err := dir.WriteRecords(nil)
	require.NoError(t, err)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(contents))

	_, err = dir.WriteRecords([]cars.Record{{
		Year:       cars.Int64(1949),
		MakeModel:  cars.String("Jaguar XK120 & \"Roadster\""),
		EngineType: cars.String("Inline-6"),
	}})
	require.NoError(t, err)
	records, err := dir.ReadRecords()
	require.NoError(t, err)
	require.JSONEq(t, `[{
		"year": 1949,
		"make_model": "Jaguar XK120 & \"Roadster\"",
		"horsepower": null,
		"top_speed_kmh": null,
		"engine_displacement_l": null,
		"engine_type": "Inline-6"
	}]`, records)
	require.Contains(t, records, "&", "html characters should not be escaped")
}

func TestWriteRawResponseOverwrites(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	_, err = dir.WriteRawResponse("first response")
	require.NoError(t, err)
	path, err := dir.WriteRawResponse("")
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "", string(contents))
	require.Equal(t, filepath.Join(dir.directory, RawResponseFile), path)

	entries, err := os.ReadDir(dir.directory)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files should not be left behind")
}
