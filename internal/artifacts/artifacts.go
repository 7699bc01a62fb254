package artifacts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"fastestcars/internal/cars"
)

const (
	RawResponseFile = "fastest_cars_response.txt"
	RecordsFile     = "fastest_cars_data.json"
	PageFile        = "page.html"
)

// Dir writes the run's durable artifacts into a single directory. Every write
// goes to a temporary file first and is renamed into place, so a reader never
// observes a half written artifact.
type Dir struct {
	directory string
}

func NewDir(directory string) (Dir, error) {
	if directory == "" {
		directory = "."
	}
	err := os.MkdirAll(directory, 0755)
	if err != nil {
		return Dir{}, err
	}
	abs, err := filepath.Abs(directory)
	if err != nil {
		return Dir{}, err
	}
	return Dir{directory: abs}, nil
}

func (d Dir) Path(name string) string {
	return filepath.Join(d.directory, name)
}

func (d Dir) write(name string, contents []byte) (string, error) {
	target := d.Path(name)

	tmp, err := os.CreateTemp(d.directory, "."+name+".*")
	if err != nil {
		return target, err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(contents)
	if err != nil {
		tmp.Close()
		return target, err
	}
	err = tmp.Close()
	if err != nil {
		return target, err
	}
	err = os.Chmod(tmp.Name(), 0644)
	if err != nil {
		return target, err
	}
	err = os.Rename(tmp.Name(), target)
	if err != nil {
		return target, err
	}
	return target, nil
}

// WriteRawResponse stores the model response byte for byte.
func (d Dir) WriteRawResponse(raw string) (string, error) {
	return d.write(RawResponseFile, []byte(raw))
}

// WritePage stores the fetched source page.
func (d Dir) WritePage(page []byte) (string, error) {
	return d.write(PageFile, page)
}

// WriteRecords stores the normalized record set as an indented JSON array,
// an empty (or nil) slice is written as `[]`.
func (d Dir) WriteRecords(records []cars.Record) (string, error) {
	if records == nil {
		records = []cars.Record{}
	}

	var buff bytes.Buffer
	enc := json.NewEncoder(&buff)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(records)
	if err != nil {
		return d.Path(RecordsFile), fmt.Errorf("encode records: %w", err)
	}
	return d.write(RecordsFile, buff.Bytes())
}

// ReadRecords returns the raw contents of the records artifact.
func (d Dir) ReadRecords() (string, error) {
	contents, err := os.ReadFile(d.Path(RecordsFile))
	if err != nil {
		return "", err
	}
	return string(contents), nil
}
