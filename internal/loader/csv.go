package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ReadCSVFile reads the specification file into its logical table form. CSV
// is the stock encoding; anything that can produce a Table works.
func ReadCSVFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open specification file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	// Rows may legitimately leave trailing cells blank.
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("failed to read specification file: %w", err)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("specification file is empty")
	}
	return Table{Header: records[0], Rows: records[1:]}, nil
}
