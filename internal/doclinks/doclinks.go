// Package doclinks loads the optional lookup table mapping file paths to
// documentation URLs. The table annotates records after persistence; it is
// never required for correctness.
package doclinks

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Table maps a file path to its documentation URL.
type Table map[string]string

// Load reads a CSV file with "File" and "Documentation" columns. A missing
// file yields an empty table, not an error.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Table{}, nil
		}
		return nil, fmt.Errorf("open documentation links: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the CSV stream. Rows missing either column are skipped.
func Parse(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read documentation links header: %w", err)
	}

	fileCol, docCol := -1, -1
	for i, name := range header {
		switch name {
		case "File":
			fileCol = i
		case "Documentation":
			docCol = i
		}
	}
	if fileCol < 0 || docCol < 0 {
		return nil, fmt.Errorf("documentation links: missing File/Documentation columns in header %v", header)
	}

	table := Table{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read documentation links row: %w", err)
		}
		if fileCol >= len(row) || docCol >= len(row) {
			continue
		}
		if row[fileCol] == "" || row[docCol] == "" {
			continue
		}
		table[row[fileCol]] = row[docCol]
	}
	return table, nil
}
