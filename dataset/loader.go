// Package dataset loads tab-separated state data files into value records
// keyed by state name.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ValueRecord is one row of the user's data file.
type ValueRecord struct {
	// State is the full state name from the State column, trimmed.
	State string
	// Value is the parsed numeric value. It is only meaningful when
	// Missing is false.
	Value float64
	// Missing is true when the value cell was empty.
	Missing bool
}

// Table is a parsed data file.
type Table struct {
	// Path is the file the table was loaded from.
	Path string
	// ValueColumn is the column the values were taken from.
	ValueColumn string
	// Records holds one entry per data row, in file order.
	Records []ValueRecord
}

// SchemaError reports a required column missing from the data file header.
type SchemaError struct {
	Path   string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("data file %s: missing required column %q", e.Path, e.Column)
}

// ParseError reports a value cell that could not be parsed as a number.
type ParseError struct {
	Path  string
	Row   int // 1-based line number, header is row 1
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("data file %s: row %d: cannot parse %q as a number", e.Path, e.Row, e.Value)
}

// Load parses a tab-separated data file with a header row. The header must
// contain a "State" column and the named value column. Empty value cells
// become missing values; any other non-numeric cell is a ParseError.
func Load(path, valueColumn string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{Path: path, Column: "State"}
	}
	if err != nil {
		return nil, fmt.Errorf("read data file %s: %w", path, err)
	}

	stateIdx := columnIndex(header, "State")
	if stateIdx < 0 {
		return nil, &SchemaError{Path: path, Column: "State"}
	}
	valueIdx := columnIndex(header, valueColumn)
	if valueIdx < 0 {
		return nil, &SchemaError{Path: path, Column: valueColumn}
	}

	table := &Table{
		Path:        path,
		ValueColumn: valueColumn,
	}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read data file %s: %w", path, err)
		}
		// The reader skips fully blank lines, so physical line numbers
		// come from the reader itself.
		line, _ := r.FieldPos(0)
		rec := ValueRecord{Missing: true}
		if stateIdx < len(row) {
			rec.State = strings.TrimSpace(row[stateIdx])
		}
		if rec.State == "" {
			// Blank line or ragged row with no state name.
			continue
		}
		if valueIdx < len(row) {
			cell := strings.TrimSpace(row[valueIdx])
			if cell != "" {
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, &ParseError{Path: path, Row: line, Value: cell}
				}
				rec.Value = v
				rec.Missing = false
			}
		}
		table.Records = append(table.Records, rec)
	}

	return table, nil
}

// columnIndex returns the index of the named column in the header, or -1.
// Header cells are trimmed before comparison; a UTF-8 BOM on the first cell
// is ignored.
func columnIndex(header []string, name string) int {
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if h == name {
			return i
		}
	}
	return -1
}
