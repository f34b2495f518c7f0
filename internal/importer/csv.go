// Package importer parses manual seating CSV files into validated
// placements.  Parsing is split in two steps: Parse reads the raw,
// strongly typed rows; Validate checks every row against the student and
// venue directories and collects either a placement or a row error.  A bad
// row never aborts the file.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Header is the column order expected in an upload and emitted by Template.
var Header = []string{"Roll Number", "Department", "Venue Name", "Seat Number (Optional)"}

// Row is one data line of an upload.  Line is the 1-based line number in
// the file so operators can find and fix the row.
type Row struct {
	Line       int
	RollNumber string
	Department string
	VenueName  string
	SeatNumber string
	// Short is set when the line had fewer than the three required columns.
	Short bool
}

// Parse reads every data row of a CSV upload.  A leading header row is
// detected by its first cell and skipped, as are blank lines.  Only
// malformed CSV (for example an unterminated quote) is an error.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []Row
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if isBlank(rec) {
			continue
		}
		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}
		rows = append(rows, toRow(line, rec))
	}
	return rows, nil
}

// Template returns a CSV document containing only the header row.
func Template() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(Header)
	w.Flush()
	return buf.Bytes()
}

func toRow(line int, rec []string) Row {
	row := Row{Line: line, Short: len(rec) < 3}
	fields := []*string{&row.RollNumber, &row.Department, &row.VenueName, &row.SeatNumber}
	for i, f := range fields {
		if i < len(rec) {
			*f = strings.TrimSpace(rec[i])
		}
	}
	return row
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func isHeader(rec []string) bool {
	cell := strings.TrimPrefix(strings.TrimSpace(rec[0]), "\ufeff")
	return strings.EqualFold(cell, Header[0])
}
