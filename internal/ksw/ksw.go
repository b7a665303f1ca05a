// Package ksw serves the KSW results table, a CSV file maintained
// outside the portal, as JSON records.
package ksw

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/botgc-results/internal/config"
)

// Record is one CSV row keyed by column header. It marshals to a JSON
// object with keys in column order.
type Record struct {
	columns []string
	values  []interface{}
}

// Columns returns the header names in file order.
func (r Record) Columns() []string {
	return r.columns
}

// Values returns the cell values in column order.
func (r Record) Values() []interface{} {
	return r.values
}

// Get returns the value of column, or nil.
func (r Record) Get(column string) interface{} {
	for i, c := range r.columns {
		if c == column {
			return r.values[i]
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse reads a CSV document whose first row is the header. Empty cells
// become nil, integers int64, other numbers float64, and anything else
// stays a string.
func Parse(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	records := make([]Record, 0)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}

		rec := Record{columns: header, values: make([]interface{}, len(header))}
		for i := range header {
			if i < len(row) {
				rec.values[i] = cellValue(row[i])
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func cellValue(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

// Source loads the KSW results from a file path or URL.
type Source struct {
	location string
	client   *http.Client
}

// NewSource creates a Source for location.
func NewSource(location string) *Source {
	return &Source{
		location: location,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Results reads and parses the results file.
func (s *Source) Results(ctx context.Context) ([]Record, error) {
	if s.location == "" {
		return nil, errors.New("no KSW results source configured")
	}
	data, err := config.ReadLocation(ctx, s.client, s.location)
	if err != nil {
		return nil, fmt.Errorf("reading KSW results from %s: %w", s.location, err)
	}
	return Parse(bytes.NewReader(data))
}
