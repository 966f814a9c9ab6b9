// Package textutil holds the small text helpers shared by the CLI and the
// application services: CSV, input hygiene, e-mail and file-name checks.
package textutil

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"collectorkit/internal/domain"
)

// ParseCSV splits text into records of fields. Records may have differing
// field counts. Malformed quoting fails with domain.ErrParseError.
func ParseCSV(text string, delimiter rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.FieldsPerRecord = -1

	records := [][]string{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, fmt.Errorf("parse csv line %d column %d: %w: %w", perr.Line, perr.Column, domain.ErrParseError, perr.Err)
			}
			return nil, domain.Wrap("parse csv", domain.ErrParseError, err)
		}
		records = append(records, record)
	}
}

// GenerateCSV renders records with every field quoted and embedded quotes
// doubled, one record per line. A record without fields is written as one
// empty field, since a blank line would be skipped on parse.
func GenerateCSV(records [][]string, delimiter rune) string {
	var b strings.Builder
	sep := string(delimiter)
	for _, record := range records {
		if len(record) == 0 {
			b.WriteString(`""`)
		}
		for i, field := range record {
			if i > 0 {
				b.WriteString(sep)
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(field, `"`, `""`))
			b.WriteByte('"')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
