package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

const (
	delimiterSemicolon = ';'
	delimiterComma     = ','

	utf8BOM = "\ufeff"
)

// row is one CSV record keyed by header name.
type row map[string]string

// get returns the first non-empty trimmed value among the given column names.
func (r row) get(columns ...string) string {
	for _, c := range columns {
		if v := strings.TrimSpace(r[c]); v != "" {
			return v
		}
	}

	return ""
}

// sniffDelimiter picks ';' when the header line contains one, ',' otherwise.
func sniffDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}

	if bytes.ContainsRune(header, delimiterSemicolon) {
		return delimiterSemicolon
	}

	return delimiterComma
}

// readRows parses a CSV document with a header line. Short rows are padded
// with empty values; extra fields are ignored.
func readRows(data []byte) ([]row, error) {
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]row, 0, len(records)-1)

	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}

		m := make(row, len(header))

		for i, name := range header {
			if i < len(rec) {
				m[name] = rec[i]
			}
		}

		rows = append(rows, m)
	}

	return rows, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}

	return true
}
