package load

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingSheet is returned when a required sheet is absent
	ErrMissingSheet = errors.New("missing sheet")
	// ErrMissingColumn is returned when a sheet lacks a required header
	ErrMissingColumn = errors.New("missing column")
)

// table is a sheet with its header row mapped to column positions
type table struct {
	name   string
	header map[string]int
	rows   [][]string
}

func newTable(name string, rows [][]string, required []string) (*table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w: sheet has no header row", name, ErrMissingColumn)
	}

	header := make(map[string]int, len(rows[0]))
	for j, h := range rows[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			continue
		}
		if _, dup := header[h]; !dup {
			header[h] = j
		}
	}

	var missing []string
	for _, col := range required {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: %s", name, ErrMissingColumn, strings.Join(missing, ", "))
	}

	return &table{name: name, header: header, rows: rows[1:]}, nil
}

// records yields every non-blank data row
func (t *table) records() []record {
	out := make([]record, 0, len(t.rows))
	for i, cells := range t.rows {
		if blank(cells) {
			continue
		}
		// +2: one for the header, one for 1-based spreadsheet numbering
		out = append(out, record{table: t, line: i + 2, cells: cells})
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// record is one data row; accessors report the sheet, row and column on failure
type record struct {
	table *table
	line  int
	cells []string
}

func (r record) str(col string) string {
	j, ok := r.table.header[col]
	if !ok || j >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[j])
}

func (r record) errorf(col, format string, args ...interface{}) error {
	return fmt.Errorf("%s row %d, column %s: %s", r.table.name, r.line, col, fmt.Sprintf(format, args...))
}

func (r record) float(col string) (float64, error) {
	s := r.str(col)
	if s == "" {
		return 0, r.errorf(col, "empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, r.errorf(col, "invalid number %q", s)
	}
	return v, nil
}

// optFloat returns nil for empty and NaN cells
func (r record) optFloat(col string) (*float64, error) {
	s := r.str(col)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, r.errorf(col, "invalid number %q", s)
	}
	return &v, nil
}

func (r record) integer(col string) (int, error) {
	s := r.str(col)
	if s == "" {
		return 0, r.errorf(col, "empty value")
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	// Spreadsheets often store integers as 3.0
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, r.errorf(col, "invalid integer %q", s)
	}
	return int(f), nil
}

func (r record) boolean(col string) (bool, error) {
	s := r.str(col)
	switch strings.ToLower(s) {
	case "", "0", "0.0", "false", "f", "no", "n":
		return false, nil
	case "1", "1.0", "true", "t", "yes", "y":
		return true, nil
	}
	return false, r.errorf(col, "invalid boolean %q", s)
}
