package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"spain-energy/internal/model"
)

// pvsystPreambleLines precede the column header in PVsyst hourly exports.
const pvsystPreambleLines = 10

// PVsystColumns are the energy columns read from a PVsyst export.
var PVsystColumns = []string{"E_Grid", "EArray", "IL_Pmin", "IL_Pmax", "EArrMPP", "EArrNom"}

// DefaultPVsystColumn is the grid-injected energy column.
const DefaultPVsystColumn = "E_Grid"

// PVsystRow is one hour of a PVsyst export. Values are nil where the cell
// was empty or not numeric.
type PVsystRow struct {
	Month  int
	Day    int
	Hour   int
	Values map[string]*float64
}

// ParsePVsyst reads a PVsyst hourly CSV. The date column is
// "DD/MM/YYYY HH:MM" with a synthetic year that is ignored; rows whose date
// does not parse (such as the units row) are skipped.
func ParsePVsyst(r io.Reader) ([]PVsystRow, error) {
	br := bufio.NewReader(r)
	for i := 0; i < pvsystPreambleLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			return nil, fmt.Errorf("pvsyst preamble: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("pvsyst header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	dateIdx, ok := cols["date"]
	if !ok {
		return nil, errors.New("pvsyst: no 'date' column found")
	}
	var missing []string
	for _, c := range PVsystColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("pvsyst: missing expected columns %v", missing)
	}

	var out []PVsystRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("pvsyst row: %w", err)
		}
		if dateIdx >= len(rec) {
			continue
		}
		ts, err := time.Parse("02/01/2006 15:04", strings.TrimSpace(rec[dateIdx]))
		if err != nil {
			continue
		}
		row := PVsystRow{Month: int(ts.Month()), Day: ts.Day(), Hour: ts.Hour(), Values: make(map[string]*float64, len(PVsystColumns))}
		for _, c := range PVsystColumns {
			i := cols[c]
			if i >= len(rec) {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64); err == nil {
				row.Values[c] = &v
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// PVsystProfileRows selects one energy column as profile rows.
func PVsystProfileRows(rows []PVsystRow, column string) ([]model.RawPVRow, error) {
	known := false
	for _, c := range PVsystColumns {
		if c == column {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("unknown pvsyst column %q", column)
	}
	out := make([]model.RawPVRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.RawPVRow{Month: r.Month, Day: r.Day, Hour: r.Hour, Output: r.Values[column]})
	}
	return out, nil
}

var nonAlnum = regexp.MustCompile(`[^0-9a-zA-Z]+`)

// ProfileName derives a profile name from an export file name:
// lower case, no extension, runs of other characters collapsed to "_".
func ProfileName(filename string) string {
	base := filepath.Base(filename)
	name := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	return strings.Trim(nonAlnum.ReplaceAllString(name, "_"), "_")
}
