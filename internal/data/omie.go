package data

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"spain-energy/internal/model"
	"spain-energy/internal/timeutil"
)

const (
	omieHeader = "MARGINALPDBC;"
	omieFooter = "*"
)

// OMIERow is one period of an OMIE marginal price file.
type OMIERow struct {
	Datetime   time.Time
	Period     int
	Resolution model.Resolution
	Spain      float64
	Portugal   *float64
}

// ParseOMIE reads a latin-1 OMIE day-ahead marginal price file
// ("marginalpdbc_YYYYMMDD.1"). Rows look like
//
//	Year;Month;Day;Period;PriceSpain;PricePortugal;
//
// The resolution is decided by the highest period in the file: more than 24
// periods is quarter-hourly. Rows without a Spain price or whose period
// maps past 23:59 are skipped.
func ParseOMIE(r io.Reader) ([]OMIERow, error) {
	type raw struct {
		fields []string
		period int
	}
	var lines []raw
	maxPeriod := 0

	sc := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line == omieHeader || line == omieFooter {
			continue
		}
		parts := strings.Split(line, ";")
		if len(parts) < 4 {
			continue
		}
		p, err := strconv.Atoi(strings.TrimSpace(parts[3]))
		if err != nil {
			continue
		}
		if p > maxPeriod {
			maxPeriod = p
		}
		lines = append(lines, raw{fields: parts, period: p})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read omie file: %w", err)
	}

	res := timeutil.ResolutionFromMaxPeriod(maxPeriod)
	out := make([]OMIERow, 0, len(lines))
	for _, l := range lines {
		if len(l.fields) < 6 {
			continue
		}
		year, err1 := strconv.Atoi(strings.TrimSpace(l.fields[0]))
		month, err2 := strconv.Atoi(strings.TrimSpace(l.fields[1]))
		day, err3 := strconv.Atoi(strings.TrimSpace(l.fields[2]))
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		sp, ok := parseOMIEPrice(l.fields[4])
		if !ok {
			continue
		}
		hour, minute, ok := timeutil.PeriodClock(l.period, res)
		if !ok {
			continue
		}
		row := OMIERow{
			Datetime:   time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC),
			Period:     l.period,
			Resolution: res,
			Spain:      sp,
		}
		if pt, ok := parseOMIEPrice(l.fields[5]); ok {
			row.Portugal = &pt
		}
		out = append(out, row)
	}
	return out, nil
}

func parseOMIEPrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// OMIESpainRows converts parsed rows to storable Spain price rows.
func OMIESpainRows(rows []OMIERow) []model.RawPriceRow {
	out := make([]model.RawPriceRow, 0, len(rows))
	for _, r := range rows {
		price := r.Spain
		out = append(out, model.RawPriceRow{
			Timestamp: timeutil.FormatTimestamp(r.Datetime),
			Price:     &price,
		})
	}
	return out
}
