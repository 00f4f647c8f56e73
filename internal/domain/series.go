package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSeriesYear is the year attached to "M.D" history dates.
const DefaultSeriesYear = 2020

// suspectedPlaceholder pads the suspected series where the feed has no value.
const suspectedPlaceholder = 1

// DailyRecord is one day of national totals.
type DailyRecord struct {
	Date      time.Time `json:"date"`
	Confirmed int       `json:"confirmed"`
	Suspected int       `json:"suspected"`
	Deaths    int       `json:"deaths"`
	Cured     int       `json:"cured"`
}

// TimeSeries holds parallel per-day sequences in feed order.
type TimeSeries struct {
	Dates     []time.Time
	Confirmed []int
	Suspected []int
	Deaths    []int
	Cured     []int
}

// Len returns the number of days in the series.
func (ts TimeSeries) Len() int {
	return len(ts.Dates)
}

// Records zips the sequences into one record per day.
func (ts TimeSeries) Records() []DailyRecord {
	out := make([]DailyRecord, ts.Len())
	for i := range out {
		out[i] = DailyRecord{
			Date:      ts.Dates[i],
			Confirmed: ts.Confirmed[i],
			Suspected: ts.Suspected[i],
			Deaths:    ts.Deaths[i],
			Cured:     ts.Cured[i],
		}
	}
	return out
}

// ExtractTimeSeries builds the national series from data.historylist.
//
// Confirmed, death and cure counts default to 0 when missing. Suspected
// entries that are missing are dropped, and the series is then padded at the
// end with 1 so every sequence has one value per day.
func ExtractTimeSeries(p *Payload, year int) (TimeSeries, error) {
	if p == nil || p.Data == nil {
		return TimeSeries{}, fmt.Errorf("%w: data", ErrMissingKey)
	}
	history := p.Data.HistoryList
	if history == nil {
		return TimeSeries{}, fmt.Errorf("%w: data.historylist", ErrMissingKey)
	}

	n := len(history)
	ts := TimeSeries{
		Dates:     make([]time.Time, 0, n),
		Confirmed: make([]int, 0, n),
		Suspected: make([]int, 0, n),
		Deaths:    make([]int, 0, n),
		Cured:     make([]int, 0, n),
	}

	for i, entry := range history {
		date, err := ParseDate(entry.Date, year)
		if err != nil {
			return TimeSeries{}, fmt.Errorf("historylist[%d]: %w", i, err)
		}
		ts.Dates = append(ts.Dates, date)
		ts.Confirmed = append(ts.Confirmed, entry.Confirmed.Or(0))
		ts.Deaths = append(ts.Deaths, entry.Deaths.Or(0))
		ts.Cured = append(ts.Cured, entry.Cured.Or(0))
		if entry.Suspected.Valid {
			ts.Suspected = append(ts.Suspected, entry.Suspected.Value)
		}
	}

	for len(ts.Suspected) < n {
		ts.Suspected = append(ts.Suspected, suspectedPlaceholder)
	}
	return ts, nil
}

// ParseDate converts a "M.D" feed date into midnight UTC of that day in the
// given year.
func ParseDate(s string, year int) (time.Time, error) {
	month, day, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}

	t := time.Date(year, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range values, so 2.30 would become 3.1.
	if m < 1 || m > 12 || t.Month() != time.Month(m) || t.Day() != d {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return t, nil
}
