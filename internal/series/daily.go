// Package series turns raw transactions into a daily spending series.
package series

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"spendcast/internal/core"
)

const day = 24 * time.Hour

// Point is the spending total of one calendar day.
type Point struct {
	Date  time.Time // UTC midnight
	Total decimal.Decimal
}

// Series is a strictly date-ordered list of daily totals with no duplicates.
type Series []Point

// Daily groups transactions by calendar day and sums their amounts.
// The caller is expected to have filtered by category and type already.
func Daily(txs []core.Transaction) Series {
	if len(txs) == 0 {
		return Series{}
	}
	totals := make(map[time.Time]decimal.Decimal, len(txs))
	for _, t := range txs {
		d := core.Day(t.Date)
		totals[d] = totals[d].Add(t.Amount)
	}
	out := make(Series, 0, len(totals))
	for d, total := range totals {
		out = append(out, Point{Date: d, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Densify returns a copy of s with every missing day between the first and
// last point filled with a zero total.
func (s Series) Densify() Series {
	if len(s) == 0 {
		return Series{}
	}
	span := s.Span()
	out := make(Series, 0, span)
	next := 0
	for i := 0; i < span; i++ {
		d := s[0].Date.AddDate(0, 0, i)
		if next < len(s) && s[next].Date.Equal(d) {
			out = append(out, s[next])
			next++
			continue
		}
		out = append(out, Point{Date: d, Total: decimal.Zero})
	}
	return out
}

// Span is the number of calendar days from the first to the last point,
// both included.
func (s Series) Span() int {
	if len(s) == 0 {
		return 0
	}
	return DaysBetween(s[0].Date, s[len(s)-1].Date) + 1
}

// Amounts returns the daily totals as float64.
func (s Series) Amounts() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Total.InexactFloat64()
	}
	return out
}

// Offsets returns, for each point, the number of days since the first point.
func (s Series) Offsets() []int {
	out := make([]int, len(s))
	for i, p := range s {
		out[i] = DaysBetween(s[0].Date, p.Date)
	}
	return out
}

func (s Series) First() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Date
}

func (s Series) Last() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Date
}

// DaysBetween counts whole calendar days from a to b. Both are expected to be
// UTC midnights.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Round(day) / day)
}
