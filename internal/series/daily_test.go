package series

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendcast/internal/core"
)

func tx(date string, amount string) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{Date: d, Amount: decimal.RequireFromString(amount), Type: core.Expense}
}

func TestDailyGroupsAndSorts(t *testing.T) {
	txs := []core.Transaction{
		tx("2024-01-03", "5"),
		tx("2024-01-01T09:00:00Z", "10.10"),
		tx("2024-01-01T21:30:00Z", "0.20"),
		tx("2024-01-05", "1"),
	}
	s := Daily(txs)
	if len(s) != 3 {
		t.Fatalf("expected 3 days, got %d", len(s))
	}
	wantDates := []string{"2024-01-01", "2024-01-03", "2024-01-05"}
	for i, p := range s {
		if got := p.Date.Format("2006-01-02"); got != wantDates[i] {
			t.Fatalf("point %d date = %s, want %s", i, got, wantDates[i])
		}
		if p.Date.Hour() != 0 || p.Date.Location() != time.UTC {
			t.Fatalf("point %d not at UTC midnight: %v", i, p.Date)
		}
	}
	if !s[0].Total.Equal(decimal.RequireFromString("10.30")) {
		t.Fatalf("day total = %s, want 10.30", s[0].Total)
	}
}

func TestDailyEmpty(t *testing.T) {
	if s := Daily(nil); len(s) != 0 {
		t.Fatalf("expected empty series, got %d points", len(s))
	}
	if s := Daily(nil).Densify(); len(s) != 0 {
		t.Fatalf("expected empty densified series, got %d points", len(s))
	}
}

func TestDensifyFillsGaps(t *testing.T) {
	s := Daily([]core.Transaction{
		tx("2024-02-27", "3"),
		tx("2024-03-02", "4"),
	}).Densify()

	// 2024 is a leap year: 27, 28, 29 Feb, 1, 2 Mar.
	if len(s) != 5 {
		t.Fatalf("expected 5 days, got %d", len(s))
	}
	for i := 1; i < len(s); i++ {
		if DaysBetween(s[i-1].Date, s[i].Date) != 1 {
			t.Fatalf("points %d and %d are not consecutive", i-1, i)
		}
	}
	amounts := s.Amounts()
	want := []float64{3, 0, 0, 0, 4}
	for i := range want {
		if amounts[i] != want[i] {
			t.Fatalf("amounts = %v, want %v", amounts, want)
		}
	}
}

func TestOffsets(t *testing.T) {
	s := Daily([]core.Transaction{
		tx("2024-01-01", "1"),
		tx("2024-01-04", "1"),
		tx("2024-01-10", "1"),
	})
	got := s.Offsets()
	want := []int{0, 3, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("offsets = %v, want %v", got, want)
		}
	}
	if s.Span() != 10 {
		t.Fatalf("span = %d, want 10", s.Span())
	}
	if !s.First().Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || !s.Last().Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bounds %v..%v", s.First(), s.Last())
	}
}

func TestDailySumInvariant(t *testing.T) {
	txs := []core.Transaction{
		tx("2024-01-01", "0.1"),
		tx("2024-01-01", "0.2"),
		tx("2024-01-01", "0.3"),
	}
	s := Daily(txs)
	if !s[0].Total.Equal(decimal.RequireFromString("0.6")) {
		t.Fatalf("expected exact decimal sum 0.6, got %s", s[0].Total)
	}
}
