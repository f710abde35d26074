package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendcast/internal/forecast"
)

// FormatMoney rounds to cents and adds thousands separators.
// e.g., 1234.5 -> "1,234.50", -3.456 -> "-3.46"
func FormatMoney(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return s
	}
	out := FormatNumber(n) + "." + frac
	if neg && out != "0.00" {
		out = "-" + out
	}
	return out
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent formats a percentage with one decimal.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f)
}

// FormatTrend prefixes the trend with an arrow.
func FormatTrend(t forecast.Trend) string {
	switch t {
	case forecast.TrendIncreasing:
		return "↑ " + string(t)
	case forecast.TrendDecreasing:
		return "↓ " + string(t)
	default:
		return "→ " + string(t)
	}
}

// FormatDayOfWeek returns the three letter weekday name.
func FormatDayOfWeek(d time.Weekday) string {
	return d.String()[:3]
}
