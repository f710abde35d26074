package google

import (
	"fmt"
	"strings"
	"time"

	"spendcast/internal/core"
)

const (
	colDate = iota
	colDescription
	colAmount
	colCategory
	colType
	colUser
)

// parseRows converts a values matrix into transactions. Rows whose date or
// amount cannot be parsed (a header row included) are skipped and counted.
func parseRows(values [][]interface{}, defaultUser string) ([]core.Transaction, int) {
	var out []core.Transaction
	skipped := 0
	for _, raw := range values {
		row := toStrings(raw)
		if isBlank(row) {
			continue
		}
		date, err := parseSheetDate(safeGet(row, colDate))
		if err != nil {
			skipped++
			continue
		}
		amount, ok := core.ParseSheetAmount(safeGet(row, colAmount))
		if !ok {
			skipped++
			continue
		}
		typ := core.TransactionType(strings.ToLower(safeGet(row, colType)))
		if typ == "" {
			typ = core.Expense
		}
		user := safeGet(row, colUser)
		if user == "" {
			user = defaultUser
		}
		out = append(out, core.Transaction{
			UserID:      user,
			Date:        date,
			Description: safeGet(row, colDescription),
			Amount:      amount,
			Category:    safeGet(row, colCategory),
			Type:        typ,
		})
	}
	return out, skipped
}

func toRow(t core.Transaction) []any {
	return []any{
		t.Date.Format("2006-01-02"),
		t.Description,
		t.Amount.StringFixed(2),
		t.Category,
		string(t.Type),
		t.UserID,
	}
}

// parseSheetDate accepts ISO dates and the day-first format spreadsheets in
// European locales render.
func parseSheetDate(s string) (time.Time, error) {
	if t, err := core.ParseDate(s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"02/01/2006", "2/1/2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
