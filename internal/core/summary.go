package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name  string
	Count int
	Total float64
}

// Categories returns the distinct categories of txs in first-seen order,
// with per-category transaction counts and totals.
func Categories(txs []Transaction) []CategoryAmount {
	idx := make(map[string]int)
	var out []CategoryAmount
	for _, t := range txs {
		i, ok := idx[t.Category]
		if !ok {
			i = len(out)
			idx[t.Category] = i
			out = append(out, CategoryAmount{Name: t.Category})
		}
		out[i].Count++
		out[i].Total += t.Amount.InexactFloat64()
	}
	return out
}

// FilterCategory returns the transactions belonging to category.
func FilterCategory(txs []Transaction, category string) []Transaction {
	var out []Transaction
	for _, t := range txs {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}
