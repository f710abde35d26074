package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"spendcast/internal/forecast"
	"spendcast/internal/services"
)

var (
	ColorBorder = lipgloss.Color("#575653")
	ColorText   = lipgloss.Color("#FFFCF0")
	ColorMuted  = lipgloss.Color("#878580")
	ColorAccent = lipgloss.Color("#3AA99F")
	ColorGreen  = lipgloss.Color("#879A39")
	ColorOrange = lipgloss.Color("#DA702C")
	ColorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)
)

// Table is a bordered text table. The first column is left aligned, the rest
// are numbers and right aligned.
type Table struct {
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title bar in a rounded box.
func RenderTitle(title string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(titleStyle.Render(title))
}

// RenderTable renders t with rounded borders.
func RenderTable(t Table) string {
	if len(t.Headers) == 0 && len(t.Rows) == 0 {
		return ""
	}
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return cellStyle
			}
			return cellStyle.Align(lipgloss.Right)
		})
	return tbl.String() + "\n"
}

// RenderForecast renders a single model's daily forecast and its headline.
func RenderForecast(resp services.PredictionResponse) string {
	var b strings.Builder

	title := fmt.Sprintf("FORECAST  %s  %s  %dd", resp.UserID, resp.ModelType, len(resp.Predictions))
	if resp.Category != "" {
		title = fmt.Sprintf("FORECAST  %s / %s  %s  %dd", resp.UserID, resp.Category, resp.ModelType, len(resp.Predictions))
	}
	b.WriteString(RenderTitle(title))
	b.WriteString("\n\n")

	if len(resp.Predictions) == 0 {
		b.WriteString(mutedStyle.Render("  No spending history to forecast from."))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		rows = append(rows, []string{
			p.Date.Format("2006-01-02"),
			FormatDayOfWeek(p.Date.Weekday()),
			FormatMoney(p.PredictedAmount),
			FormatMoney(p.ConfidenceLower) + " to " + FormatMoney(p.ConfidenceUpper),
		})
	}
	b.WriteString(RenderTable(Table{
		Headers: []string{"Date", "Day", "Predicted", "95% interval"},
		Rows:    rows,
	}))
	b.WriteString("\n")
	b.WriteString(renderHeadline(resp.Result))
	return b.String()
}

func renderHeadline(r forecast.Result) string {
	return fmt.Sprintf("  Total %s   Avg/day %s   Trend %s   Accuracy %s\n",
		FormatMoney(r.TotalPredicted),
		FormatMoney(r.AvgDailySpending),
		trendStyle(r.Trend).Render(FormatTrend(r.Trend)),
		FormatPercent(r.AccuracyScore*100))
}

// trendStyle colours rising spending red and falling spending green
func trendStyle(t forecast.Trend) lipgloss.Style {
	switch t {
	case forecast.TrendIncreasing:
		return lipgloss.NewStyle().Foreground(ColorRed)
	case forecast.TrendDecreasing:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	default:
		return mutedStyle
	}
}

// RenderCompare renders the linear and lstm summaries side by side.
func RenderCompare(resp services.CompareResponse) string {
	var b strings.Builder
	b.WriteString(RenderTitle(fmt.Sprintf("MODEL COMPARISON  %s  %dd", resp.UserID, resp.DaysAhead)))
	b.WriteString("\n\n")

	rows := [][]string{summaryRow("linear", resp.LinearRegression)}
	if resp.LSTM != nil {
		rows = append(rows, summaryRow("lstm", resp.LSTM))
	}
	b.WriteString(RenderTable(Table{
		Headers: []string{"Model", "Total", "Avg/day", "Trend", "Accuracy"},
		Rows:    rows,
	}))

	switch {
	case resp.LSTMError != "":
		b.WriteString(warnStyle.Render("  lstm failed: " + resp.LSTMError))
		b.WriteString("\n")
	case resp.LSTMNote != "":
		b.WriteString(mutedStyle.Render("  lstm: " + resp.LSTMNote))
		b.WriteString("\n")
	}
	return b.String()
}

func summaryRow(name string, s *services.ModelSummary) []string {
	if s == nil {
		return []string{name, "-", "-", "-", "-"}
	}
	return []string{
		name,
		FormatMoney(s.TotalPredicted),
		FormatMoney(s.AvgDailySpending),
		FormatTrend(s.Trend),
		FormatPercent(s.AccuracyScore * 100),
	}
}

// RenderInsights renders one row per category followed by the
// recommendations.
func RenderInsights(resp services.InsightsResponse) string {
	var b strings.Builder
	b.WriteString(RenderTitle(fmt.Sprintf("SPENDING INSIGHTS  %s  %dd", resp.UserID, resp.DaysAhead)))
	b.WriteString("\n\n")

	if len(resp.Categories) == 0 {
		b.WriteString(mutedStyle.Render("  No category has enough history for insights."))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(resp.Categories)+2)
	for _, c := range resp.Categories {
		rows = append(rows, []string{
			c.Category,
			FormatNumber(int64(c.Transactions)),
			FormatMoney(c.CurrentAvg),
			FormatMoney(c.PredictedAvg),
			FormatMoney(c.TotalPredicted),
			FormatTrend(c.Trend),
		})
	}
	rows = append(rows, []string{
		"Total", "", "", "",
		FormatMoney(resp.TotalPredictedSpending),
		FormatTrend(resp.OverallTrend),
	})
	b.WriteString(RenderTable(Table{
		Headers: []string{"Category", "Txns", "Avg txn", "Pred/day", "Total", "Trend"},
		Rows:    rows,
	}))
	b.WriteString("\n")

	for _, c := range resp.Categories {
		b.WriteString("  ")
		b.WriteString(headerStyle.UnsetPadding().Render(c.Category))
		b.WriteString("  ")
		b.WriteString(c.Recommendation)
		b.WriteString("\n")
	}
	return b.String()
}
