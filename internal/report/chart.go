package report

import (
	"fmt"
	"os"

	"github.com/wcharczuk/go-chart/v2"

	"finbot/internal/core"
)

// renderExpenseChart draws the expense-by-category pie chart and returns
// the path it was written to. The output path is shared across users and
// calls and is overwritten every time. Returns "" when there is nothing
// to plot (no categorized expense with a positive amount).
func (g *Generator) renderExpenseChart(s *Summary) (string, error) {
	var values []chart.Value
	for key, amount := range s.ByCategory {
		if key.Type != core.Expense {
			continue
		}
		f, _ := amount.Float64()
		if f <= 0 {
			continue
		}
		values = append(values, chart.Value{Label: key.Category, Value: f})
	}
	if len(values) == 0 {
		return "", nil
	}

	pie := chart.PieChart{
		Title:  "Phân bổ chi tiêu",
		Width:  800,
		Height: 600,
		Values: values,
	}

	f, err := os.Create(g.chartPath)
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	if err := pie.Render(chart.PNG, f); err != nil {
		return "", fmt.Errorf("render pie chart: %w", err)
	}

	return g.chartPath, nil
}
