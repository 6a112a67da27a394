// Package report aggregates a user's transactions into totals and a
// category breakdown in the reference currency, and renders the expense
// pie chart.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/currency"
	"finbot/internal/storage"
)

// TransactionSource is the slice of the record store the generator needs.
type TransactionSource interface {
	TransactionsByUser(ctx context.Context, userID int64) ([]storage.TransactionRow, error)
}

// CategoryKey addresses one cell of the per-category breakdown.
type CategoryKey struct {
	Type     core.TransactionType
	Category string
}

// Summary is the aggregate view of one user's transactions, expressed in
// the reference currency (best-effort, see Generate).
type Summary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	ByCategory   map[CategoryKey]decimal.Decimal
	ChartPath    string
}

type Generator struct {
	source    TransactionSource
	converter currency.Converter
	chartPath string
}

func NewGenerator(source TransactionSource, converter currency.Converter, chartPath string) *Generator {
	return &Generator{
		source:    source,
		converter: converter,
		chartPath: chartPath,
	}
}

// Generate builds the summary for one user. A user with no transactions
// yields (nil, nil), the "no data" sentinel.
//
// Every amount not already in the reference currency is converted via the
// rate lookup. A failed lookup is logged and the original amount is kept,
// so totals may mix currencies when the rate service is down. That is
// accepted degraded behavior, not an error.
func (g *Generator) Generate(ctx context.Context, userID int64) (*Summary, error) {
	rows, err := g.source.TransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	for i := range rows {
		if rows[i].Currency == core.ReferenceCurrency {
			continue
		}
		converted, err := g.converter.Convert(ctx, rows[i].Amount, rows[i].Currency, core.ReferenceCurrency)
		if err != nil {
			slog.WarnContext(ctx, "Rate lookup failed, keeping original amount",
				"currency", rows[i].Currency,
				"amount", rows[i].Amount.String(),
				"error", err)
			continue
		}
		rows[i].Amount = converted
		rows[i].Currency = core.ReferenceCurrency
	}

	s := &Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		ByCategory:   make(map[CategoryKey]decimal.Decimal),
	}
	for _, row := range rows {
		switch row.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(row.Amount)
		case core.Expense:
			s.TotalExpense = s.TotalExpense.Add(row.Amount)
		}
		// Rows without a category only count toward the totals.
		if row.CategoryName == "" {
			continue
		}
		key := CategoryKey{Type: row.Type, Category: row.CategoryName}
		s.ByCategory[key] = s.ByCategory[key].Add(row.Amount)
	}

	chartPath, err := g.renderExpenseChart(s)
	if err != nil {
		return nil, fmt.Errorf("render expense chart: %w", err)
	}
	s.ChartPath = chartPath
	if chartPath != "" {
		slog.InfoContext(ctx, "Report chart written", "chart_path", chartPath, "user_id", userID)
	}

	return s, nil
}
