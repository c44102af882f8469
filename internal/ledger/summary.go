package ledger

import (
	"strings"

	"github.com/arieldaniely/AutoPagi/internal/models"

	"github.com/shopspring/decimal"
)

// Summary aggregates the amount column of a table for run reporting.
type Summary struct {
	Rows   int
	Parsed int
	Total  decimal.Decimal
}

// amountReplacer strips the decorations the site renders around amounts.
var amountReplacer = strings.NewReplacer(",", "", "₪", "", " ", "", " ", "")

// Summarize totals the named amount column. Unparseable cells are counted
// but excluded from the total; the site occasionally renders dashes for
// zero-amount rows and a summary must not fail the run over them.
func Summarize(table models.Table, amountColumn string) Summary {
	summary := Summary{Rows: len(table.Rows), Total: decimal.Zero}

	idx, ok := table.ColumnIndex(amountColumn)
	if !ok {
		return summary
	}

	for _, row := range table.Rows {
		if len(row) <= idx {
			continue
		}
		value := amountReplacer.Replace(strings.TrimSpace(row[idx]))
		amount, err := decimal.NewFromString(value)
		if err != nil {
			continue
		}
		summary.Parsed++
		summary.Total = summary.Total.Add(amount)
	}
	return summary
}
