package ledger

import (
	"testing"

	"github.com/arieldaniely/AutoPagi/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	table := models.Table{
		Header: []string{"תאריך", "סכום", "מספר הרשאה"},
		Rows: [][]string{
			{"01/01/2024", "1,234.50", "A100"},
			{"02/01/2024", "₪ 100.00", "B200"},
			{"03/01/2024", "-", "C300"},
		},
	}

	summary := Summarize(table, "סכום")
	assert.Equal(t, 3, summary.Rows)
	assert.Equal(t, 2, summary.Parsed)
	assert.True(t, summary.Total.Equal(decimal.RequireFromString("1334.50")),
		"got total %s", summary.Total)
}

func TestSummarizeMissingAmountColumn(t *testing.T) {
	table := models.Table{
		Header: []string{"תאריך", "מספר הרשאה"},
		Rows:   [][]string{{"01/01/2024", "A100"}},
	}

	summary := Summarize(table, "סכום")
	assert.Equal(t, 1, summary.Rows)
	assert.Equal(t, 0, summary.Parsed)
	assert.True(t, summary.Total.IsZero())
}

func TestSummarizeEmptyTable(t *testing.T) {
	summary := Summarize(models.Table{Header: []string{"סכום"}}, "סכום")
	assert.Equal(t, 0, summary.Rows)
	assert.True(t, summary.Total.IsZero())
}
