package sheets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/packwrap/internal/domain/models"
)

type recordingRepo struct {
	ranges []string
	rows   [][]interface{}
}

func (r *recordingRepo) WriteRow(_ context.Context, sheetRange string, values []interface{}) error {
	r.ranges = append(r.ranges, sheetRange)
	r.rows = append(r.rows, values)
	return nil
}

func (r *recordingRepo) ReadRange(context.Context, string) ([][]interface{}, error) {
	return r.rows, nil
}

func TestAppendSummary(t *testing.T) {
	repo := &recordingRepo{}
	summary := models.DailySummary{
		Owner:         "karim",
		Date:          "2024-05-01",
		SalesAmount:   1200,
		PacksSold:     6,
		Investment:    750,
		Expenses:      100,
		DayProfit:     340,
		OverallProfit: 5200,
		LowStock:      []string{"10x12 | Red", "12x16 | Blue"},
	}

	require.NoError(t, AppendSummary(context.Background(), repo, summary))

	assert.Equal(t, []string{SummaryRange}, repo.ranges)
	assert.Equal(t, []interface{}{
		"2024-05-01", "karim", 1200.0, 6, 750.0, 100.0, 340.0, 5200.0, "10x12 | Red; 12x16 | Blue",
	}, repo.rows[0])
}
