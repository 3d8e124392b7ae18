package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	repo "github.com/mamadbah2/packwrap/internal/repository/sheets"
)

type fakeBooks struct {
	snap     models.Snapshot
	overview models.Overview
}

func (f fakeBooks) Export(context.Context, string) (models.Snapshot, error) { return f.snap, nil }

func (f fakeBooks) Overview(context.Context, string) (models.Overview, error) {
	return f.overview, nil
}

type fakeDrafts struct{ n int }

func (f fakeDrafts) ListDrafts(context.Context, string, models.DraftStatus) ([]models.OrderDraft, error) {
	return make([]models.OrderDraft, f.n), nil
}

type fakeSummaries struct {
	saved []models.DailySummary
	err   error
}

func (f *fakeSummaries) SaveDailySummary(_ context.Context, s models.DailySummary) error {
	f.saved = append(f.saved, s)
	return f.err
}

type fakeSheet struct {
	rows   [][]interface{}
	ranges []string
}

func (f *fakeSheet) WriteRow(_ context.Context, sheetRange string, values []interface{}) error {
	f.ranges = append(f.ranges, sheetRange)
	f.rows = append(f.rows, values)
	return nil
}

func (f *fakeSheet) ReadRange(context.Context, string) ([][]interface{}, error) {
	return f.rows, nil
}

var _ repo.Repository = (*fakeSheet)(nil)

func testBooks() fakeBooks {
	return fakeBooks{
		snap: models.Snapshot{
			Investments: []models.InventoryEntry{{Key: "10/14 | White", Packs: 10, Date: "2024-10-05", Cost: 1500}},
			Sales: []models.Sale{
				{Key: "10/14 | White", Packs: 4, Price100: 250, Date: "2024-10-05", EstProfit: 400},
				{Key: "10/14 | White", Packs: 1, Price100: 250, Date: "2024-10-04", EstProfit: 100},
			},
			Expenses: []models.Expense{{Amount: 150, Date: "2024-10-05"}, {Amount: 99, Date: "2024-10-01"}},
		},
		overview: models.Overview{
			Totals:     models.Totals{Overall: -1249},
			Highlights: models.Highlights{LowStock: []string{"10/14 | White"}},
		},
	}
}

func TestBuildDailySummary(t *testing.T) {
	dhaka := time.FixedZone("BDT", 6*3600)
	svc := NewService(testBooks(), fakeDrafts{n: 2}, nil, nil, dhaka, nil)

	// 20:00 UTC on the 4th is already the 5th in Dhaka.
	summary, err := svc.BuildDailySummary(context.Background(), "karim", time.Date(2024, 10, 4, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "karim", summary.Owner)
	assert.Equal(t, "2024-10-05", summary.Date)
	assert.Equal(t, 1000.0, summary.SalesAmount)
	assert.Equal(t, 4, summary.PacksSold)
	assert.Equal(t, 1500.0, summary.Investment)
	assert.Equal(t, 150.0, summary.Expenses)
	assert.Equal(t, 250.0, summary.DayProfit)
	assert.Equal(t, -1249.0, summary.OverallProfit)
	assert.Equal(t, 2, summary.PendingDrafts)
	assert.Equal(t, []string{"10/14 | White"}, summary.LowStock)
}

func TestDailyReport_ArchivesAndFormats(t *testing.T) {
	summaries := &fakeSummaries{err: errors.New("mongo down")}
	sheet := &fakeSheet{}
	svc := NewService(testBooks(), nil, summaries, sheet, time.UTC, nil)

	report, err := svc.DailyReport(context.Background(), "karim", time.Date(2024, 10, 5, 22, 0, 0, 0, time.UTC))
	require.NoError(t, err, "archive failures must not block the report")

	require.Len(t, summaries.saved, 1)
	require.Len(t, sheet.rows, 1)
	assert.Equal(t, repo.SummaryRange, sheet.ranges[0])
	assert.Equal(t, "2024-10-05", sheet.rows[0][0])
	assert.Equal(t, "10/14 | White", sheet.rows[0][8])

	assert.Contains(t, report, "PackWrap daily summary (2024-10-05)")
	assert.Contains(t, report, "Sales: 1,000 TK (4 packs)")
	assert.Contains(t, report, "Overall loss: 1,249 TK")
	assert.Contains(t, report, "Low stock: 10/14 | White")
}

func TestWeeklyReport(t *testing.T) {
	sheet := &fakeSheet{rows: [][]interface{}{
		{"Date", "Owner", "Sales", "Packs", "Investment", "Expenses", "DayProfit", "Overall", "LowStock"},
		{"2024-09-28", "karim", "9000", "9", "0", "0", "900", "0", ""},
		{"2024-09-30", "karim", "1,000", "4", "0", "0", "250", "0", ""},
		{"2024-10-05", "karim", "2500.5", "10", "0", "0", "500", "0", ""},
		{"2024-10-05", "sumi", "7000", "7", "0", "0", "700", "0", ""},
		{"bad", "karim", "1", "1", "0", "0", "1", "0", ""},
	}}
	svc := NewService(testBooks(), nil, nil, sheet, time.UTC, nil)

	report, err := svc.WeeklyReport(context.Background(), "karim", time.Date(2024, 10, 5, 22, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "Weekly summary (2024-09-29-2024-10-05): 3,500.5 TK sales, 14 packs, 750 TK profit across 2 days.", report)

	empty, err := svc.WeeklyReport(context.Background(), "nobody", time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, empty, "no records yet")

	_, err = NewService(testBooks(), nil, nil, nil, time.UTC, nil).WeeklyReport(context.Background(), "karim", time.Now())
	assert.Error(t, err)
}

func TestFormatTK(t *testing.T) {
	cases := map[float64]string{
		0:         "0",
		999:       "999",
		1000:      "1,000",
		1234567.5: "1,234,567.5",
		-2500:     "-2,500",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatTK(in))
	}
}
