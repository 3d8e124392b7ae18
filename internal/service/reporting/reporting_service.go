package reporting

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/repository/mongodb"
	repo "github.com/mamadbah2/packwrap/internal/repository/sheets"
)

const dateLayout = "2006-01-02"

// BooksReader is the slice of the bookkeeping service reports are built from.
type BooksReader interface {
	Export(ctx context.Context, ns string) (models.Snapshot, error)
	Overview(ctx context.Context, ns string) (models.Overview, error)
}

// DraftLister counts the orders still waiting for dispatch.
type DraftLister interface {
	ListDrafts(ctx context.Context, ns string, status models.DraftStatus) ([]models.OrderDraft, error)
}

// Service builds and archives the end-of-day summaries.
type Service struct {
	books     BooksReader
	drafts    DraftLister
	summaries mongodb.SummaryRepository
	sheet     repo.Repository
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a new reporting service instance. summaries and sheet are
// optional archives.
func NewService(books BooksReader, drafts DraftLister, summaries mongodb.SummaryRepository, sheet repo.Repository, location *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		books:     books,
		drafts:    drafts,
		summaries: summaries,
		sheet:     sheet,
		location:  location,
		logger:    logger,
		now:       time.Now,
	}
}

// BuildDailySummary computes the figures of one day for an account.
func (s *Service) BuildDailySummary(ctx context.Context, ns string, day time.Time) (models.DailySummary, error) {
	date := day.In(s.location).Format(dateLayout)

	snap, err := s.books.Export(ctx, ns)
	if err != nil {
		return models.DailySummary{}, fmt.Errorf("load books: %w", err)
	}
	overview, err := s.books.Overview(ctx, ns)
	if err != nil {
		return models.DailySummary{}, fmt.Errorf("load overview: %w", err)
	}

	summary := models.DailySummary{
		Owner:         ns,
		Date:          date,
		OverallProfit: overview.Totals.Overall,
		LowStock:      overview.Highlights.LowStock,
		CreatedAt:     s.now().UTC(),
	}
	var estProfit float64
	for _, sale := range snap.Sales {
		if sale.Date == date {
			summary.SalesAmount += sale.Revenue()
			summary.PacksSold += sale.Packs
			estProfit += sale.EstProfit
		}
	}
	for _, inv := range snap.Investments {
		if inv.Date == date {
			summary.Investment += inv.Cost
		}
	}
	for _, exp := range snap.Expenses {
		if exp.Date == date {
			summary.Expenses += exp.Amount
		}
	}
	summary.DayProfit = estProfit - summary.Expenses

	if s.drafts != nil {
		pending, err := s.drafts.ListDrafts(ctx, ns, models.DraftPending)
		if err != nil {
			return models.DailySummary{}, fmt.Errorf("load drafts: %w", err)
		}
		summary.PendingDrafts = len(pending)
	}
	if summary.LowStock == nil {
		summary.LowStock = []string{}
	}
	return summary, nil
}

// DailyReport builds the summary of day, archives it and returns the text
// sent to the owner. Archive failures are logged and do not block the report.
func (s *Service) DailyReport(ctx context.Context, ns string, day time.Time) (string, error) {
	summary, err := s.BuildDailySummary(ctx, ns, day)
	if err != nil {
		return "", err
	}

	if s.summaries != nil {
		if err := s.summaries.SaveDailySummary(ctx, summary); err != nil {
			s.logger.Error("failed to store daily summary", zap.String("owner", ns), zap.Error(err))
		}
	}
	if s.sheet != nil {
		if err := repo.AppendSummary(ctx, s.sheet, summary); err != nil {
			s.logger.Error("failed to export daily summary", zap.String("owner", ns), zap.Error(err))
		}
	}

	return FormatSummary(summary), nil
}

// FormatSummary renders a summary as a WhatsApp message.
func FormatSummary(s models.DailySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PackWrap daily summary (%s)\n", s.Date)
	fmt.Fprintf(&b, "Sales: %s TK (%d packs)\n", formatTK(s.SalesAmount), s.PacksSold)
	fmt.Fprintf(&b, "Investment: %s TK\n", formatTK(s.Investment))
	fmt.Fprintf(&b, "Expenses: %s TK\n", formatTK(s.Expenses))
	fmt.Fprintf(&b, "Day profit: %s TK\n", formatTK(s.DayProfit))
	if s.OverallProfit >= 0 {
		fmt.Fprintf(&b, "Overall profit: %s TK\n", formatTK(s.OverallProfit))
	} else {
		fmt.Fprintf(&b, "Overall loss: %s TK\n", formatTK(-s.OverallProfit))
	}
	fmt.Fprintf(&b, "Pending drafts: %d\n", s.PendingDrafts)
	if len(s.LowStock) > 0 {
		fmt.Fprintf(&b, "Low stock: %s", strings.Join(s.LowStock, ", "))
	} else {
		b.WriteString("Low stock: All OK")
	}
	return b.String()
}

// WeeklyReport sums the archived sheet rows of the seven days ending at end.
func (s *Service) WeeklyReport(ctx context.Context, ns string, end time.Time) (string, error) {
	if s.sheet == nil {
		return "", fmt.Errorf("weekly report needs the sheet archive")
	}

	rows, err := s.sheet.ReadRange(ctx, repo.SummaryRange)
	if err != nil {
		return "", fmt.Errorf("load summary range: %w", err)
	}

	end = end.In(s.location)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	first := last.AddDate(0, 0, -6)

	var sales, profit float64
	var packs, days int
	for _, row := range rows {
		if len(row) < 7 || fmt.Sprint(row[1]) != ns {
			continue
		}

		dateValue, err := parseDate(row[0])
		if err != nil {
			s.logger.Debug("skip summary row with invalid date", zap.Any("value", row[0]), zap.Error(err))
			continue
		}
		if dateValue.Before(first) || dateValue.After(last) {
			continue
		}

		amount, err := parseFloat(row[2])
		if err != nil {
			continue
		}
		sold, err := parseInt(row[3])
		if err != nil {
			continue
		}
		dayProfit, err := parseFloat(row[6])
		if err != nil {
			continue
		}

		sales += amount
		packs += sold
		profit += dayProfit
		days++
	}

	if days == 0 {
		return fmt.Sprintf("Weekly summary (%s-%s): no records yet.", first.Format(dateLayout), last.Format(dateLayout)), nil
	}
	return fmt.Sprintf("Weekly summary (%s-%s): %s TK sales, %d packs, %s TK profit across %d days.",
		first.Format(dateLayout), last.Format(dateLayout), formatTK(sales), packs, formatTK(profit), days), nil
}

// formatTK prints an amount with thousands separators, like 12,500.5.
func formatTK(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString("." + frac)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func parseDate(value interface{}) (time.Time, error) {
	str := fmt.Sprint(value)
	if str == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(str) > 10 {
		str = str[:10]
	}
	return time.Parse(dateLayout, str)
}

func parseInt(value interface{}) (int, error) {
	str := fmt.Sprint(value)
	if str == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	return strconv.Atoi(strings.ReplaceAll(str, ",", ""))
}

func parseFloat(value interface{}) (float64, error) {
	str := fmt.Sprint(value)
	if str == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	return strconv.ParseFloat(strings.ReplaceAll(str, ",", ""), 64)
}
