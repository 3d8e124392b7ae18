package bookkeeping

import (
	"context"
	"slices"
	"strings"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/repository/kv"
)

// Overview computes the dashboard totals and highlights.
func (s *Service) Overview(ctx context.Context, ns string) (models.Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loadSnapshot(ctx, ns)
	if err != nil {
		return models.Overview{}, err
	}
	return models.Overview{
		Totals:     computeTotals(snap),
		Highlights: computeHighlights(snap),
	}, nil
}

func computeTotals(snap models.Snapshot) models.Totals {
	var t models.Totals
	for _, r := range snap.Investments {
		switch r.Batch {
		case 1:
			t.Investment1 += r.Cost
		case 2:
			t.Investment2 += r.Cost
		}
	}
	for _, r := range snap.Sales {
		switch r.Batch {
		case 1:
			t.Sales1 += r.Revenue()
		case 2:
			t.Sales2 += r.Revenue()
		}
	}
	for _, r := range snap.Expenses {
		t.Expenses += r.Amount
	}
	t.Overall = (t.Sales1 + t.Sales2) - (t.Investment1 + t.Investment2) - t.Expenses
	return t
}

func computeHighlights(snap models.Snapshot) models.Highlights {
	customers := map[string]bool{}
	packs := map[string]int{}
	var order []string
	for _, r := range snap.Sales {
		customers[r.Customer] = true
		if _, ok := packs[r.Key]; !ok {
			order = append(order, r.Key)
		}
		packs[r.Key] += r.Packs
	}

	h := models.Highlights{Customers: len(customers), LowStock: []string{}}
	for _, k := range order {
		if h.BestSeller == nil || packs[k] > h.BestSeller.Packs {
			h.BestSeller = &models.BestSeller{Key: k, Packs: packs[k]}
		}
	}

	for _, level := range inventoryLevels(snap) {
		if level.Purchased > 0 && level.Remaining < lowStockThreshold {
			h.LowStock = append(h.LowStock, level.Key)
		}
	}
	return h
}

// Charts returns daily profit after expenses and monthly sales vs investment.
func (s *Service) Charts(ctx context.Context, ns string) (models.Charts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loadSnapshot(ctx, ns)
	if err != nil {
		return models.Charts{}, err
	}
	return computeCharts(snap), nil
}

func computeCharts(snap models.Snapshot) models.Charts {
	profitByDay := map[string]float64{}
	for _, r := range snap.Sales {
		profitByDay[r.Date] += r.EstProfit
	}
	for _, r := range snap.Expenses {
		profitByDay[r.Date] -= r.Amount
	}

	salesByMonth := map[string]float64{}
	investByMonth := map[string]float64{}
	for _, r := range snap.Sales {
		salesByMonth[month(r.Date)] += r.Revenue()
	}
	for _, r := range snap.Investments {
		investByMonth[month(r.Date)] += r.Cost
	}

	days := sortedKeys(profitByDay)
	months := sortedKeys(salesByMonth, investByMonth)

	charts := models.Charts{
		DailyProfit:       models.Series{Labels: days, Values: make([]float64, len(days))},
		MonthlySales:      models.Series{Labels: months, Values: make([]float64, len(months))},
		MonthlyInvestment: models.Series{Labels: months, Values: make([]float64, len(months))},
	}
	for i, d := range days {
		charts.DailyProfit.Values[i] = profitByDay[d]
	}
	for i, m := range months {
		charts.MonthlySales.Values[i] = salesByMonth[m]
		charts.MonthlyInvestment.Values[i] = investByMonth[m]
	}
	return charts
}

// Customers builds the monthly customer sheet: one row per date and customer
// with packs per size. An empty month means the current one.
func (s *Service) Customers(ctx context.Context, ns, monthFilter string) (models.CustomerSummary, error) {
	if monthFilter == "" {
		monthFilter = s.now().Format(monthLayout)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sales, err := loadRecords(ctx, s, ns, kv.KeySales, saleID)
	if err != nil {
		return models.CustomerSummary{}, err
	}
	sizes, err := s.loadAttributes(ctx, ns, models.AttributeSize)
	if err != nil {
		return models.CustomerSummary{}, err
	}

	summary := models.CustomerSummary{Month: monthFilter, Sizes: sizes, Rows: []models.CustomerRow{}}
	groups := map[string]int{}
	for _, sale := range sales {
		if !strings.HasPrefix(sale.Date, monthFilter) {
			continue
		}
		gk := sale.Date + "|" + sale.Customer
		idx, ok := groups[gk]
		if !ok {
			idx = len(summary.Rows)
			groups[gk] = idx
			summary.Rows = append(summary.Rows, models.CustomerRow{
				Date:  sale.Date,
				Name:  sale.Customer,
				Sizes: map[string]int{},
			})
		}
		size, _ := models.SplitProductKey(sale.Key)
		summary.Rows[idx].Sizes[size] += sale.Packs
		summary.Rows[idx].Total += sale.Revenue()
	}

	slices.SortStableFunc(summary.Rows, func(a, b models.CustomerRow) int {
		return strings.Compare(a.Date, b.Date)
	})
	for i := range summary.Rows {
		summary.Rows[i].Index = i + 1
	}
	return summary, nil
}

func month(date string) string {
	if len(date) < len(monthLayout) {
		return date
	}
	return date[:len(monthLayout)]
}

func sortedKeys[V any](maps ...map[string]V) []string {
	seen := map[string]bool{}
	keys := []string{}
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	slices.Sort(keys)
	return keys
}
