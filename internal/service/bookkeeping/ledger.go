package bookkeeping

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/repository/kv"
)

func investmentID(r *models.InventoryEntry) *string { return &r.ID }
func saleID(r *models.Sale) *string                 { return &r.ID }
func expenseID(r *models.Expense) *string           { return &r.ID }

// InvestmentInput is a purchase of packs.
type InvestmentInput struct {
	Key   string `json:"key"`
	Packs int    `json:"packs"`
	Batch int    `json:"batch"`
	Date  string `json:"date"`
}

// AddInvestment records a purchase; its cost comes from the product buy price.
func (s *Service) AddInvestment(ctx context.Context, ns string, in InvestmentInput) (models.InventoryEntry, error) {
	if in.Packs <= 0 {
		return models.InventoryEntry{}, invalid("packs must be positive")
	}
	if !validBatch(in.Batch) {
		return models.InventoryEntry{}, invalid("batch must be 1 or 2")
	}
	date, err := s.normalizeDate(in.Date)
	if err != nil {
		return models.InventoryEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.loadProducts(ctx, ns)
	if err != nil {
		return models.InventoryEntry{}, err
	}
	if _, ok := findProduct(products, in.Key); !ok {
		return models.InventoryEntry{}, invalid("unknown product %q", in.Key)
	}

	list, err := loadRecords(ctx, s, ns, kv.KeyInvestments, investmentID)
	if err != nil {
		return models.InventoryEntry{}, err
	}

	entry := models.InventoryEntry{
		ID:    s.newID(),
		Key:   in.Key,
		Packs: in.Packs,
		Batch: in.Batch,
		Date:  date,
		Cost:  costFor(products, in.Key, in.Packs),
	}
	if err := saveList(ctx, s.store, ns, kv.KeyInvestments, append(list, entry)); err != nil {
		return models.InventoryEntry{}, err
	}
	return entry, nil
}

// ListInvestments returns purchases in insertion order.
func (s *Service) ListInvestments(ctx context.Context, ns string) ([]models.InventoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadRecords(ctx, s, ns, kv.KeyInvestments, investmentID)
}

// DeleteInvestment removes one purchase.
func (s *Service) DeleteInvestment(ctx context.Context, ns, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := loadRecords(ctx, s, ns, kv.KeyInvestments, investmentID)
	if err != nil {
		return err
	}
	list, ok := removeByID(list, id, investmentID)
	if !ok {
		return ErrNotFound
	}
	return saveList(ctx, s.store, ns, kv.KeyInvestments, list)
}

// Inventory reports purchased, sold and remaining packs per product key.
func (s *Service) Inventory(ctx context.Context, ns string) ([]models.InventoryLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loadSnapshot(ctx, ns)
	if err != nil {
		return nil, err
	}
	return inventoryLevels(snap), nil
}

func inventoryLevels(snap models.Snapshot) []models.InventoryLevel {
	purchased := map[string]int{}
	for _, r := range snap.Investments {
		purchased[r.Key] += r.Packs
	}
	sold := map[string]int{}
	for _, r := range snap.Sales {
		sold[r.Key] += r.Packs
	}

	keys := productKeys(snap.Products)
	levels := make([]models.InventoryLevel, 0, len(keys))
	for _, k := range keys {
		size, color := models.SplitProductKey(k)
		levels = append(levels, models.InventoryLevel{
			Key:       k,
			Size:      size,
			Color:     color,
			Purchased: purchased[k],
			Sold:      sold[k],
			Remaining: purchased[k] - sold[k],
		})
	}
	return levels
}

// SaleInput is a sale of packs. Price100 defaults to the product sell price.
type SaleInput struct {
	Key      string   `json:"key"`
	Packs    int      `json:"packs"`
	Price100 *float64 `json:"price100"`
	Date     string   `json:"date"`
	Batch    int      `json:"batch"`
	Customer string   `json:"customer"`
	Contact  string   `json:"contact"`
	Pay      string   `json:"pay"`
}

// AddSale records a sale along with its estimated profit.
func (s *Service) AddSale(ctx context.Context, ns string, in SaleInput) (models.Sale, error) {
	if in.Packs <= 0 {
		return models.Sale{}, invalid("packs must be positive")
	}
	if !validBatch(in.Batch) {
		return models.Sale{}, invalid("batch must be 1 or 2")
	}
	if in.Price100 != nil && *in.Price100 < 0 {
		return models.Sale{}, invalid("price must not be negative")
	}
	date, err := s.normalizeDate(in.Date)
	if err != nil {
		return models.Sale{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.loadProducts(ctx, ns)
	if err != nil {
		return models.Sale{}, err
	}
	if _, ok := findProduct(products, in.Key); !ok {
		return models.Sale{}, invalid("unknown product %q", in.Key)
	}

	list, err := loadRecords(ctx, s, ns, kv.KeySales, saleID)
	if err != nil {
		return models.Sale{}, err
	}

	sale := newSale(products, in.Key, in.Packs, in.Price100, date, in.Batch, in.Customer, in.Contact, in.Pay)
	sale.ID = s.newID()

	if err := saveList(ctx, s.store, ns, kv.KeySales, append(list, sale)); err != nil {
		return models.Sale{}, err
	}
	return sale, nil
}

func newSale(products []models.Product, key string, packs int, price100 *float64, date string, batch int, customer, contact, pay string) models.Sale {
	price := defaultPrice100(products, key)
	if price100 != nil && *price100 > 0 {
		price = *price100
	}
	pay = strings.TrimSpace(pay)
	if pay == "" {
		pay = "Other"
	}
	return models.Sale{
		Key:       key,
		Packs:     packs,
		Price100:  price,
		Date:      date,
		Batch:     batch,
		Customer:  strings.TrimSpace(customer),
		Contact:   strings.TrimSpace(contact),
		Pay:       pay,
		EstProfit: estimateProfit(products, key, packs, price),
	}
}

// ListSales returns sales newest first, optionally limited to a YYYY-MM month.
func (s *Service) ListSales(ctx context.Context, ns, month string) ([]models.Sale, error) {
	if month != "" {
		if _, err := time.Parse(monthLayout, month); err != nil {
			return nil, invalid("month %q must be YYYY-MM", month)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := loadRecords(ctx, s, ns, kv.KeySales, saleID)
	if err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(list, func(r models.Sale) bool {
		return month != "" && !strings.HasPrefix(r.Date, month)
	})
	sortNewestFirst(out, func(r models.Sale) string { return r.Date })
	return out, nil
}

// RecentSales returns the latest sales for the overview panel.
func (s *Service) RecentSales(ctx context.Context, ns string) ([]models.Sale, error) {
	list, err := s.ListSales(ctx, ns, "")
	if err != nil {
		return nil, err
	}
	if len(list) > recentSalesLimit {
		list = list[:recentSalesLimit]
	}
	return list, nil
}

// DeleteSale removes one sale.
func (s *Service) DeleteSale(ctx context.Context, ns, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := loadRecords(ctx, s, ns, kv.KeySales, saleID)
	if err != nil {
		return err
	}
	list, ok := removeByID(list, id, saleID)
	if !ok {
		return ErrNotFound
	}
	return saveList(ctx, s.store, ns, kv.KeySales, list)
}

// ExpenseInput is an operating cost.
type ExpenseInput struct {
	Type   string  `json:"type"`
	Desc   string  `json:"desc"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// AddExpense records an expense.
func (s *Service) AddExpense(ctx context.Context, ns string, in ExpenseInput) (models.Expense, error) {
	if in.Amount < 0 {
		return models.Expense{}, invalid("amount must not be negative")
	}
	date, err := s.normalizeDate(in.Date)
	if err != nil {
		return models.Expense{}, err
	}

	expense := models.Expense{
		ID:     s.newID(),
		Type:   strings.TrimSpace(in.Type),
		Desc:   strings.TrimSpace(in.Desc),
		Date:   date,
		Amount: in.Amount,
	}
	if expense.Type == "" {
		expense.Type = "Other"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := loadRecords(ctx, s, ns, kv.KeyExpenses, expenseID)
	if err != nil {
		return models.Expense{}, err
	}
	if err := saveList(ctx, s.store, ns, kv.KeyExpenses, append(list, expense)); err != nil {
		return models.Expense{}, err
	}
	return expense, nil
}

// AddBoostRange records one "Boost" expense per day, both ends included.
func (s *Service) AddBoostRange(ctx context.Context, ns, from, to string, perDay float64) ([]models.Expense, error) {
	if perDay <= 0 {
		return nil, invalid("per day amount must be positive")
	}
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, ErrInvalidRange
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return nil, ErrInvalidRange
	}
	if end.Before(start) || end.Sub(start) > maxBoostDays*24*time.Hour {
		return nil, ErrInvalidRange
	}

	var added []models.Expense
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		added = append(added, models.Expense{
			ID:     s.newID(),
			Type:   "Boost",
			Desc:   "Daily boost",
			Date:   d.Format(dateLayout),
			Amount: perDay,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := loadRecords(ctx, s, ns, kv.KeyExpenses, expenseID)
	if err != nil {
		return nil, err
	}
	if err := saveList(ctx, s.store, ns, kv.KeyExpenses, append(list, added...)); err != nil {
		return nil, err
	}
	return added, nil
}

// ListExpenses returns expenses newest first.
func (s *Service) ListExpenses(ctx context.Context, ns string) ([]models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := loadRecords(ctx, s, ns, kv.KeyExpenses, expenseID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(list, func(r models.Expense) string { return r.Date })
	return list, nil
}

// DeleteExpense removes one expense.
func (s *Service) DeleteExpense(ctx context.Context, ns, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := loadRecords(ctx, s, ns, kv.KeyExpenses, expenseID)
	if err != nil {
		return err
	}
	list, ok := removeByID(list, id, expenseID)
	if !ok {
		return ErrNotFound
	}
	return saveList(ctx, s.store, ns, kv.KeyExpenses, list)
}

func sortNewestFirst[T any](items []T, date func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int {
		return strings.Compare(date(b), date(a))
	})
}
