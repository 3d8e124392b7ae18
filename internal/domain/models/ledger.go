package models

// InventoryEntry records a purchase of packs for one product key.
type InventoryEntry struct {
	ID    string  `json:"id,omitempty"`
	Key   string  `json:"key"`
	Packs int     `json:"packs"`
	Batch int     `json:"batch"`
	Date  string  `json:"date"`
	Cost  float64 `json:"cost"`
}

// Sale records packs sold to a customer.
type Sale struct {
	ID        string  `json:"id,omitempty"`
	Key       string  `json:"key"`
	Packs     int     `json:"packs"`
	Price100  float64 `json:"price100"`
	Date      string  `json:"date"`
	Batch     int     `json:"batch"`
	Customer  string  `json:"customer"`
	Contact   string  `json:"contact"`
	Pay       string  `json:"pay"`
	EstProfit float64 `json:"estProfit"`
}

// Revenue is the sale amount.
func (s Sale) Revenue() float64 {
	return s.Price100 * float64(s.Packs)
}

// Expense captures operating costs such as ad boosts or delivery.
type Expense struct {
	ID     string  `json:"id,omitempty"`
	Type   string  `json:"type"`
	Desc   string  `json:"desc"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// Snapshot is the JSON backup of every record collection. Nil collections are
// left untouched on import.
type Snapshot struct {
	Products    []Product        `json:"products"`
	Investments []InventoryEntry `json:"investments"`
	Sales       []Sale           `json:"sales"`
	Expenses    []Expense        `json:"expenses"`
}

// InventoryLevel is the stock position of one product key.
type InventoryLevel struct {
	Key       string `json:"key"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Purchased int    `json:"purchased"`
	Sold      int    `json:"sold"`
	Remaining int    `json:"remaining"`
}

// Totals aggregates the overview figures.
type Totals struct {
	Investment1 float64 `json:"inv1"`
	Investment2 float64 `json:"inv2"`
	Sales1      float64 `json:"sell1"`
	Sales2      float64 `json:"sell2"`
	Expenses    float64 `json:"exp"`
	Overall     float64 `json:"overall"`
}

// BestSeller is the product key with the most packs sold.
type BestSeller struct {
	Key   string `json:"key"`
	Packs int    `json:"packs"`
}

// Highlights are the overview badges.
type Highlights struct {
	Customers  int         `json:"customers"`
	BestSeller *BestSeller `json:"bestSeller"`
	LowStock   []string    `json:"lowStock"`
}

// Overview bundles totals and highlights.
type Overview struct {
	Totals     Totals     `json:"totals"`
	Highlights Highlights `json:"highlights"`
}

// Series is a labelled chart series.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Charts holds the data behind the overview charts.
type Charts struct {
	DailyProfit       Series `json:"dailyProfit"`
	MonthlySales      Series `json:"monthlySales"`
	MonthlyInvestment Series `json:"monthlyInvestment"`
}

// CustomerRow is one date+customer group of the monthly customer sheet.
type CustomerRow struct {
	Date  string         `json:"date"`
	Index int            `json:"index"`
	Name  string         `json:"name"`
	Sizes map[string]int `json:"sizes"`
	Total float64        `json:"total"`
}

// CustomerSummary is the monthly customer sheet.
type CustomerSummary struct {
	Month string        `json:"month"`
	Sizes []string      `json:"sizes"`
	Rows  []CustomerRow `json:"rows"`
}
