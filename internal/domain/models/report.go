package models

import "time"

// DailySummary is the end-of-day bookkeeping snapshot stored in MongoDB.
type DailySummary struct {
	Owner         string    `bson:"owner" json:"owner"`
	Date          string    `bson:"date" json:"date"`
	SalesAmount   float64   `bson:"sales_amount" json:"sales_amount"`
	PacksSold     int       `bson:"packs_sold" json:"packs_sold"`
	Investment    float64   `bson:"investment" json:"investment"`
	Expenses      float64   `bson:"expenses" json:"expenses"`
	DayProfit     float64   `bson:"day_profit" json:"day_profit"`
	OverallProfit float64   `bson:"overall_profit" json:"overall_profit"`
	PendingDrafts int       `bson:"pending_drafts" json:"pending_drafts"`
	LowStock      []string  `bson:"low_stock" json:"low_stock"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
