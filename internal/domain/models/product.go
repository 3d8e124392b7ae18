package models

import "strings"

// Product is one sellable variant. Prices are per single piece; stock moves in
// packs of 100.
type Product struct {
	Type   string   `json:"type" bson:"type"`
	Size   string   `json:"size" bson:"size"`
	Color  string   `json:"color" bson:"color"`
	Buy1   float64  `json:"buy1" bson:"buy1"`
	Sell1  float64  `json:"sell1" bson:"sell1"`
	Lowest *float64 `json:"lowest" bson:"lowest,omitempty"`
}

// PackSize is the number of pieces in one pack.
const PackSize = 100

// UniqueKey identifies a product across all three attributes.
func (p Product) UniqueKey() string {
	return p.Type + "|" + p.Size + "|" + p.Color
}

// Key is the product key referenced by investments and sales.
func (p Product) Key() string {
	return ProductKey(p.Size, p.Color)
}

// BelowMarket reports whether the selling price is under the lowest market price.
func (p Product) BelowMarket() bool {
	return p.Lowest != nil && p.Sell1 < *p.Lowest
}

// ProductKey builds the "size | color" key.
func ProductKey(size, color string) string {
	return size + " | " + color
}

// SplitProductKey returns the size and color parts of a product key.
func SplitProductKey(key string) (size, color string) {
	size, color, _ = strings.Cut(key, " | ")
	return size, color
}

// AttributeKind names one of the managed attribute lists.
type AttributeKind string

const (
	AttributeType  AttributeKind = "types"
	AttributeSize  AttributeKind = "sizes"
	AttributeColor AttributeKind = "colors"
)

// Valid reports whether the kind is one of the managed lists.
func (k AttributeKind) Valid() bool {
	switch k {
	case AttributeType, AttributeSize, AttributeColor:
		return true
	}
	return false
}
