package models

import (
	"strconv"
	"strings"
	"time"
)

// ParsedOrder is the best-effort structure extracted from a customer message.
// Unresolved string fields are empty and unresolved numbers are nil.
type ParsedOrder struct {
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	Address   string   `json:"address"`
	Size      string   `json:"size"`
	Pieces    *int     `json:"pieces"`
	CODAmount *float64 `json:"codAmount"`
	Raw       string   `json:"raw"`
}

// Missing lists the fields that still need manual correction.
func (o ParsedOrder) Missing() []string {
	var missing []string
	if o.Name == "" {
		missing = append(missing, "name")
	}
	if o.Phone == "" {
		missing = append(missing, "phone")
	}
	if o.Address == "" {
		missing = append(missing, "address")
	}
	if o.Size == "" {
		missing = append(missing, "size")
	}
	if o.Pieces == nil {
		missing = append(missing, "pieces")
	}
	if o.CODAmount == nil {
		missing = append(missing, "codAmount")
	}
	return missing
}

// Text renders the resolved fields as a labelled message.
func (o ParsedOrder) Text() string {
	var lines []string
	if o.Name != "" {
		lines = append(lines, "Name: "+o.Name)
	}
	if o.Phone != "" {
		lines = append(lines, "Phone: "+o.Phone)
	}
	if o.Address != "" {
		lines = append(lines, "Address: "+o.Address)
	}
	if o.Size != "" {
		lines = append(lines, "Size: "+o.Size)
	}
	if o.Pieces != nil {
		lines = append(lines, "Qty: "+strconv.Itoa(*o.Pieces)+" pcs")
	}
	if o.CODAmount != nil {
		lines = append(lines, "Total = "+FormatAmount(*o.CODAmount))
	}
	return strings.Join(lines, "\n")
}

// FormatAmount prints an amount without trailing zeros.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DraftStatus tracks an order draft through dispatch.
type DraftStatus string

const (
	DraftPending    DraftStatus = "draft"
	DraftDispatched DraftStatus = "dispatched"
)

// OrderDraft is a parsed order waiting for review and dispatch.
type OrderDraft struct {
	ID            string      `json:"id"`
	Status        DraftStatus `json:"status"`
	Source        string      `json:"source"`
	Order         ParsedOrder `json:"order"`
	ConsignmentID string      `json:"consignmentId,omitempty"`
	TrackingCode  string      `json:"trackingCode,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}
