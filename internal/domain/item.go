package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMinStockLevel is the reorder threshold applied when none is given.
const DefaultMinStockLevel = 10

// Item is a stocked product. Stock never goes below zero; every change to
// Stock is paired with a WarehouseLog entry recording the movement.
type Item struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Barcode       string          `json:"barcode,omitempty"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	Stock         int             `json:"stock"`
	MinStockLevel int             `json:"minStockLevel"`
	Unit          string          `json:"unit,omitempty"`
	Location      string          `json:"location,omitempty"`
	DistributorID *int64          `json:"distributorId,omitempty"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	Distributor *Distributor `json:"distributor,omitempty"`
}

// IsLowStock reports whether the item is at or below its reorder threshold.
func (i *Item) IsLowStock() bool {
	return i.Stock <= i.MinStockLevel
}

// NewItemID derives a stable identifier from the SKU, falling back to a
// timestamp suffix when the SKU is empty.
func NewItemID(sku string, now time.Time) string {
	s := strings.ToLower(strings.TrimSpace(sku))
	if s == "" {
		return fmt.Sprintf("item-%d", now.UnixMilli())
	}
	return strings.ReplaceAll(s, " ", "-")
}
