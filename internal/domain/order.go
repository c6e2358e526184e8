package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether the status is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderPriority ranks how urgently an order should be fulfilled.
type OrderPriority string

const (
	PriorityLow    OrderPriority = "low"
	PriorityMedium OrderPriority = "medium"
	PriorityHigh   OrderPriority = "high"
	PriorityUrgent OrderPriority = "urgent"
)

// Valid reports whether the priority is one of the known priorities.
func (p OrderPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Order is a customer order with its lines. Monetary fields use exact
// decimal arithmetic; FinalAmount is always TotalAmount - DiscountAmount
// + TaxAmount.
type Order struct {
	ID             int64           `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	CustomerID     int64           `json:"customerId"`
	Status         OrderStatus     `json:"status"`
	Priority       OrderPriority   `json:"priority"`
	OrderDate      time.Time       `json:"orderDate"`
	RequiredDate   *time.Time      `json:"requiredDate,omitempty"`
	ShippedDate    *time.Time      `json:"shippedDate,omitempty"`
	DeliveredDate  *time.Time      `json:"deliveredDate,omitempty"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	FinalAmount    decimal.Decimal `json:"finalAmount"`
	Notes          string          `json:"notes,omitempty"`
	CreatedBy      int64           `json:"createdBy"`
	AssignedTo     *int64          `json:"assignedTo,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	Customer *Customer   `json:"customer,omitempty"`
	Creator  *User       `json:"creator,omitempty"`
	Assignee *User       `json:"assignee,omitempty"`
	Lines    []OrderLine `json:"items"`
}

// CanCancel reports whether the order may still be cancelled. Orders that
// have already shipped or been delivered cannot.
func (o *Order) CanCancel() bool {
	return o.Status != OrderStatusShipped && o.Status != OrderStatusDelivered
}

// ComputeTotals derives the order-level amounts from its lines. TotalAmount
// is the gross sum before discounts, DiscountAmount accumulates each line's
// percentage discount. TaxAmount is currently always zero but participates in
// the final amount so the formula holds if taxation is introduced later.
func (o *Order) ComputeTotals() {
	total := decimal.Zero
	discount := decimal.Zero
	for i := range o.Lines {
		total = total.Add(o.Lines[i].Gross())
		discount = discount.Add(o.Lines[i].DiscountValue())
	}
	o.TotalAmount = total
	o.DiscountAmount = discount
	o.FinalAmount = total.Sub(discount).Add(o.TaxAmount)
}

// NewOrderNumber generates a unique order number from the current time.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d", now.UnixMilli())
}

// OrderLine is a single item position on an order. TotalPrice is always
// recomputed from quantity, unit price, and percentage discount before
// persistence; client-supplied totals are ignored.
type OrderLine struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"orderId"`
	ItemID     string          `json:"itemId"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Discount   decimal.Decimal `json:"discount"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Notes      string          `json:"notes,omitempty"`

	Item *Item `json:"item,omitempty"`
}

// Gross returns quantity * unitPrice before any discount.
func (l *OrderLine) Gross() decimal.Decimal {
	return decimal.NewFromInt(int64(l.Quantity)).Mul(l.UnitPrice)
}

// DiscountValue returns the monetary value of the line's percentage discount.
func (l *OrderLine) DiscountValue() decimal.Decimal {
	return l.Gross().Mul(l.Discount).Div(decimal.NewFromInt(100))
}

// ComputeTotal sets TotalPrice to the gross amount minus the line discount.
func (l *OrderLine) ComputeTotal() {
	l.TotalPrice = l.Gross().Sub(l.DiscountValue())
}
