package domain

import "time"

// MovementType classifies a warehouse stock movement.
type MovementType string

const (
	MovementReceived   MovementType = "received"
	MovementShipped    MovementType = "shipped"
	MovementDamaged    MovementType = "damaged"
	MovementSpoiled    MovementType = "spoiled"
	MovementMissing    MovementType = "missing"
	MovementReturned   MovementType = "returned"
	MovementAdjustment MovementType = "adjustment"
)

// Valid reports whether the movement type is one of the known types.
func (t MovementType) Valid() bool {
	switch t {
	case MovementReceived, MovementShipped, MovementDamaged,
		MovementSpoiled, MovementMissing, MovementReturned, MovementAdjustment:
		return true
	}
	return false
}

// MovementStatus is the handling state of a logged movement.
type MovementStatus string

const (
	MovementStatusPending   MovementStatus = "pending"
	MovementStatusShipped   MovementStatus = "shipped"
	MovementStatusDelivered MovementStatus = "delivered"
	MovementStatusReceived  MovementStatus = "received"
	MovementStatusMissing   MovementStatus = "missing"
	MovementStatusDamaged   MovementStatus = "damaged"
	MovementStatusSpoiled   MovementStatus = "spoiled"
)

// Valid reports whether the status is one of the known movement statuses.
func (s MovementStatus) Valid() bool {
	switch s {
	case MovementStatusPending, MovementStatusShipped, MovementStatusDelivered,
		MovementStatusReceived, MovementStatusMissing, MovementStatusDamaged,
		MovementStatusSpoiled:
		return true
	}
	return false
}

// WarehouseLog is the append-only audit ledger of stock movements. Item and
// order references are optional; only adjustment entries with an item
// reference mutate stock, and they do so in the same transaction as the
// insert.
type WarehouseLog struct {
	ID          int64          `json:"id"`
	ItemID      *string        `json:"itemId,omitempty"`
	OrderID     *int64         `json:"orderId,omitempty"`
	Type        MovementType   `json:"type"`
	Quantity    int            `json:"quantity"`
	Status      MovementStatus `json:"status"`
	Reference   string         `json:"reference,omitempty"`
	Location    string         `json:"location,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	PerformedBy int64          `json:"performedBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`

	Item      *Item  `json:"item,omitempty"`
	Order     *Order `json:"order,omitempty"`
	Performer *User  `json:"performer,omitempty"`
}
