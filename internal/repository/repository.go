package repository

import (
	"context"
	"time"

	"github.com/tidemark/stockroom/internal/domain"
)

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	Status     *domain.OrderStatus
	Priority   *domain.OrderPriority
	CustomerID *int64
	AssignedTo *int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
	Sort       string
	Page       int
	PerPage    int
}

// OrderUpdate carries the mutable order fields for a partial update. Nil
// fields are left unchanged.
type OrderUpdate struct {
	Status       *domain.OrderStatus
	Priority     *domain.OrderPriority
	RequiredDate *time.Time
	Notes        *string
	AssignedTo   *int64
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts a new order and its lines into the store atomically.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its identifier, including lines and
	// related customer and user records.
	GetByID(ctx context.Context, id int64) (*domain.Order, error)

	// List returns orders matching the given filter along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// ListByCustomer returns all orders for the given customer.
	ListByCustomer(ctx context.Context, customerID int64, page, perPage int) ([]domain.Order, int, error)

	// Update applies a partial update to an order's mutable fields.
	Update(ctx context.Context, id int64, update OrderUpdate) error

	// UpdateStatus changes the status of an order, stamping the shipped or
	// delivered date when the new status warrants it.
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error

	// CountByCustomer returns the number of orders referencing a customer.
	CountByCustomer(ctx context.Context, customerID int64) (int, error)
}

// ItemFilter defines filter criteria for listing inventory items.
type ItemFilter struct {
	Category        *string
	DistributorID   *int64
	LowStock        bool
	IncludeInactive bool
	Search          string
	Sort            string
	Page            int
	PerPage         int
}

// ItemRepository defines the interface for inventory persistence operations.
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	List(ctx context.Context, filter ItemFilter) ([]domain.Item, int, error)
	Update(ctx context.Context, item *domain.Item) error

	// SetStock sets an item's stock to an absolute value under a row lock and
	// records a paired adjustment log entry in the same transaction. It
	// returns the updated item.
	SetStock(ctx context.Context, id string, newStock int, note string, performedBy int64) (*domain.Item, error)

	// Categories returns the distinct non-empty categories of active items.
	Categories(ctx context.Context) ([]string, error)

	// CountOrderLines returns the number of order lines referencing an item.
	CountOrderLines(ctx context.Context, id string) (int, error)

	Delete(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
}

// CustomerRepository defines the interface for customer persistence operations.
type CustomerRepository interface {
	Create(ctx context.Context, c *domain.Customer) error
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	List(ctx context.Context, search string, includeInactive bool, page, perPage int) ([]domain.Customer, int, error)
	Update(ctx context.Context, c *domain.Customer) error
	Delete(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
}

// DistributorRepository defines the interface for distributor persistence operations.
type DistributorRepository interface {
	Create(ctx context.Context, d *domain.Distributor) error
	GetByID(ctx context.Context, id int64) (*domain.Distributor, error)
	List(ctx context.Context, search string, includeInactive bool, page, perPage int) ([]domain.Distributor, int, error)
	Update(ctx context.Context, d *domain.Distributor) error

	// CountItems returns the number of items referencing a distributor.
	CountItems(ctx context.Context, id int64) (int, error)

	Delete(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
}

// WarehouseLogFilter defines filter criteria for listing warehouse movements.
type WarehouseLogFilter struct {
	ItemID   *string
	Type     *domain.MovementType
	Status   *domain.MovementStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PerPage  int
}

// MovementSummary aggregates movement quantities by type.
type MovementSummary struct {
	Type          domain.MovementType `json:"type"`
	Count         int                 `json:"count"`
	TotalQuantity int                 `json:"totalQuantity"`
}

// WarehouseLogRepository defines the interface for the stock movement ledger.
type WarehouseLogRepository interface {
	// Create inserts an audit-only movement log entry. It never touches
	// item stock.
	Create(ctx context.Context, log *domain.WarehouseLog) error

	// CreateWithStockAdjust inserts an adjustment log entry and applies its
	// signed delta to the referenced item within a single transaction. Stock
	// is clamped at zero. It returns the updated item alongside the log.
	CreateWithStockAdjust(ctx context.Context, log *domain.WarehouseLog, delta int) (*domain.Item, error)

	GetByID(ctx context.Context, id int64) (*domain.WarehouseLog, error)
	List(ctx context.Context, filter WarehouseLogFilter) ([]domain.WarehouseLog, int, error)
	Summary(ctx context.Context, dateFrom, dateTo *time.Time) ([]MovementSummary, error)

	// Update modifies the status and notes of an existing log entry. It does
	// not retroactively change stock.
	Update(ctx context.Context, id int64, status domain.MovementStatus, notes *string) error

	Delete(ctx context.Context, id int64) error
}

// UserRepository defines the interface for user account persistence.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}
