package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidemark/stockroom/internal/domain"
	"github.com/tidemark/stockroom/internal/event"
	"github.com/tidemark/stockroom/internal/repository"
	apperrors "github.com/tidemark/stockroom/pkg/errors"
)

// OrderService implements the business logic for order operations.
type OrderService struct {
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	items     repository.ItemRepository
	users     repository.UserRepository
	producer  *event.Producer
	logger    *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	customers repository.CustomerRepository,
	items repository.ItemRepository,
	users repository.UserRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		customers: customers,
		items:     items,
		users:     users,
		producer:  producer,
		logger:    logger,
	}
}

// CreateOrderLineInput holds the parameters for one order line.
type CreateOrderLineInput struct {
	ItemID    string
	Quantity  int
	UnitPrice *decimal.Decimal
	Discount  decimal.Decimal
	Notes     string
}

// CreateOrderInput holds the parameters for creating an order.
type CreateOrderInput struct {
	CustomerID   int64
	Priority     domain.OrderPriority
	RequiredDate *time.Time
	Notes        string
	AssignedTo   *int64
	Lines        []CreateOrderLineInput
}

// CreateOrder validates the input, recomputes all monetary amounts, and
// persists the order with its lines atomically. Line totals are always
// derived from quantity, unit price, and discount; any client-supplied
// total is ignored.
func (s *OrderService) CreateOrder(ctx context.Context, createdBy int64, input CreateOrderInput) (*domain.Order, error) {
	if len(input.Lines) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid priority %q", input.Priority))
	}
	// Deactivated customers may still place orders; only a missing customer
	// fails the request.
	if _, err := s.customers.GetByID(ctx, input.CustomerID); err != nil {
		return nil, fmt.Errorf("get order customer: %w", err)
	}

	if input.AssignedTo != nil {
		if _, err := s.users.GetByID(ctx, *input.AssignedTo); err != nil {
			return nil, fmt.Errorf("get order assignee: %w", err)
		}
	}

	now := time.Now().UTC()

	// Resolve every item before writing anything so a bad line fails the
	// whole request up front.
	lines := make([]domain.OrderLine, len(input.Lines))
	for i, lineInput := range input.Lines {
		if lineInput.Quantity < 1 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("line %d: quantity must be at least 1", i+1))
		}
		if lineInput.Discount.IsNegative() || lineInput.Discount.GreaterThan(decimal.NewFromInt(100)) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("line %d: discount must be between 0 and 100", i+1))
		}
		if lineInput.UnitPrice != nil && lineInput.UnitPrice.IsNegative() {
			return nil, apperrors.InvalidInput(fmt.Sprintf("line %d: unit price cannot be negative", i+1))
		}

		item, err := s.items.GetByID(ctx, lineInput.ItemID)
		if err != nil {
			return nil, fmt.Errorf("get order item %s: %w", lineInput.ItemID, err)
		}

		unitPrice := item.Price
		if lineInput.UnitPrice != nil {
			unitPrice = *lineInput.UnitPrice
		}

		lines[i] = domain.OrderLine{
			ItemID:    item.ID,
			Quantity:  lineInput.Quantity,
			UnitPrice: unitPrice,
			Discount:  lineInput.Discount,
			Notes:     lineInput.Notes,
		}
		lines[i].ComputeTotal()
	}

	order := &domain.Order{
		OrderNumber:  domain.NewOrderNumber(now),
		CustomerID:   input.CustomerID,
		Status:       domain.OrderStatusPending,
		Priority:     input.Priority,
		OrderDate:    now,
		RequiredDate: input.RequiredDate,
		TaxAmount:    decimal.Zero,
		Notes:        input.Notes,
		CreatedBy:    createdBy,
		AssignedTo:   input.AssignedTo,
		CreatedAt:    now,
		UpdatedAt:    now,
		Lines:        lines,
	}
	order.ComputeTotals()

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.Int64("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "order created",
		slog.Int64("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.Int64("customer_id", order.CustomerID),
		slog.String("final_amount", order.FinalAmount.String()),
	)

	return s.orders.GetByID(ctx, order.ID)
}

// GetOrder retrieves an order by its ID.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return order, nil
}

// ListOrders returns a filtered, paginated list of orders.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 10
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// ListOrdersByCustomer returns the order history of a single customer.
func (s *OrderService) ListOrdersByCustomer(ctx context.Context, customerID int64, page, perPage int) ([]domain.Order, int, error) {
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, 0, fmt.Errorf("get customer for orders: %w", err)
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 10
	}

	orders, total, err := s.orders.ListByCustomer(ctx, customerID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list customer orders: %w", err)
	}
	return orders, total, nil
}

// UpdateOrder applies a partial update to an order's mutable fields.
func (s *OrderService) UpdateOrder(ctx context.Context, id int64, update repository.OrderUpdate) (*domain.Order, error) {
	if update.Priority != nil && !update.Priority.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid priority %q", *update.Priority))
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", *update.Status))
	}
	if update.AssignedTo != nil {
		if _, err := s.users.GetByID(ctx, *update.AssignedTo); err != nil {
			return nil, fmt.Errorf("get order assignee: %w", err)
		}
	}

	if err := s.orders.Update(ctx, id, update); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	return s.orders.GetByID(ctx, id)
}

// UpdateOrderStatus moves the order to any valid status and stamps the
// shipped or delivered date when applicable.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id int64, newStatus domain.OrderStatus) (*domain.Order, error) {
	if !newStatus.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", newStatus))
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}

	oldStatus := order.Status

	if err := s.orders.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, id, oldStatus, newStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.Int64("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.Int64("order_id", id),
		slog.String("old_status", string(oldStatus)),
		slog.String("new_status", string(newStatus)),
	)

	return s.orders.GetByID(ctx, id)
}

// CancelOrder cancels an order unless it has already shipped or been
// delivered, in which case the request conflicts with the order's state.
func (s *OrderService) CancelOrder(ctx context.Context, id int64, reason string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for cancel: %w", err)
	}

	if !order.CanCancel() {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot cancel order in %q status", order.Status))
	}

	if err := s.orders.UpdateStatus(ctx, id, domain.OrderStatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	if err := s.producer.PublishOrderCancelled(ctx, order, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.cancelled event",
			slog.Int64("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.Int64("order_id", id),
		slog.String("reason", reason),
	)

	return s.orders.GetByID(ctx, id)
}
