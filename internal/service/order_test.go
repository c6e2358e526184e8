package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tidemark/stockroom/internal/domain"
	"github.com/tidemark/stockroom/internal/repository"
	apperrors "github.com/tidemark/stockroom/pkg/errors"
)

type orderServiceMocks struct {
	orders    *mockOrderRepository
	customers *mockCustomerRepository
	items     *mockItemRepository
	users     *mockUserRepository
}

func newTestOrderService() (*OrderService, orderServiceMocks) {
	m := orderServiceMocks{
		orders:    new(mockOrderRepository),
		customers: new(mockCustomerRepository),
		items:     new(mockItemRepository),
		users:     new(mockUserRepository),
	}
	svc := NewOrderService(m.orders, m.customers, m.items, m.users, newTestProducer(), newTestLogger())
	return svc, m
}

func activeCustomer(id int64) *domain.Customer {
	return &domain.Customer{ID: id, Name: "Acme Bakery", IsActive: true}
}

func activeItem(id string, price string) *domain.Item {
	return &domain.Item{
		ID:       id,
		SKU:      id,
		Name:     "Widget",
		Price:    decimal.RequireFromString(price),
		Stock:    100,
		IsActive: true,
	}
}

func TestCreateOrder_ComputesAmounts(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	m.customers.On("GetByID", ctx, int64(7)).Return(activeCustomer(7), nil)
	m.items.On("GetByID", ctx, "wdg-001").Return(activeItem("wdg-001", "24.99"), nil)
	m.items.On("GetByID", ctx, "gdg-002").Return(activeItem("gdg-002", "10.00"), nil)

	var captured *domain.Order
	m.orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*domain.Order)
			captured.ID = 42
		}).
		Return(nil)
	m.orders.On("GetByID", ctx, int64(42)).Return(&domain.Order{ID: 42}, nil)

	_, err := svc.CreateOrder(ctx, 3, CreateOrderInput{
		CustomerID: 7,
		Lines: []CreateOrderLineInput{
			{ItemID: "wdg-001", Quantity: 2, Discount: decimal.RequireFromString("10")},
			{ItemID: "gdg-002", Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, captured)

	// Gross: 2 * 24.99 + 3 * 10 = 79.98. Line one carries a 10% discount
	// worth 4.998, which stays out of the total and lands in the discount.
	assert.True(t, captured.Lines[0].TotalPrice.Equal(decimal.RequireFromString("44.982")),
		"line total %s", captured.Lines[0].TotalPrice)
	assert.True(t, captured.TotalAmount.Equal(decimal.RequireFromString("79.98")),
		"total amount %s", captured.TotalAmount)
	assert.True(t, captured.DiscountAmount.Equal(decimal.RequireFromString("4.998")),
		"discount amount %s", captured.DiscountAmount)
	assert.True(t, captured.TaxAmount.IsZero())
	assert.True(t, captured.FinalAmount.Equal(decimal.RequireFromString("74.982")),
		"final amount %s", captured.FinalAmount)

	assert.Equal(t, domain.OrderStatusPending, captured.Status)
	assert.Equal(t, domain.PriorityMedium, captured.Priority)
	assert.Equal(t, int64(3), captured.CreatedBy)
	assert.NotEmpty(t, captured.OrderNumber)

	m.orders.AssertExpectations(t)
}

func TestCreateOrder_UsesItemPriceWhenNoUnitPrice(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	m.customers.On("GetByID", ctx, int64(7)).Return(activeCustomer(7), nil)
	m.items.On("GetByID", ctx, "wdg-001").Return(activeItem("wdg-001", "24.99"), nil)

	var captured *domain.Order
	m.orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*domain.Order)
			captured.ID = 42
		}).
		Return(nil)
	m.orders.On("GetByID", ctx, int64(42)).Return(&domain.Order{ID: 42}, nil)

	override := decimal.RequireFromString("20.00")
	_, err := svc.CreateOrder(ctx, 3, CreateOrderInput{
		CustomerID: 7,
		Lines: []CreateOrderLineInput{
			{ItemID: "wdg-001", Quantity: 1, UnitPrice: &override},
		},
	})
	require.NoError(t, err)
	assert.True(t, captured.Lines[0].UnitPrice.Equal(override))

	svc2, m2 := newTestOrderService()
	m2.customers.On("GetByID", ctx, int64(7)).Return(activeCustomer(7), nil)
	m2.items.On("GetByID", ctx, "wdg-001").Return(activeItem("wdg-001", "24.99"), nil)
	m2.orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*domain.Order)
			captured.ID = 43
		}).
		Return(nil)
	m2.orders.On("GetByID", ctx, int64(43)).Return(&domain.Order{ID: 43}, nil)

	_, err = svc2.CreateOrder(ctx, 3, CreateOrderInput{
		CustomerID: 7,
		Lines:      []CreateOrderLineInput{{ItemID: "wdg-001", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, captured.Lines[0].UnitPrice.Equal(decimal.RequireFromString("24.99")))
}

func TestCreateOrder_NoLines(t *testing.T) {
	svc, _ := newTestOrderService()

	_, err := svc.CreateOrder(context.Background(), 3, CreateOrderInput{CustomerID: 7})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestCreateOrder_UnknownCustomer(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	m.customers.On("GetByID", ctx, int64(99)).Return(nil, apperrors.NotFound("customer", "99"))

	_, err := svc.CreateOrder(ctx, 3, CreateOrderInput{
		CustomerID: 99,
		Lines:      []CreateOrderLineInput{{ItemID: "wdg-001", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCreateOrder_InactiveCustomerAndItemStillAllowed(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	c := activeCustomer(7)
	c.IsActive = false
	m.customers.On("GetByID", ctx, int64(7)).Return(c, nil)

	it := activeItem("wdg-001", "24.99")
	it.IsActive = false
	m.items.On("GetByID", ctx, "wdg-001").Return(it, nil)

	m.orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Order).ID = 42
		}).
		Return(nil)
	m.orders.On("GetByID", ctx, int64(42)).Return(&domain.Order{ID: 42}, nil)

	_, err := svc.CreateOrder(ctx, 3, CreateOrderInput{
		CustomerID: 7,
		Lines:      []CreateOrderLineInput{{ItemID: "wdg-001", Quantity: 1}},
	})
	require.NoError(t, err)
	m.orders.AssertExpectations(t)
}

func TestCreateOrder_NegativeUnitPrice(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	m.customers.On("GetByID", ctx, int64(7)).Return(activeCustomer(7), nil)

	price := decimal.RequireFromString("-5.00")
	_, err := svc.CreateOrder(ctx, 3, CreateOrderInput{
		CustomerID: 7,
		Lines:      []CreateOrderLineInput{{ItemID: "wdg-001", Quantity: 1, UnitPrice: &price}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrder_UnknownItemFailsBeforePersisting(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	m.customers.On("GetByID", ctx, int64(7)).Return(activeCustomer(7), nil)
	m.items.On("GetByID", ctx, "nope").Return(nil, apperrors.NotFound("item", "nope"))

	_, err := svc.CreateOrder(ctx, 3, CreateOrderInput{
		CustomerID: 7,
		Lines:      []CreateOrderLineInput{{ItemID: "nope", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	m.customers.On("GetByID", ctx, int64(7)).Return(activeCustomer(7), nil)

	_, err := svc.CreateOrder(ctx, 3, CreateOrderInput{
		CustomerID: 7,
		Lines:      []CreateOrderLineInput{{ItemID: "wdg-001", Quantity: 0}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestUpdateOrderStatus_StampsAnyValidStatus(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	existing := &domain.Order{ID: 42, Status: domain.OrderStatusPending}
	m.orders.On("GetByID", ctx, int64(42)).Return(existing, nil)
	m.orders.On("UpdateStatus", ctx, int64(42), domain.OrderStatusDelivered).Return(nil)

	_, err := svc.UpdateOrderStatus(ctx, 42, domain.OrderStatusDelivered)
	require.NoError(t, err)

	m.orders.AssertExpectations(t)
}

func TestUpdateOrderStatus_InvalidStatus(t *testing.T) {
	svc, _ := newTestOrderService()

	_, err := svc.UpdateOrderStatus(context.Background(), 42, domain.OrderStatus("archived"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestCancelOrder_Success(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	existing := &domain.Order{ID: 42, Status: domain.OrderStatusProcessing, OrderNumber: "ORD-1"}
	m.orders.On("GetByID", ctx, int64(42)).Return(existing, nil)
	m.orders.On("UpdateStatus", ctx, int64(42), domain.OrderStatusCancelled).Return(nil)

	_, err := svc.CancelOrder(ctx, 42, "customer changed their mind")
	require.NoError(t, err)

	m.orders.AssertExpectations(t)
}

func TestCancelOrder_ShippedConflicts(t *testing.T) {
	for _, status := range []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusDelivered} {
		t.Run(string(status), func(t *testing.T) {
			svc, m := newTestOrderService()
			ctx := context.Background()

			existing := &domain.Order{ID: 42, Status: status}
			m.orders.On("GetByID", ctx, int64(42)).Return(existing, nil)

			_, err := svc.CancelOrder(ctx, 42, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConflict))

			m.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCancelOrder_CancelledStaysCancellable(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	existing := &domain.Order{ID: 42, Status: domain.OrderStatusCancelled}
	m.orders.On("GetByID", ctx, int64(42)).Return(existing, nil)
	m.orders.On("UpdateStatus", ctx, int64(42), domain.OrderStatusCancelled).Return(nil)

	_, err := svc.CancelOrder(ctx, 42, "")
	assert.NoError(t, err)
}

func TestUpdateOrder_ValidatesAssignee(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	assignee := int64(9)
	m.users.On("GetByID", ctx, assignee).Return(nil, apperrors.NotFound("user", "9"))

	_, err := svc.UpdateOrder(ctx, 42, repository.OrderUpdate{AssignedTo: &assignee})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestUpdateOrder_SetsStatus(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	status := domain.OrderStatusConfirmed
	m.orders.On("Update", ctx, int64(42), repository.OrderUpdate{Status: &status}).Return(nil)
	m.orders.On("GetByID", ctx, int64(42)).Return(&domain.Order{ID: 42, Status: status}, nil)

	order, err := svc.UpdateOrder(ctx, 42, repository.OrderUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
}

func TestUpdateOrder_InvalidStatus(t *testing.T) {
	svc, m := newTestOrderService()

	bad := domain.OrderStatus("archived")
	_, err := svc.UpdateOrder(context.Background(), 42, repository.OrderUpdate{Status: &bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	m.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestListOrders_ClampsPagination(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	m.orders.On("List", ctx, repository.OrderFilter{Page: 1, PerPage: 100}).
		Return([]domain.Order{}, 0, nil)

	_, _, err := svc.ListOrders(ctx, repository.OrderFilter{PerPage: 500})
	require.NoError(t, err)

	m.orders.AssertExpectations(t)
}

func TestListOrdersByCustomer_UnknownCustomer(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	m.customers.On("GetByID", ctx, int64(99)).Return(nil, apperrors.NotFound("customer", "99"))

	_, _, err := svc.ListOrdersByCustomer(ctx, 99, 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCreateOrder_EventFailureDoesNotFailOperation(t *testing.T) {
	// The test producer points at an unreachable broker, so every publish
	// fails; the successful create asserts the failure is swallowed.
	svc, m := newTestOrderService()
	ctx := context.Background()

	m.customers.On("GetByID", ctx, int64(7)).Return(activeCustomer(7), nil)
	m.items.On("GetByID", ctx, "wdg-001").Return(activeItem("wdg-001", "24.99"), nil)
	m.orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Order).ID = 42 }).
		Return(nil)
	m.orders.On("GetByID", ctx, int64(42)).Return(&domain.Order{ID: 42}, nil)

	_, err := svc.CreateOrder(ctx, 3, CreateOrderInput{
		CustomerID: 7,
		Lines:      []CreateOrderLineInput{{ItemID: "wdg-001", Quantity: 1}},
	})
	assert.NoError(t, err)
}

func TestCreateOrder_RequiredDateCarried(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()

	required := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	m.customers.On("GetByID", ctx, int64(7)).Return(activeCustomer(7), nil)
	m.items.On("GetByID", ctx, "wdg-001").Return(activeItem("wdg-001", "24.99"), nil)

	var captured *domain.Order
	m.orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*domain.Order)
			captured.ID = 42
		}).
		Return(nil)
	m.orders.On("GetByID", ctx, int64(42)).Return(&domain.Order{ID: 42}, nil)

	_, err := svc.CreateOrder(ctx, 3, CreateOrderInput{
		CustomerID:   7,
		RequiredDate: &required,
		Lines:        []CreateOrderLineInput{{ItemID: "wdg-001", Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, captured.RequiredDate)
	assert.True(t, captured.RequiredDate.Equal(required))
}
