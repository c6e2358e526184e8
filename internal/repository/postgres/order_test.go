package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark/stockroom/internal/domain"
	"github.com/tidemark/stockroom/internal/repository"
	"github.com/tidemark/stockroom/pkg/database"
	apperrors "github.com/tidemark/stockroom/pkg/errors"
)

func newOrderRepo(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewOrderRepository(mock), mock
}

func sampleOrder() *domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Order{
		OrderNumber:    "ORD-1748779200000",
		CustomerID:     7,
		Status:         domain.OrderStatusPending,
		Priority:       domain.PriorityMedium,
		OrderDate:      now,
		TotalAmount:    decimal.RequireFromString("79.98"),
		DiscountAmount: decimal.RequireFromString("4.998"),
		TaxAmount:      decimal.Zero,
		FinalAmount:    decimal.RequireFromString("74.982"),
		Notes:          "rush if possible",
		CreatedBy:      3,
		CreatedAt:      now,
		UpdatedAt:      now,
		Lines: []domain.OrderLine{
			{
				ItemID:     "wdg-001",
				Quantity:   2,
				UnitPrice:  decimal.RequireFromString("24.99"),
				Discount:   decimal.RequireFromString("10"),
				TotalPrice: decimal.RequireFromString("44.982"),
			},
			{
				ItemID:     "gdg-002",
				Quantity:   3,
				UnitPrice:  decimal.RequireFromString("10.00"),
				Discount:   decimal.Zero,
				TotalPrice: decimal.RequireFromString("30.00"),
			},
		},
	}
}

func TestOrderRepository_Create_Success(t *testing.T) {
	repo, mock := newOrderRepo(t)

	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(
			o.OrderNumber, o.CustomerID, o.Status, o.Priority,
			o.OrderDate, o.RequiredDate,
			o.TotalAmount, o.DiscountAmount, o.TaxAmount, o.FinalAmount,
			o.Notes, o.CreatedBy, o.AssignedTo,
			o.CreatedAt, o.UpdatedAt,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	for i, line := range o.Lines {
		mock.ExpectQuery("INSERT INTO order_lines").
			WithArgs(
				int64(42), line.ItemID, line.Quantity,
				line.UnitPrice, line.Discount, line.TotalPrice, line.Notes,
			).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(100 + i)))
	}

	mock.ExpectCommit()

	err := repo.Create(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, int64(42), o.ID)
	assert.Equal(t, int64(42), o.Lines[0].OrderID)
	assert.Equal(t, int64(100), o.Lines[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_LineInsertRollsBack(t *testing.T) {
	repo, mock := newOrderRepo(t)

	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(
			o.OrderNumber, o.CustomerID, o.Status, o.Priority,
			o.OrderDate, o.RequiredDate,
			o.TotalAmount, o.DiscountAmount, o.TaxAmount, o.FinalAmount,
			o.Notes, o.CreatedBy, o.AssignedTo,
			o.CreatedAt, o.UpdatedAt,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	line := o.Lines[0]
	mock.ExpectQuery("INSERT INTO order_lines").
		WithArgs(
			int64(42), line.ItemID, line.Quantity,
			line.UnitPrice, line.Discount, line.TotalPrice, line.Notes,
		).
		WillReturnError(errors.New("foreign key violation"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert order line")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_BeginError(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := repo.Create(context.Background(), sampleOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectQuery("SELECT").
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_Success(t *testing.T) {
	repo, mock := newOrderRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	customerJSON := []byte(`{"id": 7, "name": "Acme Bakery"}`)
	creatorJSON := []byte(`{"id": 3, "username": "jdoe", "firstName": "Jamie", "lastName": "Doe"}`)
	linesJSON := []byte(`[{"id": 100, "orderId": 42, "itemId": "wdg-001", "quantity": 2, "unitPrice": 24.99, "discount": 10, "totalPrice": 44.982, "notes": "", "item": {"id": "wdg-001", "sku": "WDG-001", "name": "Widget", "unit": "pcs"}}]`)

	rows := pgxmock.NewRows([]string{
		"id", "order_number", "customer_id", "status", "priority",
		"order_date", "required_date", "shipped_date", "delivered_date",
		"total_amount", "discount_amount", "tax_amount", "final_amount",
		"notes", "created_by", "assigned_to", "created_at", "updated_at",
		"customer", "creator", "assignee", "lines",
	}).AddRow(
		int64(42), "ORD-1748779200000", int64(7), domain.OrderStatusPending, domain.PriorityMedium,
		now, nil, nil, nil,
		decimal.RequireFromString("44.982"), decimal.RequireFromString("0"), decimal.Zero, decimal.RequireFromString("44.982"),
		"", int64(3), nil, now, now,
		customerJSON, creatorJSON, []byte(nil), linesJSON,
	)

	mock.ExpectQuery("SELECT").WithArgs(int64(42)).WillReturnRows(rows)

	o, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1748779200000", o.OrderNumber)
	require.NotNil(t, o.Customer)
	assert.Equal(t, "Acme Bakery", o.Customer.Name)
	require.NotNil(t, o.Creator)
	assert.Equal(t, "jdoe", o.Creator.Username)
	assert.Nil(t, o.Assignee)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "wdg-001", o.Lines[0].ItemID)
	assert.True(t, o.Lines[0].TotalPrice.Equal(decimal.RequireFromString("44.982")))
	require.NotNil(t, o.Lines[0].Item)
	assert.Equal(t, "Widget", o.Lines[0].Item.Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_List_FiltersByStatus(t *testing.T) {
	repo, mock := newOrderRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	status := domain.OrderStatusShipped

	rows := pgxmock.NewRows([]string{
		"id", "order_number", "customer_id", "status", "priority",
		"order_date", "required_date", "shipped_date", "delivered_date",
		"total_amount", "discount_amount", "tax_amount", "final_amount",
		"notes", "created_by", "assigned_to", "created_at", "updated_at",
		"customer", "total_count",
	}).AddRow(
		int64(42), "ORD-1748779200000", int64(7), status, domain.PriorityHigh,
		now, nil, &now, nil,
		decimal.RequireFromString("30"), decimal.Zero, decimal.Zero, decimal.RequireFromString("30"),
		"", int64(3), nil, now, now,
		[]byte(`{"id": 7, "name": "Acme Bakery"}`), 1,
	)

	mock.ExpectQuery("SELECT").
		WithArgs(status, 10, 0).
		WillReturnRows(rows)

	orders, total, err := repo.List(context.Background(), repository.OrderFilter{Status: &status, Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderStatusShipped, orders[0].Status)
	require.NotNil(t, orders[0].Customer)
	assert.Equal(t, "Acme Bakery", orders[0].Customer.Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_List_FiltersByDateRange(t *testing.T) {
	repo, mock := newOrderRepo(t)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)

	rows := pgxmock.NewRows([]string{
		"id", "order_number", "customer_id", "status", "priority",
		"order_date", "required_date", "shipped_date", "delivered_date",
		"total_amount", "discount_amount", "tax_amount", "final_amount",
		"notes", "created_by", "assigned_to", "created_at", "updated_at",
		"customer", "total_count",
	})

	mock.ExpectQuery("SELECT").
		WithArgs(from, to, 10, 0).
		WillReturnRows(rows)

	orders, total, err := repo.List(context.Background(), repository.OrderFilter{
		DateFrom: &from,
		DateTo:   &to,
		Page:     1,
		PerPage:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, orders)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus_Success(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectExec("UPDATE orders").
		WithArgs(domain.OrderStatusShipped, pgxmock.AnyArg(), int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateStatus(context.Background(), 42, domain.OrderStatusShipped)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus_NotFound(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectExec("UPDATE orders").
		WithArgs(domain.OrderStatusCancelled, pgxmock.AnyArg(), int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateStatus(context.Background(), 99, domain.OrderStatusCancelled)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Update_SetsStatus(t *testing.T) {
	repo, mock := newOrderRepo(t)

	status := domain.OrderStatusConfirmed
	mock.ExpectExec("UPDATE orders").
		WithArgs(status, pgxmock.AnyArg(), int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), 42, repository.OrderUpdate{Status: &status})
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Update_NoFieldsIsNoop(t *testing.T) {
	repo, mock := newOrderRepo(t)

	err := repo.Update(context.Background(), 42, repository.OrderUpdate{})
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CountByCustomer(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectQuery("SELECT count").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountByCustomer(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}
