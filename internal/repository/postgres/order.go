package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tidemark/stockroom/internal/domain"
	"github.com/tidemark/stockroom/internal/repository"
	"github.com/tidemark/stockroom/pkg/database"
	apperrors "github.com/tidemark/stockroom/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a new order and its lines atomically within a transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	orderQuery := `
		INSERT INTO orders (order_number, customer_id, status, priority, order_date, required_date, total_amount, discount_amount, tax_amount, final_amount, notes, created_by, assigned_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`

	err = tx.QueryRow(ctx, orderQuery,
		o.OrderNumber,
		o.CustomerID,
		o.Status,
		o.Priority,
		o.OrderDate,
		o.RequiredDate,
		o.TotalAmount,
		o.DiscountAmount,
		o.TaxAmount,
		o.FinalAmount,
		o.Notes,
		o.CreatedBy,
		o.AssignedTo,
		o.CreatedAt,
		o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("order", "order_number", o.OrderNumber)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_lines (order_id, item_id, quantity, unit_price, discount, total_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	for i := range o.Lines {
		line := &o.Lines[i]
		line.OrderID = o.ID
		err = tx.QueryRow(ctx, lineQuery,
			line.OrderID,
			line.ItemID,
			line.Quantity,
			line.UnitPrice,
			line.Discount,
			line.TotalPrice,
			line.Notes,
		).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its ID, eagerly loading its lines and the
// related customer and user records in a single query.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `
		SELECT
			o.id, o.order_number, o.customer_id, o.status, o.priority,
			o.order_date, o.required_date, o.shipped_date, o.delivered_date,
			o.total_amount, o.discount_amount, o.tax_amount, o.final_amount,
			o.notes, o.created_by, o.assigned_to, o.created_at, o.updated_at,
			JSONB_BUILD_OBJECT('id', c.id, 'name', c.name, 'email', c.email, 'phone', c.phone) AS customer,
			JSONB_BUILD_OBJECT('id', cu.id, 'username', cu.username, 'firstName', cu.first_name, 'lastName', cu.last_name) AS creator,
			CASE WHEN au.id IS NULL THEN NULL
				ELSE JSONB_BUILD_OBJECT('id', au.id, 'username', au.username, 'firstName', au.first_name, 'lastName', au.last_name)
			END AS assignee,
			COALESCE(
				(SELECT JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', ol.id,
						'orderId', ol.order_id,
						'itemId', ol.item_id,
						'quantity', ol.quantity,
						'unitPrice', ol.unit_price,
						'discount', ol.discount,
						'totalPrice', ol.total_price,
						'notes', ol.notes,
						'item', JSONB_BUILD_OBJECT('id', i.id, 'sku', i.sku, 'name', i.name, 'unit', i.unit)
					) ORDER BY ol.id
				) FROM order_lines ol JOIN items i ON i.id = ol.item_id WHERE ol.order_id = o.id),
				'[]'::jsonb
			) AS lines
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		JOIN users cu ON cu.id = o.created_by
		LEFT JOIN users au ON au.id = o.assigned_to
		WHERE o.id = $1`

	var (
		o            domain.Order
		customerJSON []byte
		creatorJSON  []byte
		assigneeJSON []byte
		linesJSON    []byte
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.Status,
		&o.Priority,
		&o.OrderDate,
		&o.RequiredDate,
		&o.ShippedDate,
		&o.DeliveredDate,
		&o.TotalAmount,
		&o.DiscountAmount,
		&o.TaxAmount,
		&o.FinalAmount,
		&o.Notes,
		&o.CreatedBy,
		&o.AssignedTo,
		&o.CreatedAt,
		&o.UpdatedAt,
		&customerJSON,
		&creatorJSON,
		&assigneeJSON,
		&linesJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := unmarshalInto(customerJSON, &o.Customer); err != nil {
		return nil, fmt.Errorf("unmarshal order customer: %w", err)
	}
	if err := unmarshalInto(creatorJSON, &o.Creator); err != nil {
		return nil, fmt.Errorf("unmarshal order creator: %w", err)
	}
	if err := unmarshalInto(assigneeJSON, &o.Assignee); err != nil {
		return nil, fmt.Errorf("unmarshal order assignee: %w", err)
	}

	o.Lines = []domain.OrderLine{}
	if len(linesJSON) > 0 && string(linesJSON) != "null" {
		if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
			return nil, fmt.Errorf("unmarshal order lines: %w", err)
		}
	}

	return &o, nil
}

// orderOrderBy maps a sort key to an ORDER BY clause. Unknown keys fall back
// to newest-first by order date.
func orderOrderBy(sort string) string {
	switch sort {
	case "oldest":
		return "o.order_date ASC, o.id ASC"
	case "total_asc":
		return "o.final_amount ASC, o.id DESC"
	case "total_desc":
		return "o.final_amount DESC, o.id DESC"
	case "required_date":
		return "o.required_date ASC NULLS LAST, o.id DESC"
	default:
		return "o.order_date DESC, o.id DESC"
	}
}

// List returns orders matching the given filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.Priority != nil {
		conditions = append(conditions, fmt.Sprintf("o.priority = $%d", argIndex))
		args = append(args, *filter.Priority)
		argIndex++
	}
	if filter.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("o.customer_id = $%d", argIndex))
		args = append(args, *filter.CustomerID)
		argIndex++
	}
	if filter.AssignedTo != nil {
		conditions = append(conditions, fmt.Sprintf("o.assigned_to = $%d", argIndex))
		args = append(args, *filter.AssignedTo)
		argIndex++
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("o.order_date >= $%d", argIndex))
		args = append(args, *filter.DateFrom)
		argIndex++
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("o.order_date <= $%d", argIndex))
		args = append(args, *filter.DateTo)
		argIndex++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(o.order_number ILIKE $%d OR c.name ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// count(*) OVER() folds the total count into the page query.
	query := fmt.Sprintf(`
		SELECT o.id, o.order_number, o.customer_id, o.status, o.priority,
			o.order_date, o.required_date, o.shipped_date, o.delivered_date,
			o.total_amount, o.discount_amount, o.tax_amount, o.final_amount,
			o.notes, o.created_by, o.assigned_to, o.created_at, o.updated_at,
			JSONB_BUILD_OBJECT('id', c.id, 'name', c.name) AS customer,
			count(*) OVER() AS total_count
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		whereClause, orderOrderBy(filter.Sort), argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 10
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var (
			o            domain.Order
			customerJSON []byte
		)
		if err := rows.Scan(
			&o.ID,
			&o.OrderNumber,
			&o.CustomerID,
			&o.Status,
			&o.Priority,
			&o.OrderDate,
			&o.RequiredDate,
			&o.ShippedDate,
			&o.DeliveredDate,
			&o.TotalAmount,
			&o.DiscountAmount,
			&o.TaxAmount,
			&o.FinalAmount,
			&o.Notes,
			&o.CreatedBy,
			&o.AssignedTo,
			&o.CreatedAt,
			&o.UpdatedAt,
			&customerJSON,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		if err := unmarshalInto(customerJSON, &o.Customer); err != nil {
			return nil, 0, fmt.Errorf("unmarshal order customer: %w", err)
		}
		o.Lines = []domain.OrderLine{}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, totalCount, nil
}

// ListByCustomer returns all orders placed for the given customer.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int64, page, perPage int) ([]domain.Order, int, error) {
	filter := repository.OrderFilter{CustomerID: &customerID, Page: page, PerPage: perPage}
	return r.List(ctx, filter)
}

// Update applies a partial update to an order's mutable fields. Status set
// through this path does not stamp shipped or delivered dates; the dedicated
// status endpoint handles those.
func (r *OrderRepository) Update(ctx context.Context, id int64, update repository.OrderUpdate) error {
	var (
		sets     []string
		args     []any
		argIndex = 1
	)

	if update.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *update.Status)
		argIndex++
	}
	if update.Priority != nil {
		sets = append(sets, fmt.Sprintf("priority = $%d", argIndex))
		args = append(args, *update.Priority)
		argIndex++
	}
	if update.RequiredDate != nil {
		sets = append(sets, fmt.Sprintf("required_date = $%d", argIndex))
		args = append(args, *update.RequiredDate)
		argIndex++
	}
	if update.Notes != nil {
		sets = append(sets, fmt.Sprintf("notes = $%d", argIndex))
		args = append(args, *update.Notes)
		argIndex++
	}
	if update.AssignedTo != nil {
		sets = append(sets, fmt.Sprintf("assigned_to = $%d", argIndex))
		args = append(args, *update.AssignedTo)
		argIndex++
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now().UTC())
	argIndex++

	args = append(args, id)
	query := fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d", strings.Join(sets, ", "), argIndex)

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", fmt.Sprint(id))
	}

	return nil
}

// UpdateStatus changes the status of an order. Moving to shipped or delivered
// stamps the corresponding date once.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $1,
			shipped_date = CASE WHEN $1 = 'shipped' AND shipped_date IS NULL THEN $2 ELSE shipped_date END,
			delivered_date = CASE WHEN $1 = 'delivered' AND delivered_date IS NULL THEN $2 ELSE delivered_date END,
			updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", fmt.Sprint(id))
	}

	return nil
}

// CountByCustomer returns the number of orders referencing a customer.
func (r *OrderRepository) CountByCustomer(ctx context.Context, customerID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE customer_id = $1`, customerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count customer orders: %w", err)
	}
	return count, nil
}

// unmarshalInto decodes a JSONB column into dst, leaving dst nil for SQL
// NULL or JSON null values.
func unmarshalInto[T any](data []byte, dst **T) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}

// isUniqueViolation reports whether the error is a PostgreSQL unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
