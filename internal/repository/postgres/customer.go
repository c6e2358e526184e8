package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tidemark/stockroom/internal/domain"
	"github.com/tidemark/stockroom/pkg/database"
	apperrors "github.com/tidemark/stockroom/pkg/errors"
)

// CustomerRepository implements repository.CustomerRepository using PostgreSQL.
type CustomerRepository struct {
	pool database.DBTX
}

// NewCustomerRepository creates a new PostgreSQL-backed customer repository.
func NewCustomerRepository(pool database.DBTX) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Create inserts a new customer.
func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	query := `
		INSERT INTO customers (name, email, phone, address, city, state, zip_code, notes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.ZipCode,
		c.Notes, c.IsActive, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}

	return nil
}

// GetByID retrieves a customer by its identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	query := `
		SELECT id, name, email, phone, address, city, state, zip_code, notes, is_active, created_at, updated_at
		FROM customers WHERE id = $1`

	var c domain.Customer
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.State,
		&c.ZipCode, &c.Notes, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("customer", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}

	return &c, nil
}

// List returns customers matching the search with the total count.
func (r *CustomerRepository) List(ctx context.Context, search string, includeInactive bool, page, perPage int) ([]domain.Customer, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if !includeInactive {
		conditions = append(conditions, "is_active = TRUE")
	}
	if search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, name, email, phone, address, city, state, zip_code, notes, is_active, created_at, updated_at,
			count(*) OVER() AS total_count
		FROM customers
		%s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := perPage
	if limit <= 0 {
		limit = 10
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var totalCount int
	customers := make([]domain.Customer, 0)

	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.State,
			&c.ZipCode, &c.Notes, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan customer row: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate customer rows: %w", err)
	}

	return customers, totalCount, nil
}

// Update replaces a customer's fields.
func (r *CustomerRepository) Update(ctx context.Context, c *domain.Customer) error {
	query := `
		UPDATE customers
		SET name = $1, email = $2, phone = $3, address = $4, city = $5,
			state = $6, zip_code = $7, notes = $8, is_active = $9, updated_at = $10
		WHERE id = $11`

	ct, err := r.pool.Exec(ctx, query,
		c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.ZipCode,
		c.Notes, c.IsActive, time.Now().UTC(), c.ID,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("customer", fmt.Sprint(c.ID))
	}

	return nil
}

// Delete removes a customer permanently.
func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("customer", fmt.Sprint(id))
	}
	return nil
}

// Deactivate soft-deletes a customer by marking it inactive.
func (r *CustomerRepository) Deactivate(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `UPDATE customers SET is_active = FALSE, updated_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate customer: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("customer", fmt.Sprint(id))
	}
	return nil
}
