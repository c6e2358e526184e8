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

// DistributorRepository implements repository.DistributorRepository using
// PostgreSQL.
type DistributorRepository struct {
	pool database.DBTX
}

// NewDistributorRepository creates a new PostgreSQL-backed distributor repository.
func NewDistributorRepository(pool database.DBTX) *DistributorRepository {
	return &DistributorRepository{pool: pool}
}

// Create inserts a new distributor.
func (r *DistributorRepository) Create(ctx context.Context, d *domain.Distributor) error {
	query := `
		INSERT INTO distributors (name, contact_person, email, phone, location, address, notes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		d.Name, d.ContactPerson, d.Email, d.Phone, d.Location, d.Address,
		d.Notes, d.IsActive, d.CreatedAt, d.UpdatedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert distributor: %w", err)
	}

	return nil
}

// GetByID retrieves a distributor by its identifier.
func (r *DistributorRepository) GetByID(ctx context.Context, id int64) (*domain.Distributor, error) {
	query := `
		SELECT id, name, contact_person, email, phone, location, address, notes, is_active, created_at, updated_at
		FROM distributors WHERE id = $1`

	var d domain.Distributor
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.Name, &d.ContactPerson, &d.Email, &d.Phone, &d.Location, &d.Address,
		&d.Notes, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("distributor", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("scan distributor: %w", err)
	}

	return &d, nil
}

// List returns distributors matching the search with the total count.
func (r *DistributorRepository) List(ctx context.Context, search string, includeInactive bool, page, perPage int) ([]domain.Distributor, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if !includeInactive {
		conditions = append(conditions, "is_active = TRUE")
	}
	if search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR contact_person ILIKE $%d OR email ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, name, contact_person, email, phone, location, address, notes, is_active, created_at, updated_at,
			count(*) OVER() AS total_count
		FROM distributors
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
		return nil, 0, fmt.Errorf("list distributors: %w", err)
	}
	defer rows.Close()

	var totalCount int
	distributors := make([]domain.Distributor, 0)

	for rows.Next() {
		var d domain.Distributor
		if err := rows.Scan(
			&d.ID, &d.Name, &d.ContactPerson, &d.Email, &d.Phone, &d.Location, &d.Address,
			&d.Notes, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan distributor row: %w", err)
		}
		distributors = append(distributors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate distributor rows: %w", err)
	}

	return distributors, totalCount, nil
}

// Update replaces a distributor's fields.
func (r *DistributorRepository) Update(ctx context.Context, d *domain.Distributor) error {
	query := `
		UPDATE distributors
		SET name = $1, contact_person = $2, email = $3, phone = $4,
			location = $5, address = $6, notes = $7, is_active = $8, updated_at = $9
		WHERE id = $10`

	ct, err := r.pool.Exec(ctx, query,
		d.Name, d.ContactPerson, d.Email, d.Phone, d.Location, d.Address,
		d.Notes, d.IsActive, time.Now().UTC(), d.ID,
	)
	if err != nil {
		return fmt.Errorf("update distributor: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("distributor", fmt.Sprint(d.ID))
	}

	return nil
}

// CountItems returns the number of items referencing a distributor.
func (r *DistributorRepository) CountItems(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM items WHERE distributor_id = $1`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count distributor items: %w", err)
	}
	return count, nil
}

// Delete removes a distributor permanently.
func (r *DistributorRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM distributors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete distributor: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("distributor", fmt.Sprint(id))
	}
	return nil
}

// Deactivate soft-deletes a distributor by marking it inactive.
func (r *DistributorRepository) Deactivate(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `UPDATE distributors SET is_active = FALSE, updated_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate distributor: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("distributor", fmt.Sprint(id))
	}
	return nil
}
