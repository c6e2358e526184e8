package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tidemark/stockroom/internal/domain"
	"github.com/tidemark/stockroom/internal/repository"
	"github.com/tidemark/stockroom/pkg/database"
	apperrors "github.com/tidemark/stockroom/pkg/errors"
)

const itemColumns = `id, sku, barcode, name, description, category, price, cost, stock, min_stock_level, unit, location, distributor_id, is_active, created_at, updated_at`

// ItemRepository implements repository.ItemRepository using PostgreSQL.
type ItemRepository struct {
	pool database.DBTX
}

// NewItemRepository creates a new PostgreSQL-backed inventory repository.
func NewItemRepository(pool database.DBTX) *ItemRepository {
	return &ItemRepository{pool: pool}
}

func scanItem(row pgx.Row, item *domain.Item) error {
	return row.Scan(
		&item.ID,
		&item.SKU,
		&item.Barcode,
		&item.Name,
		&item.Description,
		&item.Category,
		&item.Price,
		&item.Cost,
		&item.Stock,
		&item.MinStockLevel,
		&item.Unit,
		&item.Location,
		&item.DistributorID,
		&item.IsActive,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}

// Create inserts a new inventory item.
func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO items (id, sku, barcode, name, description, category, price, cost, stock, min_stock_level, unit, location, distributor_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		item.ID,
		item.SKU,
		item.Barcode,
		item.Name,
		item.Description,
		item.Category,
		item.Price,
		item.Cost,
		item.Stock,
		item.MinStockLevel,
		item.Unit,
		item.Location,
		item.DistributorID,
		item.IsActive,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("item", "sku or barcode", item.SKU)
		}
		return fmt.Errorf("insert item: %w", err)
	}

	return nil
}

// GetByID retrieves an item by its identifier, including its distributor.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	query := `
		SELECT i.id, i.sku, i.barcode, i.name, i.description, i.category,
			i.price, i.cost, i.stock, i.min_stock_level, i.unit, i.location,
			i.distributor_id, i.is_active, i.created_at, i.updated_at,
			CASE WHEN d.id IS NULL THEN NULL
				ELSE JSONB_BUILD_OBJECT('id', d.id, 'name', d.name)
			END AS distributor
		FROM items i
		LEFT JOIN distributors d ON d.id = i.distributor_id
		WHERE i.id = $1`

	var (
		item            domain.Item
		distributorJSON []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.SKU,
		&item.Barcode,
		&item.Name,
		&item.Description,
		&item.Category,
		&item.Price,
		&item.Cost,
		&item.Stock,
		&item.MinStockLevel,
		&item.Unit,
		&item.Location,
		&item.DistributorID,
		&item.IsActive,
		&item.CreatedAt,
		&item.UpdatedAt,
		&distributorJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("item", id)
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}

	if err := unmarshalInto(distributorJSON, &item.Distributor); err != nil {
		return nil, fmt.Errorf("unmarshal item distributor: %w", err)
	}

	return &item, nil
}

// itemOrderBy maps a sort key to an ORDER BY clause. Handlers validate the
// key, so an unknown value here just falls back to name order.
func itemOrderBy(sort string) string {
	switch sort {
	case "name_desc":
		return "name DESC"
	case "price_asc":
		return "price ASC, name ASC"
	case "price_desc":
		return "price DESC, name ASC"
	case "stock_asc":
		return "stock ASC, name ASC"
	case "stock_desc":
		return "stock DESC, name ASC"
	case "newest":
		return "created_at DESC, id DESC"
	default:
		return "name ASC"
	}
}

// List returns items matching the given filter with the total count.
func (r *ItemRepository) List(ctx context.Context, filter repository.ItemFilter) ([]domain.Item, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if !filter.IncludeInactive {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}
	if filter.DistributorID != nil {
		conditions = append(conditions, fmt.Sprintf("distributor_id = $%d", argIndex))
		args = append(args, *filter.DistributorID)
		argIndex++
	}
	if filter.LowStock {
		conditions = append(conditions, "stock <= min_stock_level")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d OR barcode ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM items
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		itemColumns, whereClause, itemOrderBy(filter.Sort), argIndex, argIndex+1,
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
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var totalCount int
	items := make([]domain.Item, 0)

	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(
			&item.ID,
			&item.SKU,
			&item.Barcode,
			&item.Name,
			&item.Description,
			&item.Category,
			&item.Price,
			&item.Cost,
			&item.Stock,
			&item.MinStockLevel,
			&item.Unit,
			&item.Location,
			&item.DistributorID,
			&item.IsActive,
			&item.CreatedAt,
			&item.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate item rows: %w", err)
	}

	return items, totalCount, nil
}

// Update replaces an item's descriptive fields. Stock is never changed here;
// use SetStock or the warehouse ledger.
func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) error {
	query := `
		UPDATE items
		SET sku = $1, barcode = $2, name = $3, description = $4, category = $5,
			price = $6, cost = $7, min_stock_level = $8, unit = $9,
			location = $10, distributor_id = $11, is_active = $12, updated_at = $13
		WHERE id = $14`

	ct, err := r.pool.Exec(ctx, query,
		item.SKU,
		item.Barcode,
		item.Name,
		item.Description,
		item.Category,
		item.Price,
		item.Cost,
		item.MinStockLevel,
		item.Unit,
		item.Location,
		item.DistributorID,
		item.IsActive,
		time.Now().UTC(),
		item.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("item", "sku or barcode", item.SKU)
		}
		return fmt.Errorf("update item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("item", item.ID)
	}

	return nil
}

// SetStock sets an item's stock to an absolute value under a row lock and
// records a paired adjustment in the movement ledger, all in one transaction.
func (r *ItemRepository) SetStock(ctx context.Context, id string, newStock int, note string, performedBy int64) (*domain.Item, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var oldStock int
	err = tx.QueryRow(ctx, `SELECT stock FROM items WHERE id = $1 FOR UPDATE`, id).Scan(&oldStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("item", id)
		}
		return nil, fmt.Errorf("lock item row: %w", err)
	}

	now := time.Now().UTC()

	var item domain.Item
	err = scanItem(tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE items SET stock = $1, updated_at = $2 WHERE id = $3
		RETURNING %s`, itemColumns),
		newStock, now, id,
	), &item)
	if err != nil {
		return nil, fmt.Errorf("update item stock: %w", err)
	}

	if note == "" {
		note = fmt.Sprintf("Stock adjusted from %d to %d", oldStock, newStock)
	}

	logQuery := `
		INSERT INTO warehouse_logs (item_id, type, quantity, status, notes, performed_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = tx.Exec(ctx, logQuery,
		id,
		domain.MovementAdjustment,
		newStock-oldStock,
		domain.MovementStatusReceived,
		note,
		performedBy,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert adjustment log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &item, nil
}

// Categories returns the distinct non-empty categories of active items.
func (r *ItemRepository) Categories(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT category FROM items
		WHERE is_active = TRUE AND category <> ''
		ORDER BY category`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	return categories, nil
}

// CountOrderLines returns the number of order lines referencing an item.
func (r *ItemRepository) CountOrderLines(ctx context.Context, id string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM order_lines WHERE item_id = $1`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count item order lines: %w", err)
	}
	return count, nil
}

// Delete removes an item permanently.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("item", id)
	}
	return nil
}

// Deactivate soft-deletes an item by marking it inactive.
func (r *ItemRepository) Deactivate(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE items SET is_active = FALSE, updated_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("item", id)
	}
	return nil
}
