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

// WarehouseLogRepository implements repository.WarehouseLogRepository using
// PostgreSQL.
type WarehouseLogRepository struct {
	pool database.DBTX
}

// NewWarehouseLogRepository creates a new PostgreSQL-backed movement ledger.
func NewWarehouseLogRepository(pool database.DBTX) *WarehouseLogRepository {
	return &WarehouseLogRepository{pool: pool}
}

const insertWarehouseLogQuery = `
	INSERT INTO warehouse_logs (item_id, order_id, type, quantity, status, reference, location, notes, performed_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id`

// Create inserts an audit-only movement entry. Item stock is untouched.
func (r *WarehouseLogRepository) Create(ctx context.Context, log *domain.WarehouseLog) error {
	err := r.pool.QueryRow(ctx, insertWarehouseLogQuery,
		log.ItemID,
		log.OrderID,
		log.Type,
		log.Quantity,
		log.Status,
		log.Reference,
		log.Location,
		log.Notes,
		log.PerformedBy,
		log.CreatedAt,
		log.UpdatedAt,
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("insert warehouse log: %w", err)
	}
	return nil
}

// CreateWithStockAdjust inserts an adjustment entry and applies its signed
// delta to the referenced item in the same transaction. Stock is clamped at
// zero so a negative adjustment can never drive it below zero.
func (r *WarehouseLogRepository) CreateWithStockAdjust(ctx context.Context, log *domain.WarehouseLog, delta int) (*domain.Item, error) {
	if log.ItemID == nil {
		return nil, apperrors.InvalidInput("adjustment requires an item reference")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, insertWarehouseLogQuery,
		log.ItemID,
		log.OrderID,
		log.Type,
		log.Quantity,
		log.Status,
		log.Reference,
		log.Location,
		log.Notes,
		log.PerformedBy,
		log.CreatedAt,
		log.UpdatedAt,
	).Scan(&log.ID)
	if err != nil {
		return nil, fmt.Errorf("insert warehouse log: %w", err)
	}

	var item domain.Item
	err = scanItem(tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE items SET stock = GREATEST(0, stock + $1), updated_at = $2 WHERE id = $3
		RETURNING %s`, itemColumns),
		delta, time.Now().UTC(), *log.ItemID,
	), &item)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("item", *log.ItemID)
		}
		return nil, fmt.Errorf("adjust item stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &item, nil
}

// GetByID retrieves a single movement with its item, order, and performer.
func (r *WarehouseLogRepository) GetByID(ctx context.Context, id int64) (*domain.WarehouseLog, error) {
	query := `
		SELECT w.id, w.item_id, w.order_id, w.type, w.quantity, w.status, w.reference, w.location,
			w.notes, w.performed_by, w.created_at, w.updated_at,
			CASE WHEN i.id IS NOT NULL THEN JSONB_BUILD_OBJECT('id', i.id, 'sku', i.sku, 'name', i.name, 'stock', i.stock) END AS item,
			CASE WHEN o.id IS NOT NULL THEN JSONB_BUILD_OBJECT('id', o.id, 'orderNumber', o.order_number, 'status', o.status) END AS order_ref,
			JSONB_BUILD_OBJECT('id', u.id, 'username', u.username, 'firstName', u.first_name, 'lastName', u.last_name) AS performer
		FROM warehouse_logs w
		LEFT JOIN items i ON i.id = w.item_id
		LEFT JOIN orders o ON o.id = w.order_id
		JOIN users u ON u.id = w.performed_by
		WHERE w.id = $1`

	var (
		log           domain.WarehouseLog
		itemJSON      []byte
		orderJSON     []byte
		performerJSON []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&log.ID,
		&log.ItemID,
		&log.OrderID,
		&log.Type,
		&log.Quantity,
		&log.Status,
		&log.Reference,
		&log.Location,
		&log.Notes,
		&log.PerformedBy,
		&log.CreatedAt,
		&log.UpdatedAt,
		&itemJSON,
		&orderJSON,
		&performerJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("warehouse log", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("scan warehouse log: %w", err)
	}

	if err := unmarshalInto(itemJSON, &log.Item); err != nil {
		return nil, fmt.Errorf("unmarshal log item: %w", err)
	}
	if err := unmarshalInto(orderJSON, &log.Order); err != nil {
		return nil, fmt.Errorf("unmarshal log order: %w", err)
	}
	if err := unmarshalInto(performerJSON, &log.Performer); err != nil {
		return nil, fmt.Errorf("unmarshal log performer: %w", err)
	}

	return &log, nil
}

// List returns movements matching the filter, newest first, with the total count.
func (r *WarehouseLogRepository) List(ctx context.Context, filter repository.WarehouseLogFilter) ([]domain.WarehouseLog, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.ItemID != nil {
		conditions = append(conditions, fmt.Sprintf("w.item_id = $%d", argIndex))
		args = append(args, *filter.ItemID)
		argIndex++
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("w.type = $%d", argIndex))
		args = append(args, *filter.Type)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("w.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("w.created_at >= $%d", argIndex))
		args = append(args, *filter.DateFrom)
		argIndex++
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("w.created_at <= $%d", argIndex))
		args = append(args, *filter.DateTo)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT w.id, w.item_id, w.order_id, w.type, w.quantity, w.status, w.reference, w.location,
			w.notes, w.performed_by, w.created_at, w.updated_at,
			CASE WHEN i.id IS NOT NULL THEN JSONB_BUILD_OBJECT('id', i.id, 'sku', i.sku, 'name', i.name) END AS item,
			count(*) OVER() AS total_count
		FROM warehouse_logs w
		LEFT JOIN items i ON i.id = w.item_id
		%s
		ORDER BY w.created_at DESC, w.id DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
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
		return nil, 0, fmt.Errorf("list warehouse logs: %w", err)
	}
	defer rows.Close()

	var totalCount int
	logs := make([]domain.WarehouseLog, 0)

	for rows.Next() {
		var (
			log      domain.WarehouseLog
			itemJSON []byte
		)
		if err := rows.Scan(
			&log.ID,
			&log.ItemID,
			&log.OrderID,
			&log.Type,
			&log.Quantity,
			&log.Status,
			&log.Reference,
			&log.Location,
			&log.Notes,
			&log.PerformedBy,
			&log.CreatedAt,
			&log.UpdatedAt,
			&itemJSON,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan warehouse log row: %w", err)
		}
		if err := unmarshalInto(itemJSON, &log.Item); err != nil {
			return nil, 0, fmt.Errorf("unmarshal log item: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate warehouse log rows: %w", err)
	}

	return logs, totalCount, nil
}

// Summary aggregates movement counts and quantities by type within the
// optional date range.
func (r *WarehouseLogRepository) Summary(ctx context.Context, dateFrom, dateTo *time.Time) ([]repository.MovementSummary, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if dateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *dateFrom)
		argIndex++
	}
	if dateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *dateTo)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT type, count(*), COALESCE(SUM(quantity), 0)
		FROM warehouse_logs
		%s
		GROUP BY type
		ORDER BY type`, whereClause)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarize warehouse logs: %w", err)
	}
	defer rows.Close()

	summaries := make([]repository.MovementSummary, 0)
	for rows.Next() {
		var s repository.MovementSummary
		if err := rows.Scan(&s.Type, &s.Count, &s.TotalQuantity); err != nil {
			return nil, fmt.Errorf("scan movement summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movement summary rows: %w", err)
	}

	return summaries, nil
}

// Update modifies the status and notes of a movement. Stock is never changed
// retroactively; create a correcting movement instead.
func (r *WarehouseLogRepository) Update(ctx context.Context, id int64, status domain.MovementStatus, notes *string) error {
	query := `
		UPDATE warehouse_logs
		SET status = $1, notes = COALESCE($2, notes), updated_at = $3
		WHERE id = $4`

	ct, err := r.pool.Exec(ctx, query, status, notes, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update warehouse log: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("warehouse log", fmt.Sprint(id))
	}

	return nil
}

// Delete removes a movement entry from the ledger.
func (r *WarehouseLogRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM warehouse_logs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete warehouse log: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("warehouse log", fmt.Sprint(id))
	}
	return nil
}
