package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidemark/stockroom/internal/domain"
	"github.com/tidemark/stockroom/internal/event"
	"github.com/tidemark/stockroom/internal/repository"
	rediscache "github.com/tidemark/stockroom/internal/repository/redis"
	apperrors "github.com/tidemark/stockroom/pkg/errors"
)

const summaryCacheKey = "warehouse:summary"

// WarehouseService implements the business logic for the stock movement
// ledger.
type WarehouseService struct {
	logs     repository.WarehouseLogRepository
	items    repository.ItemRepository
	cache    *rediscache.Cache
	producer *event.Producer
	logger   *slog.Logger
}

// NewWarehouseService creates a new warehouse service. The cache may be nil.
func NewWarehouseService(
	logs repository.WarehouseLogRepository,
	items repository.ItemRepository,
	cache *rediscache.Cache,
	producer *event.Producer,
	logger *slog.Logger,
) *WarehouseService {
	return &WarehouseService{
		logs:     logs,
		items:    items,
		cache:    cache,
		producer: producer,
		logger:   logger,
	}
}

// CreateMovementInput holds the parameters for logging a stock movement.
// ItemID and OrderID are optional references.
type CreateMovementInput struct {
	ItemID    string
	OrderID   *int64
	Type      domain.MovementType
	Quantity  int
	Status    domain.MovementStatus
	Reference string
	Location  string
	Notes     string
}

// CreateMovement appends a movement to the ledger. Most movement types are
// audit-only; an adjustment that references an item also applies its signed
// quantity to that item's stock in the same transaction, clamped at zero.
// The returned item is non-nil only when stock was adjusted.
func (s *WarehouseService) CreateMovement(ctx context.Context, performedBy int64, input CreateMovementInput) (*domain.WarehouseLog, *domain.Item, error) {
	if !input.Type.Valid() {
		return nil, nil, apperrors.InvalidInput(fmt.Sprintf("invalid movement type %q", input.Type))
	}
	if input.Status == "" {
		input.Status = domain.MovementStatusPending
	}
	if !input.Status.Valid() {
		return nil, nil, apperrors.InvalidInput(fmt.Sprintf("invalid movement status %q", input.Status))
	}
	// Adjustment quantities are signed deltas; every other type records a
	// non-negative count.
	if input.Type != domain.MovementAdjustment && input.Quantity < 0 {
		return nil, nil, apperrors.InvalidInput("quantity cannot be negative")
	}

	now := time.Now().UTC()
	log := &domain.WarehouseLog{
		OrderID:     input.OrderID,
		Type:        input.Type,
		Quantity:    input.Quantity,
		Status:      input.Status,
		Reference:   input.Reference,
		Location:    input.Location,
		Notes:       input.Notes,
		PerformedBy: performedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.ItemID != "" {
		log.ItemID = &input.ItemID
	}

	var item *domain.Item
	if input.Type == domain.MovementAdjustment && log.ItemID != nil {
		adjusted, err := s.logs.CreateWithStockAdjust(ctx, log, input.Quantity)
		if err != nil {
			return nil, nil, fmt.Errorf("create movement: %w", err)
		}
		item = adjusted
		log.Item = adjusted
	} else {
		if err := s.logs.Create(ctx, log); err != nil {
			return nil, nil, fmt.Errorf("create movement: %w", err)
		}
	}

	if err := s.producer.PublishMovementLogged(ctx, log, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish warehouse.movement_logged event",
			slog.Int64("log_id", log.ID),
			slog.String("error", err.Error()),
		)
	}

	s.invalidateSummary(ctx)

	s.logger.InfoContext(ctx, "stock movement logged",
		slog.Int64("log_id", log.ID),
		slog.String("item_id", input.ItemID),
		slog.String("type", string(log.Type)),
		slog.Int("quantity", log.Quantity),
	)

	return log, item, nil
}

// GetMovement retrieves a single ledger entry.
func (s *WarehouseService) GetMovement(ctx context.Context, id int64) (*domain.WarehouseLog, error) {
	log, err := s.logs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get movement by id: %w", err)
	}
	return log, nil
}

// ListMovements returns a filtered, paginated slice of the ledger.
func (s *WarehouseService) ListMovements(ctx context.Context, filter repository.WarehouseLogFilter) ([]domain.WarehouseLog, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 10
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	return logs, total, nil
}

// ListItemMovements returns the movement history of one item.
func (s *WarehouseService) ListItemMovements(ctx context.Context, itemID string, page, perPage int) ([]domain.WarehouseLog, int, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, 0, fmt.Errorf("get item for movements: %w", err)
	}

	return s.ListMovements(ctx, repository.WarehouseLogFilter{
		ItemID:  &itemID,
		Page:    page,
		PerPage: perPage,
	})
}

// Summary aggregates movements by type. Unbounded summaries are served from
// cache when available.
func (s *WarehouseService) Summary(ctx context.Context, dateFrom, dateTo *time.Time) ([]repository.MovementSummary, error) {
	cacheable := dateFrom == nil && dateTo == nil

	if cacheable {
		var cached []repository.MovementSummary
		hit, err := s.cache.Get(ctx, summaryCacheKey, &cached)
		if err != nil {
			s.logger.WarnContext(ctx, "summary cache read failed", slog.String("error", err.Error()))
		}
		if hit {
			return cached, nil
		}
	}

	summaries, err := s.logs.Summary(ctx, dateFrom, dateTo)
	if err != nil {
		return nil, fmt.Errorf("summarize movements: %w", err)
	}

	if cacheable {
		if err := s.cache.Set(ctx, summaryCacheKey, summaries); err != nil {
			s.logger.WarnContext(ctx, "summary cache write failed", slog.String("error", err.Error()))
		}
	}

	return summaries, nil
}

// UpdateMovement changes the handling status and notes of a ledger entry.
// The stock effect of the original movement is never revisited.
func (s *WarehouseService) UpdateMovement(ctx context.Context, id int64, status domain.MovementStatus, notes *string) (*domain.WarehouseLog, error) {
	if !status.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid movement status %q", status))
	}

	if err := s.logs.Update(ctx, id, status, notes); err != nil {
		return nil, fmt.Errorf("update movement: %w", err)
	}

	return s.logs.GetByID(ctx, id)
}

// DeleteMovement removes a ledger entry without touching stock.
func (s *WarehouseService) DeleteMovement(ctx context.Context, id int64) error {
	if err := s.logs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}

	s.invalidateSummary(ctx)
	return nil
}

func (s *WarehouseService) invalidateSummary(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, summaryCacheKey); err != nil {
		s.logger.WarnContext(ctx, "summary cache invalidation failed", slog.String("error", err.Error()))
	}
}
