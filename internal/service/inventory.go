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
	rediscache "github.com/tidemark/stockroom/internal/repository/redis"
	apperrors "github.com/tidemark/stockroom/pkg/errors"
)

const categoriesCacheKey = "inventory:categories"

// InventoryService implements the business logic for inventory items.
type InventoryService struct {
	items        repository.ItemRepository
	distributors repository.DistributorRepository
	cache        *rediscache.Cache
	producer     *event.Producer
	logger       *slog.Logger
}

// NewInventoryService creates a new inventory service. The cache may be nil.
func NewInventoryService(
	items repository.ItemRepository,
	distributors repository.DistributorRepository,
	cache *rediscache.Cache,
	producer *event.Producer,
	logger *slog.Logger,
) *InventoryService {
	return &InventoryService{
		items:        items,
		distributors: distributors,
		cache:        cache,
		producer:     producer,
		logger:       logger,
	}
}

// CreateItemInput holds the parameters for creating an inventory item.
type CreateItemInput struct {
	SKU           string
	Barcode       string
	Name          string
	Description   string
	Category      string
	Price         decimal.Decimal
	Cost          decimal.Decimal
	Stock         int
	MinStockLevel *int
	Unit          string
	Location      string
	DistributorID *int64
}

// CreateItem validates and persists a new item. An initial stock greater
// than zero is recorded in the movement ledger as a received movement by the
// caller through the warehouse service; here stock is stored as given.
func (s *InventoryService) CreateItem(ctx context.Context, input CreateItemInput) (*domain.Item, error) {
	if input.Price.IsNegative() || input.Cost.IsNegative() {
		return nil, apperrors.InvalidInput("price and cost cannot be negative")
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock cannot be negative")
	}

	if input.DistributorID != nil {
		if _, err := s.distributors.GetByID(ctx, *input.DistributorID); err != nil {
			return nil, fmt.Errorf("get item distributor: %w", err)
		}
	}

	minStock := domain.DefaultMinStockLevel
	if input.MinStockLevel != nil {
		if *input.MinStockLevel < 0 {
			return nil, apperrors.InvalidInput("minimum stock level cannot be negative")
		}
		minStock = *input.MinStockLevel
	}

	now := time.Now().UTC()
	item := &domain.Item{
		ID:            domain.NewItemID(input.SKU, now),
		SKU:           input.SKU,
		Barcode:       input.Barcode,
		Name:          input.Name,
		Description:   input.Description,
		Category:      input.Category,
		Price:         input.Price,
		Cost:          input.Cost,
		Stock:         input.Stock,
		MinStockLevel: minStock,
		Unit:          input.Unit,
		Location:      input.Location,
		DistributorID: input.DistributorID,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.invalidateCategories(ctx)

	s.logger.InfoContext(ctx, "item created",
		slog.String("item_id", item.ID),
		slog.String("sku", item.SKU),
		slog.Int("stock", item.Stock),
	)

	return item, nil
}

// GetItem retrieves an item by its ID.
func (s *InventoryService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item by id: %w", err)
	}
	return item, nil
}

// ListItems returns a filtered, paginated list of items.
func (s *InventoryService) ListItems(ctx context.Context, filter repository.ItemFilter) ([]domain.Item, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 10
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	items, total, err := s.items.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	return items, total, nil
}

// UpdateItemInput holds the parameters for updating an item. Stock is
// deliberately absent; stock changes go through SetStock or the warehouse
// ledger.
type UpdateItemInput struct {
	SKU           *string
	Barcode       *string
	Name          *string
	Description   *string
	Category      *string
	Price         *decimal.Decimal
	Cost          *decimal.Decimal
	MinStockLevel *int
	Unit          *string
	Location      *string
	DistributorID *int64
	IsActive      *bool
}

// UpdateItem applies a partial update to an item's descriptive fields.
func (s *InventoryService) UpdateItem(ctx context.Context, id string, input UpdateItemInput) (*domain.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item for update: %w", err)
	}

	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, apperrors.InvalidInput("price cannot be negative")
		}
		item.Price = *input.Price
	}
	if input.Cost != nil {
		if input.Cost.IsNegative() {
			return nil, apperrors.InvalidInput("cost cannot be negative")
		}
		item.Cost = *input.Cost
	}
	if input.MinStockLevel != nil {
		if *input.MinStockLevel < 0 {
			return nil, apperrors.InvalidInput("minimum stock level cannot be negative")
		}
		item.MinStockLevel = *input.MinStockLevel
	}
	if input.DistributorID != nil {
		if _, err := s.distributors.GetByID(ctx, *input.DistributorID); err != nil {
			return nil, fmt.Errorf("get item distributor: %w", err)
		}
		item.DistributorID = input.DistributorID
	}
	if input.SKU != nil {
		item.SKU = *input.SKU
	}
	if input.Barcode != nil {
		item.Barcode = *input.Barcode
	}
	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Category != nil {
		item.Category = *input.Category
	}
	if input.Unit != nil {
		item.Unit = *input.Unit
	}
	if input.Location != nil {
		item.Location = *input.Location
	}
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	s.invalidateCategories(ctx)

	return item, nil
}

// SetStock sets an item's stock to an absolute value and returns the updated
// item along with the stock level it replaced. The repository pairs the
// change with an adjustment entry in the movement ledger atomically.
func (s *InventoryService) SetStock(ctx context.Context, id string, newStock int, note string, performedBy int64) (*domain.Item, int, error) {
	if newStock < 0 {
		return nil, 0, apperrors.InvalidInput("stock cannot be negative")
	}

	before, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("get item for stock set: %w", err)
	}

	item, err := s.items.SetStock(ctx, id, newStock, note, performedBy)
	if err != nil {
		return nil, 0, fmt.Errorf("set item stock: %w", err)
	}

	if err := s.producer.PublishStockAdjusted(ctx, item, before.Stock, performedBy); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish inventory.stock_adjusted event",
			slog.String("item_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "item stock set",
		slog.String("item_id", id),
		slog.Int("old_stock", before.Stock),
		slog.Int("new_stock", item.Stock),
		slog.Int64("performed_by", performedBy),
	)

	return item, before.Stock, nil
}

// Categories returns the distinct item categories, served from cache when
// available.
func (s *InventoryService) Categories(ctx context.Context) ([]string, error) {
	var cached []string
	hit, err := s.cache.Get(ctx, categoriesCacheKey, &cached)
	if err != nil {
		s.logger.WarnContext(ctx, "category cache read failed", slog.String("error", err.Error()))
	}
	if hit {
		return cached, nil
	}

	categories, err := s.items.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	if err := s.cache.Set(ctx, categoriesCacheKey, categories); err != nil {
		s.logger.WarnContext(ctx, "category cache write failed", slog.String("error", err.Error()))
	}

	return categories, nil
}

// DeleteItem removes an item, or deactivates it instead when order lines
// reference it so history stays intact.
func (s *InventoryService) DeleteItem(ctx context.Context, id string) (deactivated bool, err error) {
	deactivated, err = deleteOrDeactivate(ctx, deletePolicy{
		count:      func(ctx context.Context) (int, error) { return s.items.CountOrderLines(ctx, id) },
		deactivate: func(ctx context.Context) error { return s.items.Deactivate(ctx, id) },
		delete:     func(ctx context.Context) error { return s.items.Delete(ctx, id) },
	})
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}

	s.invalidateCategories(ctx)

	s.logger.InfoContext(ctx, "item removed",
		slog.String("item_id", id),
		slog.Bool("deactivated", deactivated),
	)

	return deactivated, nil
}

func (s *InventoryService) invalidateCategories(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, categoriesCacheKey); err != nil {
		s.logger.WarnContext(ctx, "category cache invalidation failed", slog.String("error", err.Error()))
	}
}
