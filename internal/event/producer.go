package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/tidemark/stockroom/internal/domain"
	pkgkafka "github.com/tidemark/stockroom/pkg/kafka"
)

// Kafka topics for domain events.
var (
	TopicOrderCreated       = pkgkafka.Topic("order", "created")
	TopicOrderStatusChanged = pkgkafka.Topic("order", "status_changed")
	TopicOrderCancelled     = pkgkafka.Topic("order", "cancelled")
	TopicStockAdjusted      = pkgkafka.Topic("inventory", "stock_adjusted")
	TopicMovementLogged     = pkgkafka.Topic("warehouse", "movement_logged")
)

// Aggregate type constants.
const (
	AggregateTypeOrder    = "order"
	AggregateTypeItem     = "item"
	AggregateTypeMovement = "movement"
)

// Source identifier for events originating from this service.
const SourceStockroom = "stockroom-api"

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  int64           `json:"customer_id"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	Lines       []OrderLineData `json:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	FinalAmount decimal.Decimal `json:"final_amount"`
	CreatedBy   int64           `json:"created_by"`
}

// OrderLineData is the event payload for an order line.
type OrderLineData struct {
	ItemID     string          `json:"item_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Discount   decimal.Decimal `json:"discount"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID   int64  `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// OrderCancelledData is the payload for an order.cancelled event.
type OrderCancelledData struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason,omitempty"`
}

// StockAdjustedData is the payload for an inventory.stock_adjusted event.
type StockAdjustedData struct {
	ItemID      string `json:"item_id"`
	SKU         string `json:"sku"`
	OldStock    int    `json:"old_stock"`
	NewStock    int    `json:"new_stock"`
	PerformedBy int64  `json:"performed_by"`
}

// MovementLoggedData is the payload for a warehouse.movement_logged event.
// StockAfter is set only when the movement adjusted item stock.
type MovementLoggedData struct {
	LogID       int64  `json:"log_id"`
	ItemID      string `json:"item_id,omitempty"`
	Type        string `json:"type"`
	Quantity    int    `json:"quantity"`
	StockAfter  *int   `json:"stock_after,omitempty"`
	PerformedBy int64  `json:"performed_by"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order.created event with the order snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	lines := make([]OrderLineData, len(order.Lines))
	for i, line := range order.Lines {
		lines[i] = OrderLineData{
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Discount:   line.Discount,
			TotalPrice: line.TotalPrice,
		}
	}

	data := OrderCreatedData{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		Priority:    string(order.Priority),
		Lines:       lines,
		TotalAmount: order.TotalAmount,
		FinalAmount: order.FinalAmount,
		CreatedBy:   order.CreatedBy,
	}

	return p.publish(ctx, TopicOrderCreated, fmt.Sprint(order.ID), AggregateTypeOrder, data)
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID int64, oldStatus, newStatus domain.OrderStatus) error {
	data := OrderStatusChangedData{
		OrderID:   orderID,
		OldStatus: string(oldStatus),
		NewStatus: string(newStatus),
	}
	return p.publish(ctx, TopicOrderStatusChanged, fmt.Sprint(orderID), AggregateTypeOrder, data)
}

// PublishOrderCancelled publishes an order.cancelled event.
func (p *Producer) PublishOrderCancelled(ctx context.Context, order *domain.Order, reason string) error {
	data := OrderCancelledData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Reason:      reason,
	}
	return p.publish(ctx, TopicOrderCancelled, fmt.Sprint(order.ID), AggregateTypeOrder, data)
}

// PublishStockAdjusted publishes an inventory.stock_adjusted event.
func (p *Producer) PublishStockAdjusted(ctx context.Context, item *domain.Item, oldStock int, performedBy int64) error {
	data := StockAdjustedData{
		ItemID:      item.ID,
		SKU:         item.SKU,
		OldStock:    oldStock,
		NewStock:    item.Stock,
		PerformedBy: performedBy,
	}
	return p.publish(ctx, TopicStockAdjusted, item.ID, AggregateTypeItem, data)
}

// PublishMovementLogged publishes a warehouse.movement_logged event. The
// item is non-nil only when the movement adjusted stock.
func (p *Producer) PublishMovementLogged(ctx context.Context, log *domain.WarehouseLog, item *domain.Item) error {
	data := MovementLoggedData{
		LogID:       log.ID,
		Type:        string(log.Type),
		Quantity:    log.Quantity,
		PerformedBy: log.PerformedBy,
	}
	if log.ItemID != nil {
		data.ItemID = *log.ItemID
	}
	if item != nil {
		data.StockAfter = &item.Stock
	}

	aggregateID := fmt.Sprint(log.ID)
	aggregateType := AggregateTypeMovement
	if log.ItemID != nil {
		aggregateID = *log.ItemID
		aggregateType = AggregateTypeItem
	}
	return p.publish(ctx, TopicMovementLogged, aggregateID, aggregateType, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStockroom, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}
