package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tidemark/stockroom/internal/domain"
	"github.com/tidemark/stockroom/internal/repository"
	"github.com/tidemark/stockroom/internal/service"
	"github.com/tidemark/stockroom/pkg/httputil"
	"github.com/tidemark/stockroom/pkg/validator"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateOrderLineRequest is the JSON request body for one order line. Any
// client-supplied total is ignored; totals are recomputed server side.
type CreateOrderLineRequest struct {
	ItemID    string           `json:"itemId" validate:"required"`
	Quantity  int              `json:"quantity" validate:"required,gte=1"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
	Discount  decimal.Decimal  `json:"discount"`
	Notes     string           `json:"notes"`
}

// CreateOrderRequest is the JSON request body for creating an order.
type CreateOrderRequest struct {
	CustomerID   int64                    `json:"customerId" validate:"required,gte=1"`
	Priority     string                   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	RequiredDate *time.Time               `json:"requiredDate"`
	Notes        string                   `json:"notes"`
	AssignedTo   *int64                   `json:"assignedTo"`
	Items        []CreateOrderLineRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderRequest is the JSON request body for a partial order update.
// Status set here skips the shipped and delivered date stamping done by the
// dedicated status endpoint.
type UpdateOrderRequest struct {
	Status       *string    `json:"status" validate:"omitempty,oneof=pending confirmed processing shipped delivered cancelled"`
	Priority     *string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	RequiredDate *time.Time `json:"requiredDate"`
	Notes        *string    `json:"notes"`
	AssignedTo   *int64     `json:"assignedTo"`
}

// UpdateStatusRequest is the JSON request body for updating order status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled"`
}

// CancelOrderRequest is the JSON request body for cancelling an order.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	lines := make([]service.CreateOrderLineInput, len(req.Items))
	for i, item := range req.Items {
		lines[i] = service.CreateOrderLineInput{
			ItemID:    item.ItemID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Discount:  item.Discount,
			Notes:     item.Notes,
		}
	}

	order, err := h.service.CreateOrder(r.Context(), userID, service.CreateOrderInput{
		CustomerID:   req.CustomerID,
		Priority:     domain.OrderPriority(req.Priority),
		RequiredDate: req.RequiredDate,
		Notes:        req.Notes,
		AssignedTo:   req.AssignedTo,
		Lines:        lines,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Created(w, "order created", order)
}

// ListOrders handles GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := httputil.PageParams(w, r)
	if !ok {
		return
	}

	filter := repository.OrderFilter{Page: page, PerPage: limit}

	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.OrderStatus(v)
		if !status.Valid() {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "invalid status filter: " + v,
			})
			return
		}
		filter.Status = &status
	}
	if v := r.URL.Query().Get("priority"); v != "" {
		priority := domain.OrderPriority(v)
		if !priority.Valid() {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "invalid priority filter: " + v,
			})
			return
		}
		filter.Priority = &priority
	}
	if v := r.URL.Query().Get("customerId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "customerId must be an integer",
			})
			return
		}
		filter.CustomerID = &id
	}
	if v := r.URL.Query().Get("assignedTo"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "assignedTo must be an integer",
			})
			return
		}
		filter.AssignedTo = &id
	}
	filter.Search = r.URL.Query().Get("search")

	sort := r.URL.Query().Get("sort")
	switch sort {
	case "", "newest", "oldest", "total_asc", "total_desc", "required_date":
		filter.Sort = sort
	default:
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Success: false,
			Message: "invalid sort value",
		})
		return
	}

	var parseOK bool
	if filter.DateFrom, parseOK = parseDateParam(w, r, "dateFrom"); !parseOK {
		return
	}
	if filter.DateTo, parseOK = parseDateParam(w, r, "dateTo"); !parseOK {
		return
	}

	orders, total, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "", httputil.NewPage(orders, total, filter.Page, filter.PerPage))
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "", order)
}

// UpdateOrder handles PUT /api/orders/{id}
func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	update := repository.OrderUpdate{
		RequiredDate: req.RequiredDate,
		Notes:        req.Notes,
		AssignedTo:   req.AssignedTo,
	}
	if req.Status != nil {
		s := domain.OrderStatus(*req.Status)
		update.Status = &s
	}
	if req.Priority != nil {
		p := domain.OrderPriority(*req.Priority)
		update.Priority = &p
	}

	order, err := h.service.UpdateOrder(r.Context(), id, update)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "order updated", order)
}

// UpdateOrderStatus handles PUT /api/orders/{id}/status
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "order status updated", order)
}

// CancelOrder handles DELETE /api/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// An empty body is fine; the reason defaults to empty.
		req = CancelOrderRequest{}
	}

	order, err := h.service.CancelOrder(r.Context(), id, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "order cancelled", order)
}
