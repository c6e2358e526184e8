package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tidemark/stockroom/internal/repository"
	"github.com/tidemark/stockroom/internal/service"
	"github.com/tidemark/stockroom/pkg/httputil"
	"github.com/tidemark/stockroom/pkg/validator"
)

// InventoryHandler handles HTTP requests for inventory item endpoints.
type InventoryHandler struct {
	service *service.InventoryService
	logger  *slog.Logger
}

// NewInventoryHandler creates a new inventory HTTP handler.
func NewInventoryHandler(svc *service.InventoryService, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateItemRequest is the JSON request body for creating an item.
type CreateItemRequest struct {
	SKU           string          `json:"sku" validate:"required,max=100"`
	Barcode       string          `json:"barcode" validate:"omitempty,max=100"`
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description"`
	Category      string          `json:"category" validate:"omitempty,max=100"`
	Price         decimal.Decimal `json:"price" validate:"required"`
	Cost          decimal.Decimal `json:"cost"`
	Stock         int             `json:"stock" validate:"gte=0"`
	MinStockLevel *int            `json:"minStockLevel" validate:"omitempty,gte=0"`
	Unit          string          `json:"unit" validate:"omitempty,max=20"`
	Location      string          `json:"location" validate:"omitempty,max=100"`
	DistributorID *int64          `json:"distributorId" validate:"omitempty,gte=1"`
}

// UpdateItemRequest is the JSON request body for a partial item update.
// Stock is intentionally absent; stock moves only through the stock
// endpoint or warehouse movements.
type UpdateItemRequest struct {
	SKU           *string          `json:"sku" validate:"omitempty,max=100"`
	Barcode       *string          `json:"barcode" validate:"omitempty,max=100"`
	Name          *string          `json:"name" validate:"omitempty,max=200"`
	Description   *string          `json:"description"`
	Category      *string          `json:"category" validate:"omitempty,max=100"`
	Price         *decimal.Decimal `json:"price"`
	Cost          *decimal.Decimal `json:"cost"`
	MinStockLevel *int             `json:"minStockLevel" validate:"omitempty,gte=0"`
	Unit          *string          `json:"unit" validate:"omitempty,max=20"`
	Location      *string          `json:"location" validate:"omitempty,max=100"`
	DistributorID *int64           `json:"distributorId" validate:"omitempty,gte=1"`
	IsActive      *bool            `json:"isActive"`
}

// SetStockRequest is the JSON request body for setting an item's absolute
// stock level.
type SetStockRequest struct {
	Stock int    `json:"stock" validate:"gte=0"`
	Note  string `json:"note"`
}

// StockUpdateResponse summarizes a stock change, reporting the level the new
// stock replaced.
type StockUpdateResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Stock    int    `json:"stock"`
	OldStock int    `json:"oldStock"`
}

// CreateItem handles POST /api/inventory
func (h *InventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	item, err := h.service.CreateItem(r.Context(), service.CreateItemInput{
		SKU:           req.SKU,
		Barcode:       req.Barcode,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		Cost:          req.Cost,
		Stock:         req.Stock,
		MinStockLevel: req.MinStockLevel,
		Unit:          req.Unit,
		Location:      req.Location,
		DistributorID: req.DistributorID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Created(w, "item created", item)
}

// ListItems handles GET /api/inventory
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := httputil.PageParams(w, r)
	if !ok {
		return
	}

	filter := repository.ItemFilter{
		Search:          r.URL.Query().Get("search"),
		LowStock:        r.URL.Query().Get("lowStock") == "true",
		IncludeInactive: r.URL.Query().Get("includeInactive") == "true",
		Page:            page,
		PerPage:         limit,
	}

	sort := r.URL.Query().Get("sort")
	switch sort {
	case "", "name_asc", "name_desc", "price_asc", "price_desc", "stock_asc", "stock_desc", "newest":
		filter.Sort = sort
	default:
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Success: false,
			Message: "invalid sort value",
		})
		return
	}

	if v := r.URL.Query().Get("category"); v != "" {
		filter.Category = &v
	}
	if v := r.URL.Query().Get("distributorId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "distributorId must be an integer",
			})
			return
		}
		filter.DistributorID = &id
	}

	items, total, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "", httputil.NewPage(items, total, page, limit))
}

// GetItem handles GET /api/inventory/{id}
func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "", item)
}

// UpdateItem handles PUT /api/inventory/{id}
func (h *InventoryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	item, err := h.service.UpdateItem(r.Context(), id, service.UpdateItemInput{
		SKU:           req.SKU,
		Barcode:       req.Barcode,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		Cost:          req.Cost,
		MinStockLevel: req.MinStockLevel,
		Unit:          req.Unit,
		Location:      req.Location,
		DistributorID: req.DistributorID,
		IsActive:      req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "item updated", item)
}

// SetStock handles PUT /api/inventory/{id}/stock. The request carries the
// absolute stock level; the matching adjustment entry is written to the
// warehouse ledger in the same transaction.
func (h *InventoryHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SetStockRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	item, oldStock, err := h.service.SetStock(r.Context(), id, req.Stock, req.Note, userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "stock updated", StockUpdateResponse{
		ID:       item.ID,
		Name:     item.Name,
		Stock:    item.Stock,
		OldStock: oldStock,
	})
}

// Categories handles GET /api/inventory/categories
func (h *InventoryHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "", categories)
}

// DeleteItem handles DELETE /api/inventory/{id}. Items referenced by order
// lines are deactivated instead of removed.
func (h *InventoryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deactivated, err := h.service.DeleteItem(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	msg := "item deleted"
	if deactivated {
		msg = "item deactivated because order lines reference it"
	}
	httputil.OK(w, msg, nil)
}
