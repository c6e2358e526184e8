package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tidemark/stockroom/internal/domain"
	"github.com/tidemark/stockroom/internal/repository"
	"github.com/tidemark/stockroom/internal/service"
	"github.com/tidemark/stockroom/pkg/httputil"
	"github.com/tidemark/stockroom/pkg/validator"
)

// WarehouseHandler handles HTTP requests for warehouse ledger endpoints.
type WarehouseHandler struct {
	service *service.WarehouseService
	logger  *slog.Logger
}

// NewWarehouseHandler creates a new warehouse HTTP handler.
func NewWarehouseHandler(svc *service.WarehouseService, logger *slog.Logger) *WarehouseHandler {
	return &WarehouseHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateMovementRequest is the JSON request body for recording a stock
// movement. Item and order references are optional; only an adjustment with
// an itemId changes stock.
type CreateMovementRequest struct {
	ItemID    string `json:"itemId"`
	OrderID   *int64 `json:"orderId" validate:"omitempty,gte=1"`
	Type      string `json:"type" validate:"required,oneof=received shipped damaged spoiled missing returned adjustment"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status" validate:"omitempty,oneof=pending shipped delivered received missing damaged spoiled"`
	Reference string `json:"reference" validate:"omitempty,max=100"`
	Location  string `json:"location" validate:"omitempty,max=100"`
	Notes     string `json:"notes"`
}

// UpdateMovementRequest is the JSON request body for updating a ledger entry.
// Only status and notes can change; the stock effect of an entry is never
// revisited after it is recorded.
type UpdateMovementRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending shipped delivered received missing damaged spoiled"`
	Notes  *string `json:"notes"`
}

// MovementResponse pairs a recorded ledger entry with the item's stock level
// after the movement. The item is present only for stock-adjusting entries.
type MovementResponse struct {
	Movement *domain.WarehouseLog `json:"movement"`
	Item     *domain.Item         `json:"item,omitempty"`
}

// CreateMovement handles POST /api/warehouse
func (h *WarehouseHandler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateMovementRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	movement, item, err := h.service.CreateMovement(r.Context(), userID, service.CreateMovementInput{
		ItemID:    req.ItemID,
		OrderID:   req.OrderID,
		Type:      domain.MovementType(req.Type),
		Quantity:  req.Quantity,
		Status:    domain.MovementStatus(req.Status),
		Reference: req.Reference,
		Location:  req.Location,
		Notes:     req.Notes,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Created(w, "movement recorded", MovementResponse{Movement: movement, Item: item})
}

// ListMovements handles GET /api/warehouse
func (h *WarehouseHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := httputil.PageParams(w, r)
	if !ok {
		return
	}

	filter := repository.WarehouseLogFilter{
		Page:    page,
		PerPage: limit,
	}

	if v := r.URL.Query().Get("itemId"); v != "" {
		filter.ItemID = &v
	}
	if v := r.URL.Query().Get("type"); v != "" {
		t := domain.MovementType(v)
		if !t.Valid() {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "invalid movement type filter: " + v,
			})
			return
		}
		filter.Type = &t
	}
	if v := r.URL.Query().Get("status"); v != "" {
		s := domain.MovementStatus(v)
		if !s.Valid() {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "invalid movement status filter: " + v,
			})
			return
		}
		filter.Status = &s
	}

	var parseOK bool
	if filter.DateFrom, parseOK = parseDateParam(w, r, "dateFrom"); !parseOK {
		return
	}
	if filter.DateTo, parseOK = parseDateParam(w, r, "dateTo"); !parseOK {
		return
	}

	movements, total, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "", httputil.NewPage(movements, total, page, limit))
}

// GetMovement handles GET /api/warehouse/{id}
func (h *WarehouseHandler) GetMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	movement, err := h.service.GetMovement(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "", movement)
}

// ListItemMovements handles GET /api/warehouse/items/{itemId}
func (h *WarehouseHandler) ListItemMovements(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")

	page, limit, ok := httputil.PageParams(w, r)
	if !ok {
		return
	}

	movements, total, err := h.service.ListItemMovements(r.Context(), itemID, page, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "", httputil.NewPage(movements, total, page, limit))
}

// Summary handles GET /api/warehouse/summary
func (h *WarehouseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	dateFrom, ok := parseDateParam(w, r, "dateFrom")
	if !ok {
		return
	}
	dateTo, ok := parseDateParam(w, r, "dateTo")
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), dateFrom, dateTo)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "", summary)
}

// UpdateMovement handles PUT /api/warehouse/{id}
func (h *WarehouseHandler) UpdateMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateMovementRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	movement, err := h.service.UpdateMovement(r.Context(), id, domain.MovementStatus(req.Status), req.Notes)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "movement updated", movement)
}

// DeleteMovement handles DELETE /api/warehouse/{id}
func (h *WarehouseHandler) DeleteMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteMovement(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "movement deleted", nil)
}

// parseDateParam reads an optional date query parameter, accepting either a
// full RFC 3339 timestamp or a plain YYYY-MM-DD date.
func parseDateParam(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}

	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, true
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return &t, true
	}

	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Success: false,
		Message: name + " must be an RFC 3339 timestamp or YYYY-MM-DD date",
	})
	return nil, false
}
