package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tidemark/stockroom/internal/service"
	"github.com/tidemark/stockroom/pkg/httputil"
	"github.com/tidemark/stockroom/pkg/validator"
)

// DistributorHandler handles HTTP requests for distributor endpoints.
type DistributorHandler struct {
	service *service.DistributorService
	logger  *slog.Logger
}

// NewDistributorHandler creates a new distributor HTTP handler.
func NewDistributorHandler(svc *service.DistributorService, logger *slog.Logger) *DistributorHandler {
	return &DistributorHandler{
		service: svc,
		logger:  logger,
	}
}

// DistributorRequest is the JSON request body for creating or updating a distributor.
type DistributorRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	ContactPerson string `json:"contactPerson" validate:"omitempty,max=100"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"omitempty,max=30"`
	Location      string `json:"location" validate:"omitempty,max=100"`
	Address       string `json:"address"`
	Notes         string `json:"notes"`
}

func (r DistributorRequest) toInput() service.DistributorInput {
	return service.DistributorInput{
		Name:          r.Name,
		ContactPerson: r.ContactPerson,
		Email:         r.Email,
		Phone:         r.Phone,
		Location:      r.Location,
		Address:       r.Address,
		Notes:         r.Notes,
	}
}

// CreateDistributor handles POST /api/distributors
func (h *DistributorHandler) CreateDistributor(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req DistributorRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	distributor, err := h.service.CreateDistributor(r.Context(), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Created(w, "distributor created", distributor)
}

// ListDistributors handles GET /api/distributors
func (h *DistributorHandler) ListDistributors(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := httputil.PageParams(w, r)
	if !ok {
		return
	}

	search := r.URL.Query().Get("search")
	includeInactive := r.URL.Query().Get("includeInactive") == "true"

	distributors, total, err := h.service.ListDistributors(r.Context(), search, includeInactive, page, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "", httputil.NewPage(distributors, total, page, limit))
}

// GetDistributor handles GET /api/distributors/{id}
func (h *DistributorHandler) GetDistributor(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	distributor, err := h.service.GetDistributor(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "", distributor)
}

// UpdateDistributor handles PUT /api/distributors/{id}
func (h *DistributorHandler) UpdateDistributor(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req DistributorRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	distributor, err := h.service.UpdateDistributor(r.Context(), id, req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.OK(w, "distributor updated", distributor)
}

// DeleteDistributor handles DELETE /api/distributors/{id}. Distributors with
// items attached are deactivated instead of removed.
func (h *DistributorHandler) DeleteDistributor(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	deactivated, err := h.service.DeleteDistributor(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	msg := "distributor deleted"
	if deactivated {
		msg = "distributor deactivated because items reference it"
	}
	httputil.OK(w, msg, nil)
}
