package masterdata

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/crestline-hq/crestline/internal/platform/httpx"
	"github.com/crestline-hq/crestline/internal/rbac"
	"github.com/crestline-hq/crestline/internal/shared"
)

// Handler manages client onboarding endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		rbac:      rbac,
	}
}

// MountRoutes registers masterdata routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermMasterdataView))
		r.Get("/companies", h.listCompanies)
		r.Get("/companies/{id}", h.getCompany)
		r.Get("/companies/{id}/purchase-orders", h.listPurchaseOrders)
		r.Get("/purchase-orders/{id}/employees", h.listEmployees)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermMasterdataEdit))
		r.Post("/companies", h.createCompany)
		r.Put("/companies/{id}/status", h.updateCompanyStatus)
	})
}

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	company, err := h.service.CreateCompany(r.Context(), req)
	if err != nil {
		h.logger.Error("create company", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.logger.Info("company onboarded",
		slog.Int64("company_id", company.ID),
		slog.String("entity_type", string(company.EntityType)))
	httpx.JSON(w, http.StatusCreated, NewCompanyResponse(*company))
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.ListCompanies(r.Context())
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := make([]CompanyResponse, 0, len(companies))
	for _, c := range companies {
		out = append(out, NewCompanyResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid company id")
		return
	}

	company, err := h.service.GetCompany(r.Context(), id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("get company", slog.Any("error", err), slog.Int64("id", id))
		}
		httpx.RespondError(w, err)
		return
	}

	resp := NewCompanyResponse(*company)
	if count, err := h.service.CountPurchaseOrders(r.Context(), id); err == nil {
		resp.POCount = count
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid company id")
		return
	}

	orders, err := h.service.ListPurchaseOrders(r.Context(), id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("list purchase orders", slog.Any("error", err), slog.Int64("company_id", id))
		}
		httpx.RespondError(w, err)
		return
	}

	out := make([]PurchaseOrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewPurchaseOrderResponse(o))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid purchase order id")
		return
	}

	employees, err := h.service.ListEmployees(r.Context(), id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("list employees", slog.Any("error", err), slog.Int64("po_id", id))
		}
		httpx.RespondError(w, err)
		return
	}

	out := make([]EmployeeResponse, 0, len(employees))
	for _, e := range employees {
		out = append(out, NewEmployeeResponse(e))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) updateCompanyStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid company id")
		return
	}

	var req UpdateCompanyStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.service.SetCompanyActive(r.Context(), id, *req.Active); err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("update company status", slog.Any("error", err), slog.Int64("id", id))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "active": *req.Active})
}
