package invoice

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/crestline-hq/crestline/internal/platform/cache"
	"github.com/crestline-hq/crestline/internal/platform/httpx"
	"github.com/crestline-hq/crestline/internal/rbac"
	"github.com/crestline-hq/crestline/internal/shared"
	"github.com/crestline-hq/crestline/internal/tax"
	"github.com/crestline-hq/crestline/internal/timesheet"
)

// 10 MiB covers a month of timesheets comfortably.
const maxUploadBytes = 10 << 20

var documentFormats = []string{"pdf", "msword"}

// Handler manages invoice endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	documents *cache.DocumentCache
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds a Handler instance. documents may be nil to disable
// download caching.
func NewHandler(logger *slog.Logger, service *Service, documents *cache.DocumentCache, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		documents: documents,
		validator: validator.New(),
		rbac:      rbac,
	}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermInvoiceView))
		r.Get("/", h.listInvoices)
		r.Get("/{id}", h.getInvoice)
		r.Get("/{id}/document", h.downloadDocument)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermInvoiceGenerate))
		r.Post("/generate", h.generateInvoice)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermInvoicePayment))
		r.Put("/{id}/payment", h.recordPayment)
	})
}

// generateInvoice accepts a multipart form with company_id, po_id, month,
// year and one timesheet per assigned employee under the "files" field.
// Each filename carries the employee id as "<id>_<name>.csv".
func (h *Handler) generateInvoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed multipart form")
		return
	}

	req := GenerateRequest{}
	var err error
	if req.CompanyID, err = formInt64(r, "company_id"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if req.POID, err = formInt64(r, "po_id"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	month, err := formInt64(r, "month")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	year, err := formInt64(r, "year")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	req.Month, req.Year = int(month), int(year)

	for _, header := range r.MultipartForm.File["files"] {
		file, err := readUpload(header.Filename, header)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		req.Files = append(req.Files, file)
	}

	inv, err := h.service.Generate(r.Context(), req)
	if err != nil {
		if !clientFault(err) {
			h.logger.Error("generate invoice", slog.Any("error", err),
				slog.Int64("company_id", req.CompanyID), slog.Int64("po_id", req.POID))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewInvoiceResponse(*inv))
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	var filter ListFilter
	var err error
	if v := r.URL.Query().Get("company_id"); v != "" {
		if filter.CompanyID, err = strconv.ParseInt(v, 10, 64); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", fmt.Sprintf("filter company_id: invalid integer %q", v))
			return
		}
	}
	if v := r.URL.Query().Get("po_id"); v != "" {
		if filter.POID, err = strconv.ParseInt(v, 10, 64); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", fmt.Sprintf("filter po_id: invalid integer %q", v))
			return
		}
	}
	if v := r.URL.Query().Get("entity_type"); v != "" {
		filter.EntityType = tax.EntityType(v)
	}
	if v := r.URL.Query().Get("year"); v != "" {
		if filter.Year, err = strconv.Atoi(v); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", fmt.Sprintf("filter year: invalid integer %q", v))
			return
		}
	}
	if v := r.URL.Query().Get("month"); v != "" {
		if filter.Month, err = strconv.Atoi(v); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", fmt.Sprintf("filter month: invalid integer %q", v))
			return
		}
	}

	invoices, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, NewInvoiceResponse(inv))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid invoice id")
		return
	}

	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("get invoice", slog.Any("error", err), slog.Int64("id", id))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewInvoiceResponse(*inv))
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid invoice id")
		return
	}

	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	paid, err := decimal.NewFromString(req.Paid)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: paid amount %q", shared.ErrInvalidAmount, req.Paid))
		return
	}

	inv, err := h.service.RecordPayment(r.Context(), id, paid)
	if err != nil {
		if !clientFault(err) {
			h.logger.Error("record payment", slog.Any("error", err), slog.Int64("id", id))
		}
		httpx.RespondError(w, err)
		return
	}

	// Cached documents show the balance, so they are stale now.
	if h.documents != nil {
		if err := h.documents.Invalidate(r.Context(), id, documentFormats...); err != nil {
			h.logger.Warn("invalidate cached documents", slog.Any("error", err), slog.Int64("id", id))
		}
	}
	httpx.JSON(w, http.StatusOK, NewInvoiceResponse(*inv))
}

func (h *Handler) downloadDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid invoice id")
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "msword"
	}

	if h.documents != nil {
		if data, err := h.documents.Get(r.Context(), id, format); err == nil && data != nil {
			writeDocument(w, id, format, data)
			return
		}
	}

	data, err := h.service.RenderDocument(r.Context(), id, format)
	if err != nil {
		if !clientFault(err) {
			h.logger.Error("render invoice document", slog.Any("error", err),
				slog.Int64("id", id), slog.String("format", format))
		}
		httpx.RespondError(w, err)
		return
	}

	if h.documents != nil {
		if err := h.documents.Set(r.Context(), id, format, data); err != nil {
			h.logger.Warn("cache invoice document", slog.Any("error", err), slog.Int64("id", id))
		}
	}
	writeDocument(w, id, format, data)
}

func writeDocument(w http.ResponseWriter, id int64, format string, data []byte) {
	switch format {
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice_%d.pdf", id))
	default:
		w.Header().Set("Content-Type", "application/msword")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice_%d.doc", id))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func formInt64(r *http.Request, field string) (int64, error) {
	raw := r.FormValue(field)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: invalid integer %q", field, raw)
	}
	return v, nil
}

// readUpload turns one multipart file into a timesheet.File. The employee id
// prefix in the filename is the routing key that ties the upload to an
// assignment.
func readUpload(filename string, header *multipart.FileHeader) (timesheet.File, error) {
	idPart, _, found := strings.Cut(filename, "_")
	if !found {
		return timesheet.File{}, fmt.Errorf("%w: filename %q missing employee id prefix", shared.ErrMalformedTimesheet, filename)
	}
	employeeID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return timesheet.File{}, fmt.Errorf("%w: filename %q has non-numeric employee id", shared.ErrMalformedTimesheet, filename)
	}

	f, err := header.Open()
	if err != nil {
		return timesheet.File{}, fmt.Errorf("open upload %q: %w", filename, err)
	}
	defer f.Close()

	// Read one byte past the cap so truncation is detectable. A clipped
	// timesheet would drop day rows and bill short.
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return timesheet.File{}, fmt.Errorf("read upload %q: %w", filename, err)
	}
	if len(data) > maxUploadBytes {
		return timesheet.File{}, fmt.Errorf("%w: file %q exceeds %d bytes", shared.ErrMalformedTimesheet, filename, maxUploadBytes)
	}
	return timesheet.File{EmployeeID: employeeID, Name: filename, Data: data}, nil
}

func clientFault(err error) bool {
	return errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrConfiguration) ||
		errors.Is(err, shared.ErrInvalidPeriod) ||
		errors.Is(err, shared.ErrMissingTimesheet) ||
		errors.Is(err, shared.ErrDuplicateInvoice) ||
		errors.Is(err, shared.ErrMalformedTimesheet) ||
		errors.Is(err, shared.ErrEmployeeMismatch) ||
		errors.Is(err, shared.ErrInvalidAmount)
}
