package purchasing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/agriflight/backoffice/internal/approvals"
	"github.com/agriflight/backoffice/internal/platform/httpx"
	"github.com/agriflight/backoffice/internal/shared"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/deliver", h.handleDeliver)
	r.Post("/{id}/invoice", h.handleInvoice)
	r.Post("/{id}/pay", h.handlePay)
	r.Delete("/{id}", h.handleCancel)
	r.Post("/{id}/quotation", h.handleAttachQuotation)
	r.Get("/{id}/documents/invoice", h.handleInvoiceDocument)
	r.Get("/{id}/documents/bill", h.handleBillDocument)
	r.Get("/{id}/documents/receipt", h.handleReceiptDocument)
}

type lineItemRequest struct {
	ProductRef    string  `json:"product_ref" validate:"max=100"`
	Description   string  `json:"description" validate:"required,max=500"`
	Quantity      float64 `json:"quantity" validate:"required,gte=1"`
	UnitOfMeasure string  `json:"unit_of_measure" validate:"max=30"`
	UnitPrice     float64 `json:"unit_price" validate:"gte=0"`
	TaxRate       float64 `json:"tax_rate" validate:"gte=0,lte=100"`
}

type createRequest struct {
	Number               string            `json:"number" validate:"max=50"`
	VendorID             int64             `json:"vendor_id" validate:"required,gt=0"`
	OrderDate            string            `json:"order_date"`
	ExpectedDeliveryDate string            `json:"expected_delivery_date"`
	Items                []lineItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingCharges      float64           `json:"shipping_charges" validate:"gte=0"`
	OtherCharges         float64           `json:"other_charges" validate:"gte=0"`
	DiscountAmount       float64           `json:"discount_amount" validate:"gte=0"`
	Currency             string            `json:"currency" validate:"omitempty,len=3"`
	Notes                string            `json:"notes" validate:"max=2000"`
	CreatedByID          int64             `json:"created_by_id"`
	CreatedByName        string            `json:"created_by_name" validate:"max=200"`
}

type transitionRequest struct {
	UpdatedBy   string   `json:"updated_by" validate:"required,max=200"`
	Date        string   `json:"date"`
	Notes       string   `json:"notes" validate:"max=2000"`
	InvoiceFile *FileRef `json:"invoice_file"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	vendorID, _ := strconv.ParseInt(q.Get("vendor_id"), 10, 64)
	filters := ListFilters{
		Status:   q.Get("status"),
		VendorID: vendorID,
		Search:   q.Get("search"),
		SortBy:   q.Get("sort"),
		SortDir:  q.Get("dir"),
		Page:     page,
		Limit:    limit,
	}
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{"purchase_orders": items, "total": total})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "malformed JSON payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.FromValidator(err))
		return
	}
	input := CreateInput{
		Number:          req.Number,
		VendorID:        req.VendorID,
		ShippingCharges: req.ShippingCharges,
		OtherCharges:    req.OtherCharges,
		DiscountAmount:  req.DiscountAmount,
		Currency:        req.Currency,
		Notes:           req.Notes,
		CreatedBy:       approvals.Actor{ID: req.CreatedByID, Name: req.CreatedByName},
	}
	if req.OrderDate != "" {
		parsed, err := time.Parse("2006-01-02", req.OrderDate)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("order_date", "expected format YYYY-MM-DD"))
			return
		}
		input.OrderDate = parsed
	}
	if req.ExpectedDeliveryDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ExpectedDeliveryDate)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("expected_delivery_date", "expected format YYYY-MM-DD"))
			return
		}
		input.ExpectedDeliveryDate = &parsed
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, LineItemInput(item))
	}
	po, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create purchase order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "purchase order created, pending approval", po)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	po, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", po)
}

func (h *Handler) handleDeliver(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.decodeTransition(w, r)
	if !ok {
		return
	}
	var deliveryDate *time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("date", "expected format YYYY-MM-DD"))
			return
		}
		deliveryDate = &parsed
	}
	po, err := h.service.MarkDelivered(r.Context(), id, req.UpdatedBy, deliveryDate, req.Notes)
	if err != nil {
		h.logger.Error("mark delivered", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "purchase order marked as delivered", po)
}

func (h *Handler) handleInvoice(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.decodeTransition(w, r)
	if !ok {
		return
	}
	po, err := h.service.MarkInvoiced(r.Context(), id, req.UpdatedBy, req.InvoiceFile, req.Notes)
	if err != nil {
		h.logger.Error("mark invoiced", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "purchase order marked as invoiced", po)
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.decodeTransition(w, r)
	if !ok {
		return
	}
	var paymentDate *time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("date", "expected format YYYY-MM-DD"))
			return
		}
		paymentDate = &parsed
	}
	po, err := h.service.MarkPaid(r.Context(), id, req.UpdatedBy, paymentDate, req.Notes)
	if err != nil {
		h.logger.Error("mark paid", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "purchase order marked as paid", po)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.decodeTransition(w, r)
	if !ok {
		return
	}
	po, err := h.service.Cancel(r.Context(), id, req.UpdatedBy, req.Notes)
	if err != nil {
		h.logger.Error("cancel purchase order", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "purchase order cancelled", po)
}

func (h *Handler) handleAttachQuotation(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var file FileRef
	if err := httpx.DecodeJSON(r, &file); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "malformed JSON payload"))
		return
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now()
	}
	po, err := h.service.AttachQuotation(r.Context(), id, file)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "quotation attached", po)
}

func (h *Handler) handleInvoiceDocument(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	data, err := h.service.Invoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", data)
}

func (h *Handler) handleBillDocument(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	data, err := h.service.Bill(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", data)
}

func (h *Handler) handleReceiptDocument(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	data, err := h.service.Receipt(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", data)
}

func (h *Handler) decodeTransition(w http.ResponseWriter, r *http.Request) (int64, transitionRequest, bool) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "malformed JSON payload"))
		return 0, transitionRequest{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.FromValidator(err))
		return 0, transitionRequest{}, false
	}
	return id, req, true
}
