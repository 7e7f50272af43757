package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"stockroom/internal/model"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.CommitOrder(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Update handles PUT /api/orders/{id} requests.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	var req struct {
		Items []model.OrderLineRequest `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.UpdateOrder(r.Context(), orderID, req.Items)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	resp, err := h.service.GetByID(r.Context(), orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to retrieve order", h.logger)
		return
	}
	if resp == nil {
		writeError(w, http.StatusNotFound, model.ErrCodeOrderNotFound, "order not found", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeServiceError maps the core's typed errors onto HTTP status codes. The
// core guarantees a returned error implies zero side effects, so retryable
// concurrency failures are surfaced as 503 for the caller to resubmit.
func (h *OrderHandler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr   *model.ValidationError
		orderNotFound   *model.OrderNotFoundError
		unitNotFound    *model.StockUnitNotFoundError
		insufficientErr *model.InsufficientStockError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, validationErr.Error(), h.logger)
	case errors.As(err, &orderNotFound):
		writeError(w, http.StatusNotFound, model.ErrCodeOrderNotFound, orderNotFound.Error(), h.logger)
	case errors.As(err, &unitNotFound):
		writeError(w, http.StatusNotFound, model.ErrCodeStockUnitNotFound, unitNotFound.Error(), h.logger)
	case errors.As(err, &insufficientErr):
		writeError(w, http.StatusBadRequest, model.ErrCodeInsufficientStock, insufficientErr.Error(), h.logger)
	case model.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, model.ErrCodeConcurrency,
			"order could not be processed due to concurrent activity, please retry", h.logger)
	default:
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to process order", h.logger)
	}
}
