package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockroom/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CommitOrder(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) UpdateOrder(ctx context.Context, orderID int64, items []model.OrderLineRequest) (*model.OrderResponse, error) {
	args := m.Called(ctx, orderID, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, orderID int64) (*model.OrderResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

// newTestRouter mounts the handler on the routes the real router uses so
// chi's URL params resolve in tests.
func newTestRouter(h *OrderHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/orders", h.Create)
	r.Put("/api/orders/{id}", h.Update)
	r.Get("/api/orders/{id}", h.GetByID)
	return r
}

func sampleResponse() *model.OrderResponse {
	return &model.OrderResponse{
		OrderID:    42,
		SellerID:   7,
		Status:     model.StatusCompleted,
		Subtotal:   decimal.RequireFromString("30.00"),
		TaxTotal:   decimal.RequireFromString("5.40"),
		GrandTotal: decimal.RequireFromString("35.40"),
		Items: []model.OrderItem{
			{ProductID: 20, StockUnitID: 2, Quantity: 3},
		},
	}
}

func TestOrderHandler_Create_Success(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("CommitOrder", mock.Anything, mock.AnythingOfType("*model.OrderRequest")).
		Return(sampleResponse(), nil)

	body, _ := json.Marshal(model.OrderRequest{
		SellerID: 7,
		Items:    []model.OrderLineRequest{{StockUnitID: 2, Quantity: 3}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	newTestRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp model.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.OrderID)
	assert.True(t, decimal.RequireFromString("35.40").Equal(resp.GrandTotal))
	mockService.AssertExpectations(t)
}

func TestOrderHandler_Create_InvalidJSON(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockService.AssertNotCalled(t, "CommitOrder", mock.Anything, mock.Anything)
}

func TestOrderHandler_Create_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation error",
			err:        model.NewValidationError("sellerId is required"),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeValidation,
		},
		{
			name:       "stock unit not found",
			err:        &model.StockUnitNotFoundError{StockUnitID: 9, Line: 1},
			wantStatus: http.StatusNotFound,
			wantCode:   model.ErrCodeStockUnitNotFound,
		},
		{
			name: "insufficient stock",
			err: &model.InsufficientStockError{
				StockUnitID: 2, ProductName: "Tea", VariationName: "250g",
				Available: 1, Requested: 5,
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeInsufficientStock,
		},
		{
			name:       "concurrency error",
			err:        &model.ConcurrencyError{Err: errors.New("deadlock detected")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   model.ErrCodeConcurrency,
		},
		{
			name:       "infrastructure error",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   model.ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			h := NewOrderHandler(mockService, zerolog.Nop())

			mockService.On("CommitOrder", mock.Anything, mock.Anything).Return(nil, tt.err)

			body, _ := json.Marshal(model.OrderRequest{
				SellerID: 7,
				Items:    []model.OrderLineRequest{{StockUnitID: 2, Quantity: 3}},
			})
			req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			newTestRouter(h).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}
}

func TestOrderHandler_Update_Success(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	items := []model.OrderLineRequest{{StockUnitID: 2, Quantity: 1}}
	mockService.On("UpdateOrder", mock.Anything, int64(42), items).Return(sampleResponse(), nil)

	body, _ := json.Marshal(map[string]any{"items": items})
	req := httptest.NewRequest(http.MethodPut, "/api/orders/42", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_Update_InvalidID(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPut, "/api/orders/abc", bytes.NewReader([]byte(`{"items":[]}`)))
	rec := httptest.NewRecorder()

	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockService.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderHandler_Update_OrderNotFound(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("UpdateOrder", mock.Anything, int64(99), mock.Anything).
		Return(nil, &model.OrderNotFoundError{OrderID: 99})

	body := []byte(`{"items":[{"stockUnitId":2,"quantity":1}]}`)
	req := httptest.NewRequest(http.MethodPut, "/api/orders/99", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderHandler_GetByID_Success(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("GetByID", mock.Anything, int64(42)).Return(sampleResponse(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/42", nil)
	rec := httptest.NewRecorder()

	newTestRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.OrderID)
	assert.Len(t, resp.Items, 1)
}

func TestOrderHandler_GetByID_NotFound(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("GetByID", mock.Anything, int64(404)).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/404", nil)
	rec := httptest.NewRecorder()

	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
