package service

import (
	"context"

	"stockroom/internal/model"
)

// OrderService defines the order commit engine exposed to the API layer.
// Every returned error implies the enclosing transaction rolled back with
// zero side effects.
type OrderService interface {
	// CommitOrder turns the requested line items into a durable order,
	// reserving stock and pricing each line from the locked stock rows.
	CommitOrder(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error)

	// UpdateOrder reconciles a committed order's items against a new
	// requested set, adjusting stock by the deltas and re-pricing every
	// line at current stock-unit prices.
	UpdateOrder(ctx context.Context, orderID int64, items []model.OrderLineRequest) (*model.OrderResponse, error)

	// GetByID retrieves a committed order with its items. Returns
	// (nil, nil) when the order does not exist.
	GetByID(ctx context.Context, orderID int64) (*model.OrderResponse, error)
}
