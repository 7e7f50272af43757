package repository

import (
	"context"

	"stockroom/internal/model"

	"github.com/jackc/pgx/v5"
)

// LedgerRepository defines the stock ledger operations. All methods operate
// within the caller's transaction; reserve and release assume the relevant
// stock row is serialised by the row lock taken in LockStockUnit.
type LedgerRepository interface {
	// LockStockUnit acquires an exclusive row lock on the stock unit
	// (SELECT ... FOR UPDATE) and returns it joined with its product's name
	// and tax rate. Returns (nil, nil) when the unit does not exist.
	LockStockUnit(ctx context.Context, tx pgx.Tx, stockUnitID int64) (*model.StockUnit, error)

	// Reserve decrements stock on hand by quantity for a unit already locked
	// in this transaction. Returns InsufficientStockError without mutating
	// anything when quantity exceeds the stock on hand. On success the
	// in-memory unit is decremented as well.
	Reserve(ctx context.Context, tx pgx.Tx, unit *model.StockUnit, quantity int) error

	// Release increments stock on hand by quantity, the inverse of Reserve.
	Release(ctx context.Context, tx pgx.Tx, stockUnitID int64, quantity int) error
}

// OrderRepository defines the order persistence operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// SetLockTimeout bounds lock waits for the current transaction.
	SetLockTimeout(ctx context.Context, tx pgx.Tx, millis int) error

	// CreateOrder inserts a new order row and fills in its generated ID and
	// timestamps.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// UpdateOrderTotals persists the order's totals, status and updated_at.
	UpdateOrderTotals(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts the given item rows.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// DeleteOrderItems removes all item rows for the order.
	DeleteOrderItems(ctx context.Context, tx pgx.Tx, orderID int64) error

	// LockOrder acquires an exclusive row lock on the order and returns it.
	// Returns (nil, nil) when the order does not exist.
	LockOrder(ctx context.Context, tx pgx.Tx, orderID int64) (*model.Order, error)

	// GetOrderItemsTx retrieves the order's items within the transaction.
	GetOrderItemsTx(ctx context.Context, tx pgx.Tx, orderID int64) ([]model.OrderItem, error)

	// GetByID retrieves an order and its items outside any transaction.
	// Returns (nil, nil, nil) when the order does not exist.
	GetByID(ctx context.Context, orderID int64) (*model.Order, []model.OrderItem, error)
}
