package repository

import (
	"context"
	"fmt"

	"stockroom/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// SetLockTimeout bounds row-lock waits for the current transaction so a
// commit blocked behind another transaction surfaces a retryable error
// instead of hanging.
func (r *orderRepository) SetLockTimeout(ctx context.Context, tx pgx.Tx, millis int) error {
	_, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", millis))
	if err != nil {
		r.logger.Error().Err(err).Int("millis", millis).Msg("failed to set lock timeout")
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}
	return nil
}

// CreateOrder inserts a new order within the provided transaction, filling
// in the generated ID and timestamps.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (seller_id, subtotal, tax_total, grand_total, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		order.SellerID, order.Subtotal, order.TaxTotal, order.GrandTotal, order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("seller_id", order.SellerID).
			Msg("failed to create order")
		return classify(fmt.Errorf("failed to create order: %w", err))
	}

	r.logger.Debug().
		Int64("order_id", order.ID).
		Msg("order created")

	return nil
}

// UpdateOrderTotals persists the recomputed totals, status and updated_at.
func (r *orderRepository) UpdateOrderTotals(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders
		SET subtotal = $2, tax_total = $3, grand_total = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := tx.QueryRow(ctx, query,
		order.ID, order.Subtotal, order.TaxTotal, order.GrandTotal, order.Status,
	).Scan(&order.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("order_id", order.ID).
			Msg("failed to update order totals")
		return classify(fmt.Errorf("failed to update order totals: %w", err))
	}

	return nil
}

// CreateOrderItems inserts multiple order items within the provided
// transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items
			(order_id, product_id, stock_unit_id, quantity, unit_price, tax_rate_percent, tax_amount, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.OrderID, item.ProductID, item.StockUnitID, item.Quantity,
			item.UnitPrice, item.TaxRatePercent, item.TaxAmount, item.LineTotal,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Int64("order_id", items[i].OrderID).
				Int64("stock_unit_id", items[i].StockUnitID).
				Msg("failed to create order item")
			return classify(fmt.Errorf("failed to create order item: %w", err))
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created")

	return nil
}

// DeleteOrderItems removes all item rows for the order. The update path
// deletes and re-inserts items so totals stay re-derivable from the rows.
func (r *orderRepository) DeleteOrderItems(ctx context.Context, tx pgx.Tx, orderID int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to delete order items")
		return classify(fmt.Errorf("failed to delete order items: %w", err))
	}
	return nil
}

// LockOrder acquires an exclusive row lock on the order so concurrent
// updates of the same order serialise.
func (r *orderRepository) LockOrder(ctx context.Context, tx pgx.Tx, orderID int64) (*model.Order, error) {
	query := `
		SELECT id, seller_id, subtotal, tax_total, grand_total, status, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	var order model.Order
	err := tx.QueryRow(ctx, query, orderID).Scan(
		&order.ID,
		&order.SellerID,
		&order.Subtotal,
		&order.TaxTotal,
		&order.GrandTotal,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Int64("order_id", orderID).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to lock order")
		return nil, classify(fmt.Errorf("failed to lock order: %w", err))
	}

	return &order, nil
}

// GetOrderItemsTx retrieves the order's items within the transaction.
func (r *orderRepository) GetOrderItemsTx(ctx context.Context, tx pgx.Tx, orderID int64) ([]model.OrderItem, error) {
	rows, err := tx.Query(ctx, itemsQuery, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query order items")
		return nil, classify(fmt.Errorf("failed to query order items: %w", err))
	}
	return scanOrderItems(rows)
}

const itemsQuery = `
	SELECT id, order_id, product_id, stock_unit_id, quantity,
	       unit_price, tax_rate_percent, tax_amount, line_total
	FROM order_items
	WHERE order_id = $1
	ORDER BY stock_unit_id, id
`

func scanOrderItems(rows pgx.Rows) ([]model.OrderItem, error) {
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.StockUnitID,
			&item.Quantity,
			&item.UnitPrice,
			&item.TaxRatePercent,
			&item.TaxAmount,
			&item.LineTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, orderID int64) (*model.Order, []model.OrderItem, error) {
	orderQuery := `
		SELECT id, seller_id, subtotal, tax_total, grand_total, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order model.Order
	err := r.pool.QueryRow(ctx, orderQuery, orderID).Scan(
		&order.ID,
		&order.SellerID,
		&order.Subtotal,
		&order.TaxTotal,
		&order.GrandTotal,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Int64("order_id", orderID).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	rows, err := r.pool.Query(ctx, itemsQuery, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query order items")
		return nil, nil, fmt.Errorf("failed to query order items: %w", err)
	}

	items, err := scanOrderItems(rows)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to scan order items")
		return nil, nil, err
	}

	return &order, items, nil
}
