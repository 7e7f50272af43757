package service

import (
	"context"
	"fmt"
	"sort"

	"stockroom/internal/model"
	"stockroom/internal/pricing"
	"stockroom/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderService implements OrderService. The database transaction is the sole
// concurrency-control mechanism: all stock mutation happens while holding
// the stock row's lock, and any failure rolls back the whole transaction.
type orderService struct {
	orderRepo     repository.OrderRepository
	ledger        repository.LedgerRepository
	lockTimeoutMS int
	logger        zerolog.Logger
}

// NewOrderService creates a new order service. lockTimeoutMillis bounds how
// long a transaction waits for a contended stock row before failing with a
// retryable error.
func NewOrderService(
	orderRepo repository.OrderRepository,
	ledger repository.LedgerRepository,
	lockTimeoutMillis int,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:     orderRepo,
		ledger:        ledger,
		lockTimeoutMS: lockTimeoutMillis,
		logger:        logger.With().Str("service", "order").Logger(),
	}
}

// indexedLine pairs a requested line with its position in the submitted
// request so errors can point at the caller's item index even after the
// lines are re-ordered for locking.
type indexedLine struct {
	model.OrderLineRequest
	Line int
}

// canonicalLines returns the request lines in ascending stock-unit order.
// Locks are always acquired in this order so two commits touching
// overlapping units cannot deadlock on each other. The sort is stable, so
// duplicate lines for one unit keep their submitted order.
func canonicalLines(items []model.OrderLineRequest) []indexedLine {
	lines := make([]indexedLine, len(items))
	for i, item := range items {
		lines[i] = indexedLine{OrderLineRequest: item, Line: i}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].StockUnitID < lines[j].StockUnitID
	})
	return lines
}

// CommitOrder validates the request and executes the commit transaction,
// retrying once if the transaction lost a deadlock or lock-timeout race.
func (s *orderService) CommitOrder(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	resp, err := s.commitOnce(ctx, req)
	if err != nil && model.IsRetryable(err) {
		s.logger.Warn().
			Err(err).
			Int64("seller_id", req.SellerID).
			Msg("retrying order commit after concurrency failure")
		resp, err = s.commitOnce(ctx, req)
	}
	return resp, err
}

func (s *orderService) commitOnce(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	// Rollback is a no-op once the transaction committed; deferring it
	// unconditionally guarantees release on every exit path.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.orderRepo.SetLockTimeout(ctx, tx, s.lockTimeoutMS); err != nil {
		return nil, err
	}

	// Placeholder row first so item rows have a stable foreign key. It only
	// becomes COMPLETED, with real totals, at the end; on any failure the
	// rollback removes it.
	order := &model.Order{
		SellerID:   req.SellerID,
		Subtotal:   decimal.Zero,
		TaxTotal:   decimal.Zero,
		GrandTotal: decimal.Zero,
		Status:     model.StatusPending,
	}
	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	lines := canonicalLines(req.Items)
	items := make([]model.OrderItem, 0, len(lines))
	amounts := make([]pricing.LineAmounts, 0, len(lines))

	for _, line := range lines {
		unit, err := s.ledger.LockStockUnit(ctx, tx, line.StockUnitID)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			return nil, &model.StockUnitNotFoundError{StockUnitID: line.StockUnitID, Line: line.Line}
		}

		if err := s.ledger.Reserve(ctx, tx, unit, line.Quantity); err != nil {
			return nil, err
		}

		// Price and tax always come from the locked row, never the client.
		la := pricing.ComputeLine(unit.UnitPrice, line.Quantity, unit.TaxRatePercent)
		amounts = append(amounts, la)
		items = append(items, model.OrderItem{
			OrderID:        order.ID,
			ProductID:      unit.ProductID,
			StockUnitID:    unit.ID,
			Quantity:       line.Quantity,
			UnitPrice:      unit.UnitPrice,
			TaxRatePercent: unit.TaxRatePercent,
			TaxAmount:      la.Tax,
			LineTotal:      la.Total,
		})
	}

	if err := s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		return nil, err
	}

	totals := pricing.Aggregate(amounts)
	order.Subtotal = totals.Subtotal
	order.TaxTotal = totals.TaxTotal
	order.GrandTotal = totals.GrandTotal
	order.Status = model.StatusCompleted

	if err := s.orderRepo.UpdateOrderTotals(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	s.logger.Info().
		Int64("order_id", order.ID).
		Int64("seller_id", order.SellerID).
		Int("item_count", len(items)).
		Str("grand_total", order.GrandTotal.String()).
		Msg("order committed")

	return orderResponse(order, items), nil
}

// UpdateOrder validates the request and executes the reconciliation
// transaction, with the same single retry rule as CommitOrder.
func (s *orderService) UpdateOrder(ctx context.Context, orderID int64, items []model.OrderLineRequest) (*model.OrderResponse, error) {
	if orderID <= 0 {
		return nil, model.NewValidationError("orderId is required")
	}
	if len(items) == 0 {
		return nil, model.NewValidationError("items must be a non-empty list")
	}
	if err := validateLines(items); err != nil {
		return nil, err
	}

	resp, err := s.updateOnce(ctx, orderID, items)
	if err != nil && model.IsRetryable(err) {
		s.logger.Warn().
			Err(err).
			Int64("order_id", orderID).
			Msg("retrying order update after concurrency failure")
		resp, err = s.updateOnce(ctx, orderID, items)
	}
	return resp, err
}

func (s *orderService) updateOnce(ctx context.Context, orderID int64, items []model.OrderLineRequest) (*model.OrderResponse, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.orderRepo.SetLockTimeout(ctx, tx, s.lockTimeoutMS); err != nil {
		return nil, err
	}

	// Lock the order row first so concurrent updates of the same order
	// serialise before they start touching stock rows.
	order, err := s.orderRepo.LockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &model.OrderNotFoundError{OrderID: orderID}
	}

	existing, err := s.orderRepo.GetOrderItemsTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	// Reconciliation is keyed by stock-unit identity. Duplicate request
	// lines for one unit are merged so each delta is computed once.
	current := make(map[int64]int, len(existing))
	for _, item := range existing {
		current[item.StockUnitID] += item.Quantity
	}

	desired := make(map[int64]int, len(items))
	firstLine := make(map[int64]int, len(items))
	for i, item := range items {
		if _, ok := desired[item.StockUnitID]; !ok {
			firstLine[item.StockUnitID] = i
		}
		desired[item.StockUnitID] += item.Quantity
	}

	ids := unionIDs(current, desired)

	newItems := make([]model.OrderItem, 0, len(desired))
	amounts := make([]pricing.LineAmounts, 0, len(desired))

	for _, id := range ids {
		unit, err := s.ledger.LockStockUnit(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			line := -1
			if l, ok := firstLine[id]; ok {
				line = l
			}
			return nil, &model.StockUnitNotFoundError{StockUnitID: id, Line: line}
		}

		delta := desired[id] - current[id]
		switch {
		case delta > 0:
			if err := s.ledger.Reserve(ctx, tx, unit, delta); err != nil {
				return nil, err
			}
		case delta < 0:
			if err := s.ledger.Release(ctx, tx, unit.ID, -delta); err != nil {
				return nil, err
			}
		}

		qty := desired[id]
		if qty == 0 {
			continue
		}

		// Every surviving line is re-priced from the current stock-unit
		// price; the old snapshots go away with the old item rows.
		la := pricing.ComputeLine(unit.UnitPrice, qty, unit.TaxRatePercent)
		amounts = append(amounts, la)
		newItems = append(newItems, model.OrderItem{
			OrderID:        order.ID,
			ProductID:      unit.ProductID,
			StockUnitID:    unit.ID,
			Quantity:       qty,
			UnitPrice:      unit.UnitPrice,
			TaxRatePercent: unit.TaxRatePercent,
			TaxAmount:      la.Tax,
			LineTotal:      la.Total,
		})
	}

	if err := s.orderRepo.DeleteOrderItems(ctx, tx, order.ID); err != nil {
		return nil, err
	}
	if err := s.orderRepo.CreateOrderItems(ctx, tx, newItems); err != nil {
		return nil, err
	}

	totals := pricing.Aggregate(amounts)
	order.Subtotal = totals.Subtotal
	order.TaxTotal = totals.TaxTotal
	order.GrandTotal = totals.GrandTotal
	order.Status = model.StatusCompleted

	if err := s.orderRepo.UpdateOrderTotals(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.logger.Info().
		Int64("order_id", order.ID).
		Int("item_count", len(newItems)).
		Str("grand_total", order.GrandTotal.String()).
		Msg("order updated")

	return orderResponse(order, newItems), nil
}

// GetByID retrieves an order by its ID with all item rows as stored,
// including the price snapshots frozen at commit time.
func (s *orderService) GetByID(ctx context.Context, orderID int64) (*model.OrderResponse, error) {
	order, items, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		s.logger.Debug().Int64("order_id", orderID).Msg("order not found")
		return nil, nil
	}
	return orderResponse(order, items), nil
}

// unionIDs returns the union of both key sets in ascending order, the
// canonical lock order for the update path.
func unionIDs(current, desired map[int64]int) []int64 {
	seen := make(map[int64]struct{}, len(current)+len(desired))
	ids := make([]int64, 0, len(current)+len(desired))
	for id := range current {
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for id := range desired {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func orderResponse(order *model.Order, items []model.OrderItem) *model.OrderResponse {
	return &model.OrderResponse{
		OrderID:    order.ID,
		SellerID:   order.SellerID,
		Status:     order.Status,
		Subtotal:   order.Subtotal,
		TaxTotal:   order.TaxTotal,
		GrandTotal: order.GrandTotal,
		Items:      items,
	}
}

// validateOrderRequest rejects malformed requests before any transaction or
// lock is taken.
func validateOrderRequest(req *model.OrderRequest) error {
	if req == nil {
		return model.NewValidationError("order request is nil")
	}
	if req.SellerID <= 0 {
		return model.NewValidationError("sellerId is required")
	}
	if len(req.Items) == 0 {
		return model.NewValidationError("items must be a non-empty list")
	}
	return validateLines(req.Items)
}

func validateLines(items []model.OrderLineRequest) error {
	for i, item := range items {
		if item.StockUnitID <= 0 {
			return &model.ValidationError{Line: i, Message: "stockUnitId is required"}
		}
		if item.Quantity <= 0 {
			return &model.ValidationError{Line: i, Message: "quantity must be a positive integer"}
		}
	}
	return nil
}
