package repository

import (
	"context"
	"fmt"

	"stockroom/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ledgerRepository implements the LedgerRepository interface using
// PostgreSQL row locks as the sole concurrency-control mechanism.
type ledgerRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewLedgerRepository creates a new PostgreSQL-backed stock ledger.
func NewLedgerRepository(pool *pgxpool.Pool, logger zerolog.Logger) LedgerRepository {
	return &ledgerRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "ledger").Logger(),
	}
}

// LockStockUnit locks the stock row exclusively and returns it joined with
// the product's name and tax rate. Concurrent commits touching the same unit
// serialise here; the lock is held until the transaction ends.
func (r *ledgerRepository) LockStockUnit(ctx context.Context, tx pgx.Tx, stockUnitID int64) (*model.StockUnit, error) {
	query := `
		SELECT su.id, su.product_id, p.name, su.variation_name,
		       su.unit_price, p.tax_rate_percent, su.stock_on_hand,
		       su.created_at, su.updated_at
		FROM stock_units su
		JOIN products p ON p.id = su.product_id
		WHERE su.id = $1
		FOR UPDATE OF su
	`

	var unit model.StockUnit
	err := tx.QueryRow(ctx, query, stockUnitID).Scan(
		&unit.ID,
		&unit.ProductID,
		&unit.ProductName,
		&unit.VariationName,
		&unit.UnitPrice,
		&unit.TaxRatePercent,
		&unit.StockOnHand,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Int64("stock_unit_id", stockUnitID).Msg("stock unit not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("stock_unit_id", stockUnitID).Msg("failed to lock stock unit")
		return nil, classify(fmt.Errorf("failed to lock stock unit: %w", err))
	}

	return &unit, nil
}

// Reserve checks availability against the locked row and decrements stock on
// hand. On shortfall it returns InsufficientStockError and mutates nothing.
func (r *ledgerRepository) Reserve(ctx context.Context, tx pgx.Tx, unit *model.StockUnit, quantity int) error {
	if unit.StockOnHand < quantity {
		r.logger.Warn().
			Int64("stock_unit_id", unit.ID).
			Int("available", unit.StockOnHand).
			Int("requested", quantity).
			Msg("insufficient stock")
		return &model.InsufficientStockError{
			StockUnitID:   unit.ID,
			ProductName:   unit.ProductName,
			VariationName: unit.VariationName,
			Available:     unit.StockOnHand,
			Requested:     quantity,
		}
	}

	query := `
		UPDATE stock_units
		SET stock_on_hand = stock_on_hand - $2, updated_at = NOW()
		WHERE id = $1
	`

	ct, err := tx.Exec(ctx, query, unit.ID, quantity)
	if err != nil {
		r.logger.Error().Err(err).Int64("stock_unit_id", unit.ID).Msg("failed to reserve stock")
		return classify(fmt.Errorf("failed to reserve stock: %w", err))
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("failed to reserve stock: unit %d not updated", unit.ID)
	}

	unit.StockOnHand -= quantity

	r.logger.Debug().
		Int64("stock_unit_id", unit.ID).
		Int("quantity", quantity).
		Int("remaining", unit.StockOnHand).
		Msg("stock reserved")

	return nil
}

// Release returns quantity units to stock, the inverse of Reserve. Used by
// the update path when a committed quantity shrinks or a line is removed.
func (r *ledgerRepository) Release(ctx context.Context, tx pgx.Tx, stockUnitID int64, quantity int) error {
	query := `
		UPDATE stock_units
		SET stock_on_hand = stock_on_hand + $2, updated_at = NOW()
		WHERE id = $1
	`

	ct, err := tx.Exec(ctx, query, stockUnitID, quantity)
	if err != nil {
		r.logger.Error().Err(err).Int64("stock_unit_id", stockUnitID).Msg("failed to release stock")
		return classify(fmt.Errorf("failed to release stock: %w", err))
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("failed to release stock: unit %d not updated", stockUnitID)
	}

	r.logger.Debug().
		Int64("stock_unit_id", stockUnitID).
		Int("quantity", quantity).
		Msg("stock released")

	return nil
}
