package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL test container, applies the schema and
// returns a connected pool plus a cleanup function.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	createSchema(t, pool)

	cleanup := func() {
		pool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// createSchema creates the database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	schema := `
		CREATE TABLE IF NOT EXISTS sellers (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			contact_number TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			tax_rate_percent DECIMAL(5, 2) NOT NULL DEFAULT 0
				CHECK (tax_rate_percent >= 0 AND tax_rate_percent <= 100),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS stock_units (
			id BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id),
			variation_name TEXT NOT NULL,
			unit_price DECIMAL(10, 2) NOT NULL CHECK (unit_price >= 0),
			stock_on_hand INTEGER NOT NULL DEFAULT 0 CHECK (stock_on_hand >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			seller_id BIGINT NOT NULL REFERENCES sellers(id),
			subtotal DECIMAL(12, 2) NOT NULL DEFAULT 0,
			tax_total DECIMAL(12, 2) NOT NULL DEFAULT 0,
			grand_total DECIMAL(12, 2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'PENDING'
				CHECK (status IN ('PENDING', 'COMPLETED')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS order_items (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id BIGINT NOT NULL REFERENCES products(id),
			stock_unit_id BIGINT NOT NULL REFERENCES stock_units(id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price DECIMAL(10, 2) NOT NULL,
			tax_rate_percent DECIMAL(5, 2) NOT NULL,
			tax_amount DECIMAL(12, 2) NOT NULL,
			line_total DECIMAL(12, 2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	_, err := pool.Exec(context.Background(), schema)
	require.NoError(t, err)
}

// seedSeller inserts a seller and returns its ID.
func seedSeller(t *testing.T, pool *pgxpool.Pool, name string) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO sellers (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	require.NoError(t, err)
	return id
}

// seedStockUnit inserts a product and one stock unit, returning the stock
// unit's ID.
func seedStockUnit(t *testing.T, pool *pgxpool.Pool, productName, variation, price, taxRate string, onHand int) int64 {
	t.Helper()

	ctx := context.Background()

	var productID int64
	err := pool.QueryRow(ctx,
		`INSERT INTO products (name, tax_rate_percent) VALUES ($1, $2) RETURNING id`,
		productName, taxRate).Scan(&productID)
	require.NoError(t, err)

	var unitID int64
	err = pool.QueryRow(ctx,
		`INSERT INTO stock_units (product_id, variation_name, unit_price, stock_on_hand)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		productID, variation, price, onHand).Scan(&unitID)
	require.NoError(t, err)
	return unitID
}

// stockOnHand reads the current stock count for a unit.
func stockOnHand(t *testing.T, pool *pgxpool.Pool, unitID int64) int {
	t.Helper()

	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT stock_on_hand FROM stock_units WHERE id = $1`, unitID).Scan(&n)
	require.NoError(t, err)
	return n
}

func requireDecEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()

	d, err := decimal.NewFromString(want)
	require.NoError(t, err)
	require.True(t, d.Equal(got), "want %s, got %s", want, got)
}
