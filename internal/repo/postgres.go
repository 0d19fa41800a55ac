package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository provides typed access to a Postgres database.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres opens a new connection pool to the database.
func NewPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		logger: logger.With("component", "repo_postgres"),
	}

	if err := r.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Ping ensures the database is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations applies the postgres schema migrations.
func (r *PostgresRepository) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	return applyMigrations(ctx, filesystem, "postgres", func(sql string) error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, sql)
			return err
		})
	})
}

// InsertOrder creates a new order record.
func (r *PostgresRepository) InsertOrder(ctx context.Context, order NewOrder) (*Order, error) {
	const q = `
INSERT INTO orders (order_number, status, billing_phone, billing_country, total)
VALUES ($1, $2, $3, $4, $5::numeric)
RETURNING id, order_number, status, billing_phone, billing_country, total::text, created_at, updated_at;
`
	row := r.pool.QueryRow(ctx, q,
		order.Number,
		order.Status,
		order.BillingPhone,
		order.BillingCountry,
		order.Total,
	)

	var o Order
	if err := scanOrder(row, &o); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return &o, nil
}

// GetOrderByID fetches a single order by its primary key.
func (r *PostgresRepository) GetOrderByID(ctx context.Context, id int64) (*Order, error) {
	const q = `
SELECT id, order_number, status, billing_phone, billing_country, total::text, created_at, updated_at
FROM orders
WHERE id = $1;
`
	var o Order
	if err := scanOrder(r.pool.QueryRow(ctx, q, id), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &o, nil
}

// UpdateOrderStatus transitions an order to the given status and returns the
// updated row.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, status string) (*Order, error) {
	const q = `
UPDATE orders
SET status = $2, updated_at = NOW()
WHERE id = $1
RETURNING id, order_number, status, billing_phone, billing_country, total::text, created_at, updated_at;
`
	var o Order
	if err := scanOrder(r.pool.QueryRow(ctx, q, id, status), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}
	return &o, nil
}

// AppendOrderNote adds a note to the order's trail.
func (r *PostgresRepository) AppendOrderNote(ctx context.Context, orderID int64, note string) error {
	const q = `INSERT INTO order_notes (order_id, note) VALUES ($1, $2);`
	if _, err := r.pool.Exec(ctx, q, orderID, note); err != nil {
		return fmt.Errorf("append order note: %w", err)
	}
	return nil
}

// ListOrderNotes returns the order's notes, oldest first.
func (r *PostgresRepository) ListOrderNotes(ctx context.Context, orderID int64) ([]OrderNote, error) {
	const q = `
SELECT id, order_id, note, created_at
FROM order_notes
WHERE order_id = $1
ORDER BY id ASC;
`
	rows, err := r.pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order notes: %w", err)
	}
	defer rows.Close()

	var notes []OrderNote
	for rows.Next() {
		var n OrderNote
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order notes: %w", err)
	}
	return notes, nil
}

// GetSettingsRecord reads a whole settings record by name.
func (r *PostgresRepository) GetSettingsRecord(ctx context.Context, name string) ([]byte, bool, error) {
	const q = `SELECT value FROM settings WHERE name = $1;`
	var value []byte
	if err := r.pool.QueryRow(ctx, q, name).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get settings %s: %w", name, err)
	}
	return value, true, nil
}

// SaveSettingsRecord writes a whole settings record by name.
func (r *PostgresRepository) SaveSettingsRecord(ctx context.Context, name string, value []byte) error {
	const q = `
INSERT INTO settings (name, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();
`
	if _, err := r.pool.Exec(ctx, q, name, value); err != nil {
		return fmt.Errorf("save settings %s: %w", name, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner, o *Order) error {
	return row.Scan(
		&o.ID,
		&o.Number,
		&o.Status,
		&o.BillingPhone,
		&o.BillingCountry,
		&o.Total,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}
