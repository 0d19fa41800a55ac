package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// SQLiteRepository provides access to a local SQLite database. It is the
// embedded alternative to the Postgres backend for single-node deployments.
type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens a new connection to the SQLite database at databasePath.
func NewSQLite(ctx context.Context, databasePath string, logger *slog.Logger) (*SQLiteRepository, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}

	// Busy timeout and WAL mode are recommended for SQLite concurrency.
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn = fmt.Sprintf("%s%s_pragma=busy_timeout=10000&_pragma=journal_mode=WAL&_pragma=foreign_keys=ON", dsn, sep)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.With("component", "repo_sqlite"),
	}, nil
}

// Close releases the database connection.
func (r *SQLiteRepository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// Ping ensures the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// RunMigrations applies the sqlite schema migrations.
func (r *SQLiteRepository) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	return applyMigrations(ctx, filesystem, "sqlite", func(sqlText string) error {
		_, err := r.db.ExecContext(ctx, sqlText)
		return err
	})
}

// InsertOrder creates a new order record.
func (r *SQLiteRepository) InsertOrder(ctx context.Context, order NewOrder) (*Order, error) {
	const q = `
INSERT INTO orders (order_number, status, billing_phone, billing_country, total, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?);
`
	now := time.Now().UTC().Format(sqliteTimeLayout)
	res, err := r.db.ExecContext(ctx, q,
		order.Number,
		order.Status,
		order.BillingPhone,
		order.BillingCountry,
		order.Total,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert order id: %w", err)
	}
	return r.GetOrderByID(ctx, id)
}

// GetOrderByID fetches a single order by its primary key.
func (r *SQLiteRepository) GetOrderByID(ctx context.Context, id int64) (*Order, error) {
	const q = `
SELECT id, order_number, status, billing_phone, billing_country, total, created_at, updated_at
FROM orders
WHERE id = ?;
`
	o, err := scanSQLiteOrder(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

// UpdateOrderStatus transitions an order to the given status and returns the
// updated row.
func (r *SQLiteRepository) UpdateOrderStatus(ctx context.Context, id int64, status string) (*Order, error) {
	const q = `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?;`
	res, err := r.db.ExecContext(ctx, q, status, time.Now().UTC().Format(sqliteTimeLayout), id)
	if err != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}
	if affected == 0 {
		return nil, ErrOrderNotFound
	}
	return r.GetOrderByID(ctx, id)
}

// AppendOrderNote adds a note to the order's trail.
func (r *SQLiteRepository) AppendOrderNote(ctx context.Context, orderID int64, note string) error {
	const q = `INSERT INTO order_notes (order_id, note, created_at) VALUES (?, ?, ?);`
	if _, err := r.db.ExecContext(ctx, q, orderID, note, time.Now().UTC().Format(sqliteTimeLayout)); err != nil {
		return fmt.Errorf("append order note: %w", err)
	}
	return nil
}

// ListOrderNotes returns the order's notes, oldest first.
func (r *SQLiteRepository) ListOrderNotes(ctx context.Context, orderID int64) ([]OrderNote, error) {
	const q = `
SELECT id, order_id, note, created_at
FROM order_notes
WHERE order_id = ?
ORDER BY id ASC;
`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order notes: %w", err)
	}
	defer rows.Close()

	var notes []OrderNote
	for rows.Next() {
		var (
			n         OrderNote
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan order note: %w", err)
		}
		n.CreatedAt = parseSQLiteTime(createdAt)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order notes: %w", err)
	}
	return notes, nil
}

// GetSettingsRecord reads a whole settings record by name.
func (r *SQLiteRepository) GetSettingsRecord(ctx context.Context, name string) ([]byte, bool, error) {
	const q = `SELECT value FROM settings WHERE name = ?;`
	var value []byte
	if err := r.db.QueryRowContext(ctx, q, name).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get settings %s: %w", name, err)
	}
	return value, true, nil
}

// SaveSettingsRecord writes a whole settings record by name.
func (r *SQLiteRepository) SaveSettingsRecord(ctx context.Context, name string, value []byte) error {
	const q = `
INSERT INTO settings (name, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;
`
	if _, err := r.db.ExecContext(ctx, q, name, value, time.Now().UTC().Format(sqliteTimeLayout)); err != nil {
		return fmt.Errorf("save settings %s: %w", name, err)
	}
	return nil
}

func scanSQLiteOrder(row *sql.Row) (*Order, error) {
	var (
		o                    Order
		createdAt, updatedAt string
	)
	err := row.Scan(
		&o.ID,
		&o.Number,
		&o.Status,
		&o.BillingPhone,
		&o.BillingCountry,
		&o.Total,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.CreatedAt = parseSQLiteTime(createdAt)
	o.UpdatedAt = parseSQLiteTime(updatedAt)
	return &o, nil
}

// parseSQLiteTime accepts the formats SQLite commonly stores for timestamp
// columns. A zero time is returned for unparseable input rather than an
// error; timestamps here are informational.
func parseSQLiteTime(value string) time.Time {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
