package repo

import (
	"context"
	"errors"
	"io/fs"
)

// ErrOrderNotFound is returned when an order ID does not resolve to a row.
var ErrOrderNotFound = errors.New("order not found")

// Repository defines the interface for data persistence.
type Repository interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Orders
	InsertOrder(ctx context.Context, order NewOrder) (*Order, error)
	GetOrderByID(ctx context.Context, id int64) (*Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) (*Order, error)

	// Order notes
	AppendOrderNote(ctx context.Context, orderID int64, note string) error
	ListOrderNotes(ctx context.Context, orderID int64) ([]OrderNote, error)

	// Settings: a single named record read and written as a whole.
	GetSettingsRecord(ctx context.Context, name string) ([]byte, bool, error)
	SaveSettingsRecord(ctx context.Context, name string, value []byte) error
}
