package backend

import (
	"context"

	"github.com/diogoviieira/register-track-bot/internal/sheets"
	"github.com/diogoviieira/register-track-bot/internal/storage"
)

// Store is the record store handed to the conversation engine and the
// maintenance commands.
type Store interface {
	storage.Store
	storage.Maintainer
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store and its cleanup function
type BackendResult struct {
	Store   Store
	Cleanup CleanupFunc
}

// Factory creates record stores and mirrors based on configuration
type Factory interface {
	// CreateBackend creates the record store, with event publishing when AMQP is configured
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateMirror creates the spreadsheet mirror used by the worker
	CreateMirror(ctx context.Context, config Config) (sheets.Mirror, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Event publishing, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror, in-memory when GoogleSpreadsheetID is empty
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
