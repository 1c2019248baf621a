package backend

import (
	"context"
	"fmt"

	"github.com/diogoviieira/register-track-bot/internal/amqp"
	"github.com/diogoviieira/register-track-bot/internal/log"
	"github.com/diogoviieira/register-track-bot/internal/services"
	"github.com/diogoviieira/register-track-bot/internal/sheets"
	gsheet "github.com/diogoviieira/register-track-bot/internal/sheets/google"
	sheetsmem "github.com/diogoviieira/register-track-bot/internal/sheets/memory"
	"github.com/diogoviieira/register-track-bot/internal/storage"
	"github.com/diogoviieira/register-track-bot/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store storage.Store
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		if err := repo.Ping(ctx); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("SQLite repository not reachable: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		store = repo
	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory backend, entries are lost on restart")
		store = memory.New()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	service := services.NewEntryService(store, f.publisher(ctx, config))

	return &BackendResult{
		Store:   service,
		Cleanup: service.Close,
	}, nil
}

// publisher connects to the broker when AMQP is configured. A broker that
// cannot be reached leaves publishing off rather than failing startup.
func (f *DefaultFactory) publisher(ctx context.Context, config Config) services.Publisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (sheets.Mirror, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.WarnContext(ctx, "No spreadsheet configured, mirroring to memory")
		return sheetsmem.New(), nil
	}

	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID: config.GoogleSpreadsheetID,
		SheetName:     config.GoogleSheetName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "spreadsheet_id", config.GoogleSpreadsheetID)
	return cli, nil
}
