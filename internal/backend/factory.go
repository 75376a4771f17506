package backend

import (
	"context"
	"fmt"
	"log/slog"

	"catatan/internal/reference/google"
	"catatan/internal/reference/memory"
	"catatan/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// Create builds the reference reader selected by config.Type.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLite(config)
	case SheetsBackend:
		return f.createSheets(ctx, config)
	case MemoryBackend:
		return f.createMemory(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLite(config Config) (*BackendResult, error) {
	catalog, err := storage.NewSQLiteCatalog(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite catalog: %w", err)
	}
	f.logger.Info("Initialized SQLite reference backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Reader: catalog, Cleanup: catalog.Close}, nil
}

func (f *DefaultFactory) createSheets(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		AccountsSheet:      config.GoogleAccountsSheetName,
		CategoriesSheet:    config.GoogleCategoriesSheetName,
		TransactionsSheet:  config.GoogleTransactionsSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets reference backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &BackendResult{Reader: cli}, nil
}

func (f *DefaultFactory) createMemory(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.ReferenceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference file: %w", err)
	}
	f.logger.Info("Initialized memory reference backend", "reference_file", config.ReferenceFile)
	return &BackendResult{Reader: store}, nil
}
