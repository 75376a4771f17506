package backend

import (
	"context"

	"catatan/internal/reference"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the reference reader and optional cleanup function
type BackendResult struct {
	Reader  reference.Reader
	Cleanup CleanupFunc
}

// Factory creates reference readers based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for reader creation
type Config struct {
	Type BackendType

	// Memory
	ReferenceFile string

	// SQLite
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID         string
	GoogleAccountsSheetName     string
	GoogleCategoriesSheetName   string
	GoogleTransactionsSheetName string
	GoogleServiceAccountJSON    string
	GoogleServiceAccountFile    string
}

// BackendType represents the type of reference source
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
