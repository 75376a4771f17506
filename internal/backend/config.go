package backend

import (
	"fmt"

	"catatan/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.ReferenceBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.ReferenceBackend)
	}

	return Config{
		Type:          backendType,
		ReferenceFile: appConfig.ReferenceFile,
		SQLiteDBPath:  appConfig.SQLiteDBPath,

		GoogleSpreadsheetID:         appConfig.GoogleSpreadsheetID,
		GoogleAccountsSheetName:     appConfig.GoogleAccountsSheetName,
		GoogleCategoriesSheetName:   appConfig.GoogleCategoriesSheetName,
		GoogleTransactionsSheetName: appConfig.GoogleTransactionsSheetName,
		GoogleServiceAccountJSON:    appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile:    appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// An empty ReferenceFile means the built-in defaults.
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{MemoryBackend.String(), SQLiteBackend.String(), SheetsBackend.String()}
}
