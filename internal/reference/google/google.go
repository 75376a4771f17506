package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"catatan/internal/core"
	"catatan/internal/reference"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// valuesGetter is the slice of the Sheets API the client needs.
type valuesGetter interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

type sheetsValues struct {
	svc *gsheet.Service
}

func (s sheetsValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

type Client struct {
	values            valuesGetter
	spreadsheetID     string
	accountsSheet     string
	categoriesSheet   string
	transactionsSheet string // optional; empty means no opening transactions
}

var _ reference.Reader = (*Client)(nil)

// Config names the spreadsheet and its sheets. Sheet names default to
// "Accounts" and "Categories"; TransactionsSheet is optional.
type Config struct {
	SpreadsheetID      string
	AccountsSheet      string
	CategoriesSheet    string
	TransactionsSheet  string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// ConfigFromEnv reads GOOGLE_* variables.
func ConfigFromEnv() Config {
	return Config{
		SpreadsheetID:      strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		AccountsSheet:      strings.TrimSpace(os.Getenv("GOOGLE_ACCOUNTS_SHEET_NAME")),
		CategoriesSheet:    strings.TrimSpace(os.Getenv("GOOGLE_CATEGORIES_SHEET_NAME")),
		TransactionsSheet:  strings.TrimSpace(os.Getenv("GOOGLE_TRANSACTIONS_SHEET_NAME")),
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		ServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
}

// New creates a Sheets-backed reference reader using service account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(sheetsValues{svc: svc}, cfg), nil
}

func newClient(values valuesGetter, cfg Config) *Client {
	accounts := cfg.AccountsSheet
	if accounts == "" {
		accounts = "Accounts"
	}
	categories := cfg.CategoriesSheet
	if categories == "" {
		categories = "Categories"
	}
	return &Client{
		values:            values,
		spreadsheetID:     cfg.SpreadsheetID,
		accountsSheet:     accounts,
		categoriesSheet:   categories,
		transactionsSheet: cfg.TransactionsSheet,
	}
}

// newSheetsService initializes a read-only Sheets service from a service account.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither JSON nor file is set.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	file := cfg.ServiceAccountFile
	if cfg.ServiceAccountJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case cfg.ServiceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", file, "size", len(b))
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// Accounts reads key/name pairs from columns A:B of the accounts sheet.
func (c *Client) Accounts(ctx context.Context) (core.ReferenceList, error) {
	return c.readReferences(ctx, c.accountsSheet)
}

// Categories reads key/name pairs from columns A:B of the categories sheet.
func (c *Client) Categories(ctx context.Context) (core.ReferenceList, error) {
	return c.readReferences(ctx, c.categoriesSheet)
}

// Opening reads the optional transactions sheet (header row required).
func (c *Client) Opening(ctx context.Context) ([]core.Transaction, error) {
	if c.transactionsSheet == "" {
		return nil, nil
	}
	rng := fmt.Sprintf("%s!A1:F", c.transactionsSheet)
	values, err := c.values.Get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseTransactions(values)
}

func (c *Client) readReferences(ctx context.Context, sheetName string) (core.ReferenceList, error) {
	rng := fmt.Sprintf("%s!A2:B", sheetName)
	values, err := c.values.Get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return core.ReferenceList{}, fmt.Errorf("read %s: %w", rng, err)
	}
	refs, err := parseReferences(values)
	if err != nil {
		return core.ReferenceList{}, fmt.Errorf("parse %s: %w", rng, err)
	}
	return core.NewReferenceList(refs...)
}
