// Package storage holds the SQLite reference catalog: accounts, categories
// and the opening transactions a new editor is seeded with.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"catatan/internal/core"
	"catatan/internal/reference"

	_ "modernc.org/sqlite"
)

var _ reference.Reader = (*SQLiteCatalog)(nil)

type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog opens (creating if needed) the database at dbPath and runs
// the embedded migrations.
func NewSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("SQLite reference catalog ready", "path", dbPath)
	return &SQLiteCatalog{db: db}, nil
}

func (c *SQLiteCatalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *SQLiteCatalog) Accounts(ctx context.Context) (core.ReferenceList, error) {
	return c.readReferences(ctx, "SELECT key, name FROM accounts ORDER BY key")
}

func (c *SQLiteCatalog) Categories(ctx context.Context) (core.ReferenceList, error) {
	return c.readReferences(ctx, "SELECT key, name FROM categories ORDER BY key")
}

func (c *SQLiteCatalog) readReferences(ctx context.Context, query string) (core.ReferenceList, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return core.ReferenceList{}, fmt.Errorf("query references: %w", err)
	}
	defer rows.Close()

	var refs []core.Reference
	for rows.Next() {
		var r core.Reference
		if err := rows.Scan(&r.Key, &r.Name); err != nil {
			return core.ReferenceList{}, fmt.Errorf("scan reference: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return core.ReferenceList{}, fmt.Errorf("iterate references: %w", err)
	}
	return core.NewReferenceList(refs...)
}

func (c *SQLiteCatalog) Opening(ctx context.Context) ([]core.Transaction, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, date, description, amount, account, category
		FROM opening_transactions
		ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query opening transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var id, date, desc, amount, account, category string
		if err := rows.Scan(&id, &date, &desc, &amount, &account, &category); err != nil {
			return nil, fmt.Errorf("scan opening transaction: %w", err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("opening transaction %s: %w", id, err)
		}
		a, err := core.ParseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("opening transaction %s: %w", id, err)
		}
		out = append(out, core.Transaction{
			ID:          id,
			Description: desc,
			Amount:      a,
			Date:        d,
			Account:     account,
			Category:    category,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opening transactions: %w", err)
	}
	return out, nil
}
