// Package reference defines where the editor's reference lists (accounts,
// categories) and opening transactions come from.
package reference

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"catatan/internal/core"
)

// Ports for reference sources.
type (
	AccountReader interface {
		Accounts(ctx context.Context) (core.ReferenceList, error)
	}

	CategoryReader interface {
		Categories(ctx context.Context) (core.ReferenceList, error)
	}

	// OpeningReader returns the committed transactions a new editor starts with.
	OpeningReader interface {
		Opening(ctx context.Context) ([]core.Transaction, error)
	}

	Reader interface {
		AccountReader
		CategoryReader
		OpeningReader
	}
)

// Data is everything needed to construct an editor.
type Data struct {
	Accounts   core.ReferenceList
	Categories core.ReferenceList
	Opening    []core.Transaction
}

// Load reads the three lists concurrently.
func Load(ctx context.Context, r Reader) (Data, error) {
	var d Data
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l, err := r.Accounts(gctx)
		if err != nil {
			return fmt.Errorf("read accounts: %w", err)
		}
		d.Accounts = l
		return nil
	})
	g.Go(func() error {
		l, err := r.Categories(gctx)
		if err != nil {
			return fmt.Errorf("read categories: %w", err)
		}
		d.Categories = l
		return nil
	})
	g.Go(func() error {
		txs, err := r.Opening(gctx)
		if err != nil {
			return fmt.Errorf("read opening transactions: %w", err)
		}
		d.Opening = txs
		return nil
	})
	if err := g.Wait(); err != nil {
		return Data{}, err
	}
	if d.Accounts.Len() == 0 {
		return Data{}, fmt.Errorf("no accounts available")
	}
	if d.Categories.Len() == 0 {
		return Data{}, fmt.Errorf("no categories available")
	}
	return d, nil
}

// DefaultAccounts is the built-in account list.
func DefaultAccounts() []core.Reference {
	return []core.Reference{
		{Key: 1, Name: "BCA"},
		{Key: 2, Name: "Mandiri"},
		{Key: 3, Name: "Cash"},
	}
}

// DefaultCategories is the built-in category list.
func DefaultCategories() []core.Reference {
	return []core.Reference{
		{Key: 1, Name: "Income"},
		{Key: 2, Name: "Expense"},
		{Key: 3, Name: "Transfer"},
	}
}

// DefaultOpening is the built-in set of committed transactions shown on first load.
func DefaultOpening() []core.Transaction {
	return []core.Transaction{
		{ID: "1", Description: "Salary", Amount: decimal.NewFromInt(10000000), Date: core.NewDate(2023, 10, 1), Category: "Income", Account: "BCA"},
		{ID: "2", Description: "Groceries", Amount: decimal.NewFromInt(200000), Date: core.NewDate(2023, 10, 2), Category: "Expense", Account: "Cash"},
		{ID: "3", Description: "Rent", Amount: decimal.NewFromInt(12000), Date: core.NewDate(2023, 10, 3), Category: "Expense", Account: "BCA"},
	}
}
