package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"catatan/internal/core"
	"catatan/internal/reference"
)

func TestMemoryStoreListsAndDedupe(t *testing.T) {
	s, err := New(
		[]core.Reference{{Key: 1, Name: "A"}, {Key: 2, Name: "B"}, {Key: 1, Name: "A again"}},
		[]core.Reference{{Key: 1, Name: "X"}},
		nil,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	accts, err := s.Accounts(context.Background())
	if err != nil || accts.Len() != 2 {
		t.Fatalf("unexpected accounts: %v err=%v", accts.Entries(), err)
	}
	if name, _ := accts.Lookup(1); name != "A" {
		t.Fatalf("first occurrence must win, got %q", name)
	}
	cats, _ := s.Categories(context.Background())
	if cats.Len() != 1 {
		t.Fatalf("unexpected categories: %v", cats.Entries())
	}
}

func TestNewRejectsInvalidReferences(t *testing.T) {
	if _, err := New([]core.Reference{{Key: 0, Name: "zero"}}, nil, nil); err == nil {
		t.Fatal("expected error for non-positive key")
	}
}

func TestOpeningIsCopied(t *testing.T) {
	s := NewDefault()
	txs, _ := s.Opening(context.Background())
	if len(txs) != 3 {
		t.Fatalf("expected 3 default transactions, got %d", len(txs))
	}
	txs[0].Description = "mutated"
	again, _ := s.Opening(context.Background())
	if again[0].Description != "Salary" {
		t.Fatal("Opening must return a copy")
	}
}

func TestNewFromFileDefaults(t *testing.T) {
	dir := t.TempDir()
	for _, path := range []string{"", filepath.Join(dir, "missing.yaml")} {
		s, err := NewFromFile(path)
		if err != nil {
			t.Fatalf("%q: %v", path, err)
		}
		data, err := reference.Load(context.Background(), s)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if data.Accounts.Len() != 3 || data.Categories.Len() != 3 || len(data.Opening) != 3 {
			t.Fatalf("%q: expected defaults, got %d/%d/%d", path, data.Accounts.Len(), data.Categories.Len(), len(data.Opening))
		}
	}
}

func TestNewFromFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reference.yaml")
	content := `accounts:
  - {key: 10, name: Wallet}
  - {key: 11, name: Card}
transactions:
  - id: a1
    date: "2024-05-01"
    description: Bus
    amount: "3500"
    account: Wallet
    category: Expense
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	accts, _ := s.Accounts(context.Background())
	if name, err := accts.Lookup(11); err != nil || name != "Card" {
		t.Fatalf("lookup 11: %q %v", name, err)
	}
	cats, _ := s.Categories(context.Background())
	if cats.Len() != 3 {
		t.Fatalf("categories should fall back to defaults, got %v", cats.Entries())
	}
	txs, _ := s.Opening(context.Background())
	if len(txs) != 1 || txs[0].ID != "a1" || !txs[0].Amount.Equal(decimal.NewFromInt(3500)) || txs[0].Date.String() != "2024-05-01" {
		t.Fatalf("unexpected opening %+v", txs)
	}
}

func TestNewFromFileEmptyTransactionList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.yaml")
	if err := os.WriteFile(path, []byte("transactions: []\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	txs, _ := s.Opening(context.Background())
	if len(txs) != 0 {
		t.Fatalf("explicit empty list must clear opening, got %d", len(txs))
	}
}

func TestNewFromFileErrors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad yaml":   "accounts: [",
		"bad amount": "transactions:\n  - {id: x, date: \"2024-01-01\", description: d, amount: abc, account: Cash, category: Expense}\n",
		"bad date":   "transactions:\n  - {id: x, date: \"01/01/2024\", description: d, amount: \"1\", account: Cash, category: Expense}\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := NewFromFile(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
