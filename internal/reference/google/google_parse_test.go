package google

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseReferences(t *testing.T) {
	values := [][]interface{}{
		{"1", "BCA"},
		{},
		{"# disabled", "Old"},
		{"2.0", " Mandiri "},
		{"1", "BCA duplicate"},
		{3, "Cash"},
	}
	refs, err := parseReferences(values)
	if err != nil {
		t.Fatalf("parseReferences: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("expected 3 refs, got %+v", refs)
	}
	if refs[0].Name != "BCA" || refs[1].Key != 2 || refs[1].Name != "Mandiri" || refs[2].Key != 3 {
		t.Fatalf("unexpected refs %+v", refs)
	}
}

func TestParseReferencesInvalidKey(t *testing.T) {
	if _, err := parseReferences([][]interface{}{{"abc", "X"}}); err == nil {
		t.Fatal("expected error for non-numeric key")
	}
	if _, err := parseReferences([][]interface{}{{"1.5", "X"}}); err == nil {
		t.Fatal("expected error for fractional key")
	}
}

func TestParseTransactions(t *testing.T) {
	values := [][]interface{}{
		{"Date", "ID", "Description", "Amount", "Account", "Category"},
		{"2023-10-01", "1", "Salary", "10000000", "BCA", "Income"},
		{"2023-10-02", "2", "", "5", "Cash", "Expense"},
		{"2023-10-03", "3", "Rent", "12000.50", "BCA", "Expense"},
	}
	txs, err := parseTransactions(values)
	if err != nil {
		t.Fatalf("parseTransactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("rows without description must be skipped, got %d", len(txs))
	}
	if txs[1].ID != "3" || txs[1].Date.String() != "2023-10-03" || !txs[1].Amount.Equal(decimal.RequireFromString("12000.50")) {
		t.Fatalf("unexpected row %+v", txs[1])
	}
}

func TestParseTransactionsErrors(t *testing.T) {
	tests := []struct {
		name   string
		values [][]interface{}
	}{
		{"missing header", [][]interface{}{{"Date", "Amount"}}},
		{"bad date", [][]interface{}{
			{"ID", "Date", "Description", "Amount", "Account", "Category"},
			{"1", "10/01/2023", "Salary", "1", "BCA", "Income"},
		}},
		{"bad amount", [][]interface{}{
			{"ID", "Date", "Description", "Amount", "Account", "Category"},
			{"1", "2023-10-01", "Salary", "lots", "BCA", "Income"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseTransactions(tt.values); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseTransactionsEmpty(t *testing.T) {
	txs, err := parseTransactions(nil)
	if err != nil || txs != nil {
		t.Fatalf("expected nil, nil; got %v %v", txs, err)
	}
}
