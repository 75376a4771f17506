package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"catatan/internal/core"
	"catatan/internal/reference"
)

var _ reference.Reader = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	accts   core.ReferenceList
	cats    core.ReferenceList
	opening []core.Transaction
}

func New(accounts, categories []core.Reference, opening []core.Transaction) (*Store, error) {
	accts, err := core.NewReferenceList(dedupe(accounts)...)
	if err != nil {
		return nil, fmt.Errorf("accounts: %w", err)
	}
	cats, err := core.NewReferenceList(dedupe(categories)...)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	return &Store{accts: accts, cats: cats, opening: append([]core.Transaction(nil), opening...)}, nil
}

// NewDefault returns a store holding the built-in reference data.
func NewDefault() *Store {
	s, err := New(reference.DefaultAccounts(), reference.DefaultCategories(), reference.DefaultOpening())
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Store) Accounts(_ context.Context) (core.ReferenceList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accts, nil
}

func (s *Store) Categories(_ context.Context) (core.ReferenceList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cats, nil
}

// Opening returns a copy of the opening transactions.
func (s *Store) Opening(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.opening...), nil
}

type fileRef struct {
	Key  int    `yaml:"key"`
	Name string `yaml:"name"`
}

type fileTx struct {
	ID          string `yaml:"id"`
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
	Account     string `yaml:"account"`
	Category    string `yaml:"category"`
}

type fileData struct {
	Accounts     []fileRef `yaml:"accounts"`
	Categories   []fileRef `yaml:"categories"`
	Transactions []fileTx  `yaml:"transactions"`
}

// NewFromFile loads reference data from a YAML file. Sections missing from the
// file fall back to the built-in defaults; a missing file yields the defaults.
func NewFromFile(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return NewDefault(), nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewDefault(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reference file: %w", err)
	}
	var fd fileData
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse reference file %s: %w", path, err)
	}

	accounts := reference.DefaultAccounts()
	if len(fd.Accounts) > 0 {
		accounts = toRefs(fd.Accounts)
	}
	categories := reference.DefaultCategories()
	if len(fd.Categories) > 0 {
		categories = toRefs(fd.Categories)
	}
	opening := reference.DefaultOpening()
	if fd.Transactions != nil {
		opening = make([]core.Transaction, 0, len(fd.Transactions))
		for i, ft := range fd.Transactions {
			tx, err := ft.toTransaction()
			if err != nil {
				return nil, fmt.Errorf("transaction %d in %s: %w", i, path, err)
			}
			opening = append(opening, tx)
		}
	}
	return New(accounts, categories, opening)
}

func (ft fileTx) toTransaction() (core.Transaction, error) {
	date, err := core.ParseDate(ft.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(ft.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          strings.TrimSpace(ft.ID),
		Description: strings.TrimSpace(ft.Description),
		Amount:      amount,
		Date:        date,
		Account:     strings.TrimSpace(ft.Account),
		Category:    strings.TrimSpace(ft.Category),
	}, nil
}

func toRefs(in []fileRef) []core.Reference {
	out := make([]core.Reference, len(in))
	for i, r := range in {
		out[i] = core.Reference{Key: r.Key, Name: r.Name}
	}
	return out
}

// dedupe drops repeated keys, keeping the first occurrence and input order.
func dedupe(in []core.Reference) []core.Reference {
	seen := map[int]struct{}{}
	out := make([]core.Reference, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r.Key]; ok {
			continue
		}
		seen[r.Key] = struct{}{}
		out = append(out, r)
	}
	return out
}
