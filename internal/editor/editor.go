// Package editor implements the transaction list editor: an ordered list of
// committed transactions followed by a single draft row that acts as the
// inline add form.
//
// An Editor is not safe for concurrent use. Callers that share one across
// goroutines must serialise access (see internal/session).
package editor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"catatan/internal/core"
)

// Draft field names, as carried by form posts and CLI commands.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldAccount     = "account"
	FieldCategory    = "category"
)

// NoSelection is the account/category key meaning "nothing picked".
const NoSelection = 0

var (
	ErrMissingDescription = errors.New("description is required")
	ErrMissingAmount      = errors.New("amount is required")
	ErrMissingAccount     = errors.New("account is required")
	ErrMissingCategory    = errors.New("category is required")
	ErrInvalidAmount      = errors.New("amount is not a number")
	ErrInvalidDate        = errors.New("date must be YYYY-MM-DD")
	ErrUnknownAccount     = errors.New("unknown account")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrUnknownField       = errors.New("unknown field")
	ErrDuplicateID        = errors.New("duplicate transaction id")
)

// ValidationError reports why a draft could not be committed.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a draft validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Draft is the in-progress input state of the add form.
type Draft struct {
	Date        string
	Description string
	Amount      string
	AccountKey  int
	CategoryKey int
}

// Options configures a new Editor. Accounts and Categories are required;
// Clock and NewID default to time.Now and random UUIDs.
type Options struct {
	Accounts   core.ReferenceList
	Categories core.ReferenceList
	Seed       []core.Transaction
	Clock      func() time.Time
	NewID      func() string
}

type Editor struct {
	accounts   core.ReferenceList
	categories core.ReferenceList
	clock      func() time.Time
	newID      func() string

	rows  []core.Row
	ids   map[string]struct{}
	draft Draft
}

// New builds an editor holding the seed transactions followed by a blank draft.
// Seed entries without an id receive a generated one.
func New(opts Options) (*Editor, error) {
	if opts.Accounts.Len() == 0 {
		return nil, errors.New("editor: no accounts configured")
	}
	if opts.Categories.Len() == 0 {
		return nil, errors.New("editor: no categories configured")
	}
	e := &Editor{
		accounts:   opts.Accounts,
		categories: opts.Categories,
		clock:      opts.Clock,
		newID:      opts.NewID,
		rows:       make([]core.Row, 0, len(opts.Seed)+1),
		ids:        make(map[string]struct{}, len(opts.Seed)),
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.newID == nil {
		e.newID = func() string { return uuid.New().String() }
	}

	for i, tx := range opts.Seed {
		if strings.TrimSpace(tx.ID) == "" {
			tx.ID = e.newID()
		}
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("editor: seed %d: %w", i, err)
		}
		if _, dup := e.ids[tx.ID]; dup {
			return nil, fmt.Errorf("editor: seed %d: %w %q", i, ErrDuplicateID, tx.ID)
		}
		e.ids[tx.ID] = struct{}{}
		e.rows = append(e.rows, core.CommittedRow{Transaction: tx})
	}
	e.rows = append(e.rows, core.DraftRow{})
	e.resetDraft()
	return e, nil
}

func (e *Editor) resetDraft() {
	e.draft = Draft{Date: core.DateOf(e.clock()).String()}
}

func (e *Editor) SetDate(v string)        { e.draft.Date = strings.TrimSpace(v) }
func (e *Editor) SetDescription(v string) { e.draft.Description = v }
func (e *Editor) SetAmount(v string)      { e.draft.Amount = v }
func (e *Editor) SelectAccount(key int)   { e.draft.AccountKey = key }
func (e *Editor) SelectCategory(key int)  { e.draft.CategoryKey = key }

// Apply routes a named field change to the matching setter. Select fields
// take a decimal key; an empty value clears the selection.
func (e *Editor) Apply(field, value string) error {
	switch field {
	case FieldDate:
		e.SetDate(value)
	case FieldDescription:
		e.SetDescription(value)
	case FieldAmount:
		e.SetAmount(value)
	case FieldAccount, FieldCategory:
		key, err := parseKey(value)
		if err != nil {
			return &ValidationError{Field: field, Err: err}
		}
		if field == FieldAccount {
			e.SelectAccount(key)
		} else {
			e.SelectCategory(key)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownField, field)
	}
	return nil
}

func parseKey(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return NoSelection, nil
	}
	key, err := strconv.Atoi(v)
	if err != nil || key < 0 {
		return NoSelection, fmt.Errorf("invalid key %q", v)
	}
	return key, nil
}

// Submit commits the draft. Presence of description, amount, account and
// category is checked in that order; on any failure the editor is unchanged
// and a *ValidationError is returned.
func (e *Editor) Submit() (core.Transaction, error) {
	d := e.draft
	switch {
	case strings.TrimSpace(d.Description) == "":
		return core.Transaction{}, &ValidationError{Field: FieldDescription, Err: ErrMissingDescription}
	case strings.TrimSpace(d.Amount) == "":
		return core.Transaction{}, &ValidationError{Field: FieldAmount, Err: ErrMissingAmount}
	case d.AccountKey == NoSelection:
		return core.Transaction{}, &ValidationError{Field: FieldAccount, Err: ErrMissingAccount}
	case d.CategoryKey == NoSelection:
		return core.Transaction{}, &ValidationError{Field: FieldCategory, Err: ErrMissingCategory}
	}

	amount, err := core.ParseAmount(d.Amount)
	if err != nil {
		return core.Transaction{}, &ValidationError{Field: FieldAmount, Err: ErrInvalidAmount}
	}
	account, err := e.accounts.Lookup(d.AccountKey)
	if err != nil {
		return core.Transaction{}, &ValidationError{Field: FieldAccount, Err: fmt.Errorf("%w: %w", ErrUnknownAccount, err)}
	}
	category, err := e.categories.Lookup(d.CategoryKey)
	if err != nil {
		return core.Transaction{}, &ValidationError{Field: FieldCategory, Err: fmt.Errorf("%w: %w", ErrUnknownCategory, err)}
	}
	date := core.DateOf(e.clock())
	if d.Date != "" {
		if date, err = core.ParseDate(d.Date); err != nil {
			return core.Transaction{}, &ValidationError{Field: FieldDate, Err: ErrInvalidDate}
		}
	}

	id := e.newID()
	if _, dup := e.ids[id]; dup || strings.TrimSpace(id) == "" {
		return core.Transaction{}, fmt.Errorf("editor: %w %q", ErrDuplicateID, id)
	}

	tx := core.Transaction{
		ID:          id,
		Description: strings.TrimSpace(d.Description),
		Amount:      amount,
		Date:        date,
		Category:    category,
		Account:     account,
	}
	e.ids[id] = struct{}{}
	e.rows[len(e.rows)-1] = core.CommittedRow{Transaction: tx}
	e.rows = append(e.rows, core.DraftRow{})
	e.resetDraft()
	return tx, nil
}

// Draft returns the current input state.
func (e *Editor) Draft() Draft {
	return e.draft
}

// Rows returns a copy of the row sequence; the last element is always the draft.
func (e *Editor) Rows() []core.Row {
	return append([]core.Row(nil), e.rows...)
}

// Transactions returns the committed transactions in order.
func (e *Editor) Transactions() []core.Transaction {
	out := make([]core.Transaction, 0, len(e.rows)-1)
	for _, r := range e.rows {
		if c, ok := r.(core.CommittedRow); ok {
			out = append(out, c.Transaction)
		}
	}
	return out
}

// Len is the number of rows including the draft.
func (e *Editor) Len() int {
	return len(e.rows)
}

func (e *Editor) Accounts() core.ReferenceList   { return e.accounts }
func (e *Editor) Categories() core.ReferenceList { return e.categories }
