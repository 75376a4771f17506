package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusNew     Status = "new"
	StatusUpdated Status = "updated"
)

// DateLayout is the ISO calendar date layout used by date inputs and committed rows.
const DateLayout = "2006-01-02"

type (
	// Status marks whether a row is the editable draft or a committed entry.
	Status string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string
		Description string
		Amount      decimal.Decimal
		Date        Date
		Category    string // display name
		Account     string // display name
	}

	// Row is one element of the editor sequence: either the draft sentinel or a
	// committed transaction.
	Row interface {
		Status() Status
		isRow()
	}

	DraftRow struct{}

	CommittedRow struct {
		Transaction Transaction
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyID          = errors.New("empty transaction id")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyAccount     = errors.New("empty account")
	ErrEmptyCategory    = errors.New("empty category")
)

func (DraftRow) Status() Status     { return StatusNew }
func (CommittedRow) Status() Status { return StatusUpdated }

func (DraftRow) isRow()     {}
func (CommittedRow) isRow() {}

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Validate checks a committed transaction. Amount is not range-checked:
// any parsed decimal, including zero or negative, is accepted.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(t.Account) == "" {
		return ErrEmptyAccount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Amount bounds. Anything larger is rejected before it reaches decimal
// arithmetic, which is unbounded in exponent.
const (
	MaxAmountIntegerDigits  = 18
	MaxAmountFractionDigits = 6
)

// ParseAmount parses a plain decimal amount such as "15000", "-3" or "12.5".
// Surrounding whitespace is ignored. Exponent notation, more than
// MaxAmountIntegerDigits significant integer digits or more than
// MaxAmountFractionDigits fraction digits is ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	intPart, frac, hasPoint := strings.Cut(digits, ".")
	if intPart == "" || (hasPoint && frac == "") || !allDigits(intPart) || !allDigits(frac) {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if len(strings.TrimLeft(intPart, "0")) > MaxAmountIntegerDigits || len(frac) > MaxAmountFractionDigits {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
