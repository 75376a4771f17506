package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// AmountFormatter renders an amount for display.
type AmountFormatter interface {
	Format(amount decimal.Decimal) string
}

// CurrencyFormatter formats amounts as locale-aware currency strings,
// e.g. "Rp 15.000,00" for id-ID/IDR with two fraction digits.
// Digits come from the decimal itself; only the separators come from the locale.
type CurrencyFormatter struct {
	unit       currency.Unit
	symbol     string
	scale      int
	groupSep   string
	decimalSep string
}

// NewCurrencyFormatter builds a formatter for a BCP 47 locale and an ISO 4217 code.
// The number of fraction digits is the currency's standard scale; see
// WithFractionDigits. An empty symbol falls back to the ISO code.
func NewCurrencyFormatter(locale, isoCode, symbol string) (*CurrencyFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(isoCode)))
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", isoCode, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		symbol = unit.String()
	}
	groupSep, decimalSep := separators(message.NewPrinter(tag))
	return &CurrencyFormatter{
		unit:       unit,
		symbol:     symbol,
		scale:      scale,
		groupSep:   groupSep,
		decimalSep: decimalSep,
	}, nil
}

// MustCurrencyFormatter is NewCurrencyFormatter for static configuration.
func MustCurrencyFormatter(locale, isoCode, symbol string) *CurrencyFormatter {
	f, err := NewCurrencyFormatter(locale, isoCode, symbol)
	if err != nil {
		panic(err)
	}
	return f
}

// WithFractionDigits returns a copy of f that always shows n fraction digits.
// Negative n keeps the currency's standard scale.
func (f *CurrencyFormatter) WithFractionDigits(n int) *CurrencyFormatter {
	c := *f
	if n >= 0 {
		c.scale = n
	}
	return &c
}

// separators reads the locale's grouping and decimal symbols off two
// small constants printed by p.
func separators(p *message.Printer) (group, point string) {
	g := p.Sprintf("%.0f", 1000.0) // "1.000", "1,000", "1 000" or "1000"
	group = strings.TrimSuffix(strings.TrimPrefix(g, "1"), "000")
	d := p.Sprintf("%.1f", 1.5)
	point = strings.TrimSuffix(strings.TrimPrefix(d, "1"), "5")
	if point == "" {
		point = "."
	}
	return group, point
}

// Format rounds to the formatter's scale and applies the locale's grouping
// and decimal separators. No floating-point conversion is involved.
func (f *CurrencyFormatter) Format(amount decimal.Decimal) string {
	rounded := amount.Round(int32(f.scale))
	intPart, frac, _ := strings.Cut(rounded.Abs().StringFixed(int32(f.scale)), ".")

	var b strings.Builder
	if rounded.Sign() < 0 {
		b.WriteByte('-')
	}
	b.WriteString(f.symbol)
	b.WriteByte(' ')
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(f.groupSep)
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString(f.decimalSep)
		b.WriteString(frac)
	}
	return b.String()
}

// Currency returns the ISO code the formatter was built for.
func (f *CurrencyFormatter) Currency() string {
	return f.unit.String()
}
