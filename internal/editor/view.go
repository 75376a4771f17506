package editor

import "catatan/internal/core"

// RowView is the display projection of one row. Committed rows carry static
// text; the draft row carries the current input values and Editable is set.
type RowView struct {
	ID          string
	Status      core.Status
	Editable    bool
	Date        string
	Description string
	Amount      string
	Account     string
	Category    string
}

// Option is a select control entry.
type Option struct {
	Key      int
	Name     string
	Selected bool
}

// View is the full projection handed to a renderer.
type View struct {
	Rows       []RowView
	Accounts   []Option
	Categories []Option
}

// View projects the editor state without mutating it.
func (e *Editor) View(f core.AmountFormatter) View {
	v := View{
		Rows:       make([]RowView, 0, len(e.rows)),
		Accounts:   options(e.accounts, e.draft.AccountKey),
		Categories: options(e.categories, e.draft.CategoryKey),
	}
	for _, r := range e.rows {
		v.Rows = append(v.Rows, e.renderRow(r, f))
	}
	return v
}

func (e *Editor) renderRow(r core.Row, f core.AmountFormatter) RowView {
	switch row := r.(type) {
	case core.CommittedRow:
		tx := row.Transaction
		return RowView{
			ID:          tx.ID,
			Status:      core.StatusUpdated,
			Date:        tx.Date.String(),
			Description: tx.Description,
			Amount:      f.Format(tx.Amount),
			Account:     tx.Account,
			Category:    tx.Category,
		}
	default:
		d := e.draft
		rv := RowView{
			Status:      core.StatusNew,
			Editable:    true,
			Date:        d.Date,
			Description: d.Description,
			Amount:      d.Amount,
		}
		// Selected names are shown for renderers without select controls.
		rv.Account, _ = e.accounts.Lookup(d.AccountKey)
		rv.Category, _ = e.categories.Lookup(d.CategoryKey)
		return rv
	}
}

func options(l core.ReferenceList, selected int) []Option {
	entries := l.Entries()
	out := make([]Option, len(entries))
	for i, ref := range entries {
		out[i] = Option{Key: ref.Key, Name: ref.Name, Selected: ref.Key == selected}
	}
	return out
}
