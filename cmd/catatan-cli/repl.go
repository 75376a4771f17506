package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"

	"catatan/internal/core"
	"catatan/internal/editor"
	"catatan/internal/export"
	"catatan/internal/services"
)

const sessionName = "cli"

const helpText = `commands:
  date YYYY-MM-DD     set the draft date (empty clears it)
  desc TEXT           set the draft description
  amount N            set the draft amount
  account KEY         select an account by key
  category KEY        select a category by key
  accounts            list accounts
  categories          list categories
  submit              commit the draft
  show                print all rows
  export FILE         write committed transactions to an .xlsx file
  quit                exit
`

type repl struct {
	editor    *editor.Editor
	commits   *services.CommitService
	formatter core.AmountFormatter
	out       io.Writer
}

// run processes commands until quit, EOF or ctx cancellation.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	r.show()
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(r.out)
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		if done := r.exec(ctx, sc.Text()); done {
			return nil
		}
	}
}

// exec runs one command line and reports whether the session should end.
func (r *repl) exec(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprint(r.out, helpText)
	case "show":
		r.show()
	case "accounts":
		r.listOptions(r.editor.View(r.formatter).Accounts)
	case "categories":
		r.listOptions(r.editor.View(r.formatter).Categories)
	case "date":
		r.apply(editor.FieldDate, arg)
	case "desc", "description":
		r.apply(editor.FieldDescription, arg)
	case "amount":
		r.apply(editor.FieldAmount, arg)
	case "account":
		r.apply(editor.FieldAccount, arg)
	case "category":
		r.apply(editor.FieldCategory, arg)
	case "submit":
		tx, err := r.commits.Commit(ctx, sessionName, r.editor)
		if err != nil {
			r.reportError(err)
			return false
		}
		fmt.Fprintf(r.out, "added %s: %s %s\n", tx.ID, tx.Description, r.formatter.Format(tx.Amount))
		r.show()
	case "export":
		if arg == "" {
			fmt.Fprintln(r.out, "usage: export FILE")
			return false
		}
		if err := r.export(arg); err != nil {
			r.reportError(err)
			return false
		}
		fmt.Fprintf(r.out, "exported %d transactions to %s\n", len(r.editor.Transactions()), arg)
	default:
		fmt.Fprintf(r.out, "unknown command %q; type help\n", cmd)
	}
	return false
}

func (r *repl) apply(field, value string) {
	if err := r.editor.Apply(field, value); err != nil {
		r.reportError(err)
	}
}

func (r *repl) export(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := export.WriteXLSX(f, r.editor.Transactions()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (r *repl) reportError(err error) {
	var ve *editor.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintf(r.out, "rejected: %s\n", ve.Error())
		return
	}
	fmt.Fprintf(r.out, "error: %v\n", err)
}

// show renders the view as a table; the draft row is marked with "*".
func (r *repl) show() {
	v := r.editor.View(r.formatter)
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"", "Date", "Description", "Amount", "Account", "Category"})
	table.SetAutoWrapText(false)
	for _, row := range v.Rows {
		marker := ""
		if row.Editable {
			marker = "*"
		}
		table.Append([]string{marker, row.Date, row.Description, row.Amount, row.Account, row.Category})
	}
	table.Render()
}

func (r *repl) listOptions(opts []editor.Option) {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Key", "Name", "Selected"})
	for _, o := range opts {
		sel := ""
		if o.Selected {
			sel = "yes"
		}
		table.Append([]string{fmt.Sprint(o.Key), o.Name, sel})
	}
	table.Render()
}
