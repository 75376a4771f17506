// Package export writes committed transactions to spreadsheet files.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"catatan/internal/core"
)

const (
	SheetName   = "Transactions"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{"ID", "Date", "Description", "Amount", "Account", "Category"}

// FileName is the suggested download name for an export taken at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("transactions_%s.xlsx", t.Format("20060102_150405"))
}

// WriteXLSX writes txs as a single-sheet workbook. The header row uses the
// same column names the Sheets reference source reads.
func WriteXLSX(w io.Writer, txs []core.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("write header %s: %w", h, err)
		}
	}

	for i, tx := range txs {
		row := i + 2
		values := []interface{}{
			tx.ID,
			tx.Date.String(),
			tx.Description,
			tx.Amount.InexactFloat64(),
			tx.Account,
			tx.Category,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("write transaction %s: %w", tx.ID, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
