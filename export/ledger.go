/*
Package export renders reconstructed ledgers as spreadsheet workbooks.

PURPOSE:
  The ledger pages offer a printable/downloadable voucher of the current
  view. This package is a read-only consumer of the LedgerEntry slice the
  reconstructor produces: it lays the rows out on one sheet, newest first,
  exactly as displayed.
*/
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/stockroom/supply-engine/ledger"
)

const sheet = "Supply Ledger"

var headers = []string{"Date", "Type", "Reference", "Details", "Facility", "Qty In", "Qty Out", "Balance"}

// WriteLedger writes one workbook with the ledger view for an item. The
// opening balance is rendered as a footer row when a start-date filter
// carried a balance forward.
func WriteLedger(w io.Writer, itemName string, opening int, entries []ledger.LedgerEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	if err := f.SetCellValue(sheet, "A1", "Supply Ledger: "+itemName); err != nil {
		return err
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i, e := range entries {
		row := i + 3
		values := []any{
			e.Date.Format("2006-01-02 15:04"),
			string(e.Type),
			e.Reference,
			e.Details,
			e.FacilityName,
			blankIfZero(e.QuantityIn),
			blankIfZero(e.QuantityOut),
			e.Balance,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if opening != 0 {
		cell := fmt.Sprintf("A%d", len(entries)+3)
		if err := f.SetCellValue(sheet, cell, fmt.Sprintf("Balance brought forward: %d", opening)); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// blankIfZero keeps the in/out columns readable: only the active side of
// each row carries a number.
func blankIfZero(n int) any {
	if n == 0 {
		return ""
	}
	return n
}
