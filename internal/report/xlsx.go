package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"anwarfarm/internal/ledger"
)

const sheetName = "Laporan"

// WriteXLSX writes the view as a single-sheet workbook, oldest first, with a
// totals row for the exported set.
func WriteXLSX(w io.Writer, v ledger.View) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for i, h := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	row := 2
	for _, r := range chronological(v) {
		values := []any{r.Date.String(), r.Description, r.Income, r.Outcome, r.Balance}
		for col, val := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return err
			}
		}
		row++
	}

	totals := []any{"", "Total", v.Totals.Income, v.Totals.Outcome, v.Totals.Net}
	for col, val := range totals {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		if err := f.SetCellValue(sheetName, cell, val); err != nil {
			return err
		}
	}

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 40)
	f.SetColWidth(sheetName, "C", "E", 15)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
