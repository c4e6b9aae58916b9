package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter implements Writer by overwriting a local workbook on every export.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates an XLSXWriter for the given file path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Write creates a workbook with BALANCES and TOTALS sheets and saves it.
func (w *XLSXWriter) Write(_ context.Context, report Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// The default sheet is renamed so the workbook has no empty first tab.
	if err := f.SetSheetName(f.GetSheetName(0), balancesSheet); err != nil {
		return fmt.Errorf("renaming default sheet: %w", err)
	}
	if _, err := f.NewSheet(totalsSheet); err != nil {
		return fmt.Errorf("creating %s sheet: %w", totalsSheet, err)
	}

	if err := writeRows(f, balancesSheet, balanceValues(report)); err != nil {
		return err
	}
	if err := writeRows(f, totalsSheet, totalsValues(report)); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetRowStyle(balancesSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("styling %s header: %w", balancesSheet, err)
	}
	if err := f.SetRowStyle(totalsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("styling %s header: %w", totalsSheet, err)
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("resolving cell for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
