package export

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	sheets "google.golang.org/api/sheets/v4"
)

const historySheet = "HISTORY"

// historyCurrencies are the fixed currency columns of the HISTORY sheet.
// Totals in any other currency are only reported on the TOTALS sheet.
var historyCurrencies = []string{"USD", "EUR", "GBP", "CAD"}

// buildHistoryRows builds the header row and a single data row for the HISTORY sheet.
// Columns: Date | Accounts | USD | EUR | GBP | CAD
func buildHistoryRows(report Report) (header, data []any) {
	header = append([]any{"Date", "Accounts"}, lo.Map(historyCurrencies, func(c string, _ int) any { return c })...)

	byCurrency := lo.KeyBy(report.Totals, func(t CurrencyTotal) string { return t.Currency })

	data = make([]any, 0, len(header))
	data = append(data, report.GeneratedAt.UTC().Format("02.01.2006 15:04"), len(report.Rows))
	for _, c := range historyCurrencies {
		if t, ok := byCurrency[c]; ok {
			data = append(data, toFloat(t.Total))
		} else {
			data = append(data, float64(0))
		}
	}

	return header, data
}

// appendHistory writes the header row if the sheet is empty, then appends
// one data row for the current export.
func (w *SheetsWriter) appendHistory(ctx context.Context, report Report) error {
	header, dataRow := buildHistoryRows(report)

	existing, err := w.svc.Spreadsheets.Values.Get(
		w.spreadsheetID, historySheet+"!A1",
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", historySheet, err)
	}

	if len(existing.Values) == 0 {
		_, err = w.svc.Spreadsheets.Values.Update(
			w.spreadsheetID,
			historySheet+"!A1",
			&sheets.ValueRange{Values: [][]any{header}},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing %s header: %w", historySheet, err)
		}
	}

	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		historySheet+"!A:F",
		&sheets.ValueRange{Values: [][]any{dataRow}},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %s row: %w", historySheet, err)
	}

	return nil
}
