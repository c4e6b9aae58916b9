// Package export writes account balance reports after each refresh.
package export

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/mintbridge/internal/domain"
	"github.com/mtlprog/mintbridge/internal/logger"
)

// BalanceRow is one eligible account in a balance report.
type BalanceRow struct {
	AccountID   string
	FIName      string
	Name        string
	Type        domain.AccountType
	Currency    string
	Balance     decimal.NullDecimal
	LastUpdated time.Time
}

// CurrencyTotal sums the balances of every reported account in one currency.
type CurrencyTotal struct {
	Currency string
	Total    decimal.Decimal
	Accounts int
}

// Report is the data handed to every Writer.
type Report struct {
	GeneratedAt time.Time
	Rows        []BalanceRow
	Totals      []CurrencyTotal
}

// Writer writes a balance report to a destination.
type Writer interface {
	Write(ctx context.Context, report Report) error
}

// Service builds balance reports and delegates writing to its writers.
type Service struct {
	writers []Writer
	now     func() time.Time
}

// NewService creates a new export Service.
func NewService(writers ...Writer) *Service {
	return &Service{
		writers: writers,
		now:     time.Now,
	}
}

// Export builds the report for a snapshot and hands it to every writer.
// Implements bridge.AfterRefreshHook.
func (s *Service) Export(ctx context.Context, snap domain.Snapshot) error {
	report := BuildReport(snap, s.now().UTC())

	var errs []error
	for _, w := range s.writers {
		if err := w.Write(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", w, err))
		}
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Int("rows", len(report.Rows)).
		Int("currencies", len(report.Totals)).
		Int("writers", len(s.writers)).
		Msg("export finished")

	return errors.Join(errs...)
}

// BuildReport returns one row per eligible account in snapshot order and
// the per-currency totals sorted by currency code. Accounts without any
// balance field are listed but not summed.
func BuildReport(snap domain.Snapshot, at time.Time) Report {
	eligible := lo.Filter(snap.Accounts, func(a domain.Account, _ int) bool {
		return a.Type.Eligible()
	})

	rows := lo.Map(eligible, func(a domain.Account, _ int) BalanceRow {
		balance, ok := a.Balance()
		return BalanceRow{
			AccountID:   a.ID,
			FIName:      a.FIName,
			Name:        a.Name,
			Type:        a.Type,
			Currency:    a.Currency,
			Balance:     decimal.NullDecimal{Decimal: balance, Valid: ok},
			LastUpdated: a.LastUpdated,
		}
	})

	byCurrency := lo.GroupBy(lo.Filter(rows, func(r BalanceRow, _ int) bool {
		return r.Balance.Valid
	}), func(r BalanceRow) string {
		return r.Currency
	})

	totals := make([]CurrencyTotal, 0, len(byCurrency))
	for currency, group := range byCurrency {
		total := lo.Reduce(group, func(acc decimal.Decimal, r BalanceRow, _ int) decimal.Decimal {
			return acc.Add(r.Balance.Decimal)
		}, decimal.Zero)
		totals = append(totals, CurrencyTotal{Currency: currency, Total: total, Accounts: len(group)})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Currency < totals[j].Currency })

	return Report{GeneratedAt: at, Rows: rows, Totals: totals}
}

// balanceHeader is shared by every writer so the layouts stay identical.
var balanceHeader = []any{"Account ID", "Institution", "Name", "Type", "Currency", "Balance", "Last Updated"}

var totalsHeader = []any{"Currency", "Total", "Accounts"}

func balanceValues(r Report) [][]any {
	data := make([][]any, 0, len(r.Rows)+1)
	data = append(data, balanceHeader)
	for _, row := range r.Rows {
		data = append(data, []any{
			row.AccountID,
			row.FIName,
			row.Name,
			string(row.Type),
			row.Currency,
			nullFloat(row.Balance),
			row.LastUpdated.UTC().Format(time.RFC3339),
		})
	}
	return data
}

func totalsValues(r Report) [][]any {
	data := make([][]any, 0, len(r.Totals)+1)
	data = append(data, totalsHeader)
	for _, t := range r.Totals {
		data = append(data, []any{t.Currency, toFloat(t.Total), t.Accounts})
	}
	return data
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func nullFloat(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return toFloat(d.Decimal)
}
