package library

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"sola-lending/library/recordstore"
)

var (
	// DailyFineRate accrues per whole day a loan is overdue.
	DailyFineRate = decimal.RequireFromString("0.15")
	// MaxFinePerLoan caps the accrual of a single loan.
	MaxFinePerLoan = decimal.NewFromInt(25)

	fineTolerance   = decimal.RequireFromString("0.01")
	verifyTolerance = decimal.RequireFromString("0.001")
)

// AccrueFine computes the overdue fine of one loan at now.
func AccrueFine(loan LoanRecord, now time.Time) decimal.Decimal {
	if !loan.Overdue(now) {
		return decimal.Zero
	}
	days := int64(wallClock(now).Sub(wallClock(loan.Due)) / (24 * time.Hour))
	return decimal.Min(DailyFineRate.Mul(decimal.NewFromInt(days)), MaxFinePerLoan)
}

// wallClock keeps the calendar fields of t and drops its zone, so day counts
// are not skewed by DST transitions.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Reconciler recomputes overdue fines from loan due dates and reconciles them
// with the fines stored in the ledger.
type Reconciler struct {
	engine    *Engine
	ledger    *Ledger
	borrowers *BorrowerIndex
	opts      options
}

// NewReconciler returns a reconciler. borrowers may be nil.
func NewReconciler(engine *Engine, ledger *Ledger, borrowers *BorrowerIndex, opts ...Option) *Reconciler {
	return &Reconciler{engine: engine, ledger: ledger, borrowers: borrowers, opts: buildOptions(opts)}
}

// FineChange records one stored fine raised by RecomputeAll.
type FineChange struct {
	AccountNumber string
	Previous      decimal.Decimal
	Accrued       decimal.Decimal
	Applied       decimal.Decimal
}

// RecomputeAll accrues fines for every overdue loan, summed per account.
// The stored fine becomes max(stored, accrued), so a fine set by hand is never
// lowered, and it is only rewritten when that moves it by more than 0.01.
// Failures for one account do not stop the others; they are joined into the
// returned error.
func (r *Reconciler) RecomputeAll() ([]FineChange, error) {
	now := r.opts.now()
	accrued := make(map[string]decimal.Decimal)
	var order []string
	for _, loan := range r.engine.Loans() {
		if !loan.Overdue(now) {
			continue
		}
		sum, seen := accrued[loan.AccountNumber]
		if !seen {
			order = append(order, loan.AccountNumber)
		}
		accrued[loan.AccountNumber] = sum.Add(AccrueFine(loan, now))
	}

	var (
		changes []FineChange
		errs    []error
	)
	for _, accountNumber := range order {
		account, err := r.ledger.FindByAccountNumber(accountNumber)
		if err != nil {
			r.opts.logger.Debug("overdue loan for unknown account", "account", accountNumber)
			continue
		}
		computed := accrued[accountNumber]
		final := decimal.Max(account.Fine, computed)
		if final.Sub(account.Fine).Abs().GreaterThan(fineTolerance) {
			if err := r.ledger.UpdateFine(accountNumber, final); err != nil {
				errs = append(errs, err)
				continue
			}
			changes = append(changes, FineChange{
				AccountNumber: accountNumber,
				Previous:      account.Fine,
				Accrued:       computed,
				Applied:       final,
			})
			r.opts.logger.Info("fine accrued", "account", accountNumber,
				"previous", account.Fine.StringFixed(2), "fine", final.StringFixed(2))
		}
		if r.borrowers != nil {
			r.borrowers.SetFine(accountNumber, final)
		}
	}
	return changes, errors.Join(errs...)
}

// FineReportEntry is one account with an outstanding fine.
type FineReportEntry struct {
	AccountNumber string          `json:"account_number"`
	Username      string          `json:"username"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Fine          decimal.Decimal `json:"fine"`
}

// FineReport ranks accounts by outstanding fine, highest first.
type FineReport struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Entries     []FineReportEntry `json:"entries"`
	Count       int               `json:"count"`
	Total       decimal.Decimal   `json:"total"`
	Average     decimal.Decimal   `json:"average"`
	Max         decimal.Decimal   `json:"max"`
	Min         decimal.Decimal   `json:"min"`
}

// Report runs RecomputeAll and then aggregates the stored fines. A failed
// recompute is logged and the report is built from what is stored.
func (r *Reconciler) Report() *FineReport {
	if _, err := r.RecomputeAll(); err != nil {
		r.opts.logger.Warn("fine recompute failed, reporting stored fines", "error", err)
	}

	rep := &FineReport{GeneratedAt: r.opts.now()}
	for _, a := range r.ledger.Accounts() {
		if !a.HasFine() {
			continue
		}
		rep.Entries = append(rep.Entries, FineReportEntry{
			AccountNumber: a.AccountNumber,
			Username:      a.Username,
			FirstName:     a.FirstName,
			LastName:      a.LastName,
			Fine:          a.Fine,
		})
	}
	slices.SortStableFunc(rep.Entries, func(a, b FineReportEntry) int {
		return cmp.Or(b.Fine.Cmp(a.Fine), cmp.Compare(a.AccountNumber, b.AccountNumber))
	})

	rep.Count = len(rep.Entries)
	if rep.Count == 0 {
		return rep
	}
	rep.Max = rep.Entries[0].Fine
	rep.Min = rep.Entries[rep.Count-1].Fine
	for _, e := range rep.Entries {
		rep.Total = rep.Total.Add(e.Fine)
	}
	rep.Average = rep.Total.Div(decimal.NewFromInt(int64(rep.Count))).Round(2)
	return rep
}

var reportSchema = recordstore.Schema{
	{Name: "account number", Kind: recordstore.Identifier},
	{Name: "username"},
	{Name: "first name"},
	{Name: "last name"},
	{Name: "fine amount", Kind: recordstore.Number},
}

// WriteCSV commits the report entries to path through store.
func (rep *FineReport) WriteCSV(store RecordStore, path string) error {
	rs := recordstore.NewRecordSet(reportSchema)
	for _, e := range rep.Entries {
		rs.Append(recordstore.Record{
			"account number": e.AccountNumber,
			"username":       e.Username,
			"first name":     e.FirstName,
			"last name":      e.LastName,
			"fine amount":    e.Fine.StringFixed(2),
		})
	}
	return store.Save(path, rs)
}
