package library

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sola-lending/library/recordstore"
)

// Paths locates the three flat files.
type Paths struct {
	Catalogue string
	Loans     string
	Accounts  string
}

// LibraryManager is a thin façade wiring the store, ledger, lending engine and
// fine reconciler together, keeping CLI code simple.
type LibraryManager struct {
	store      RecordStore
	ledger     *Ledger
	engine     *Engine
	reconciler *Reconciler
	borrowers  *BorrowerIndex
	logger     *slog.Logger
}

// NewLibraryManager builds every component over the files in paths. Missing
// files are created on first commit.
func NewLibraryManager(paths Paths, hasher PasswordHasher, opts ...Option) (*LibraryManager, error) {
	if paths.Catalogue == "" || paths.Loans == "" || paths.Accounts == "" {
		return nil, fmt.Errorf("catalogue, loan and account paths are required: %w", ErrInvalidInput)
	}
	if hasher == nil {
		return nil, fmt.Errorf("password hasher is required: %w", ErrInvalidInput)
	}
	o := buildOptions(opts)
	store := recordstore.New(recordstore.WithLogger(o.logger))
	return newLibraryManager(store, paths, hasher, opts...), nil
}

func newLibraryManager(store RecordStore, paths Paths, hasher PasswordHasher, opts ...Option) *LibraryManager {
	ledger := NewLedger(store, paths.Accounts, hasher, opts...)
	engine := NewEngine(store, paths.Catalogue, paths.Loans, ledger, opts...)
	borrowers := NewBorrowerIndex()
	return &LibraryManager{
		store:      store,
		ledger:     ledger,
		engine:     engine,
		reconciler: NewReconciler(engine, ledger, borrowers, opts...),
		borrowers:  borrowers,
		logger:     buildOptions(opts).logger,
	}
}

func (lm *LibraryManager) Store() RecordStore        { return lm.store }
func (lm *LibraryManager) Ledger() *Ledger           { return lm.ledger }
func (lm *LibraryManager) Engine() *Engine           { return lm.engine }
func (lm *LibraryManager) Reconciler() *Reconciler   { return lm.reconciler }
func (lm *LibraryManager) Borrowers() *BorrowerIndex { return lm.borrowers }

// ------------------ Accounts ------------------

func (lm *LibraryManager) Register(username, firstName, lastName, password string) (string, error) {
	return lm.ledger.Register(username, firstName, lastName, password)
}

// Login authenticates, brings fines up to date and caches the account view.
func (lm *LibraryManager) Login(username, password string) (*Account, error) {
	account, err := lm.ledger.Authenticate(username, password)
	if err != nil {
		return nil, err
	}
	lm.recompute()
	return lm.Account(account.AccountNumber)
}

// Account brings fines up to date and returns the fresh account view.
func (lm *LibraryManager) Account(accountNumber string) (*Account, error) {
	lm.recompute()
	account, err := lm.ledger.FindByAccountNumber(accountNumber)
	if err != nil {
		return nil, err
	}
	lm.borrowers.Put(account)
	return account, nil
}

// ListAccounts returns every account after bringing fines up to date.
func (lm *LibraryManager) ListAccounts() []*Account {
	lm.recompute()
	accounts := lm.ledger.Accounts()
	lm.borrowers.Reset(accounts)
	return accounts
}

// AccountsWithFines returns the accounts with an outstanding fine.
func (lm *LibraryManager) AccountsWithFines() []*Account {
	var fined []*Account
	for _, a := range lm.ListAccounts() {
		if a.HasFine() {
			fined = append(fined, a)
		}
	}
	return fined
}

// DeleteAccount removes an account from the ledger and the borrower index.
func (lm *LibraryManager) DeleteAccount(accountNumber string) error {
	if err := lm.ledger.Delete(accountNumber); err != nil {
		return err
	}
	lm.borrowers.Remove(accountNumber)
	return nil
}

// recompute runs the fine pass; a failure is logged so that account state can
// still be shown from what is stored.
func (lm *LibraryManager) recompute() {
	if _, err := lm.reconciler.RecomputeAll(); err != nil {
		lm.logger.Warn("fine recompute failed", "error", err)
	}
}

// ------------------ Circulation ------------------

// Borrow refuses while the account owes a fine, then defers to the engine.
func (lm *LibraryManager) Borrow(accountNumber, titleFragment string) (LoanRecord, error) {
	account, err := lm.Account(accountNumber)
	if err != nil {
		return LoanRecord{}, err
	}
	if account.HasFine() {
		return LoanRecord{}, fmt.Errorf("account %s owes %s: %w", account.AccountNumber, account.Fine.StringFixed(2), ErrFineOutstanding)
	}
	return lm.engine.Borrow(account.AccountNumber, titleFragment)
}

func (lm *LibraryManager) Return(accountNumber, title string) error {
	return lm.engine.Return(accountNumber, title)
}

func (lm *LibraryManager) ListHeldTitles(accountNumber string) []string {
	return lm.engine.ListHeldTitles(accountNumber)
}

// ------------------ Catalogue ------------------

func (lm *LibraryManager) ListItems() []CatalogueItem { return lm.engine.Index().Items() }

func (lm *LibraryManager) Search(keyword string) []CatalogueItem { return lm.engine.Search(keyword) }

// Reconcile repairs catalogue status and held-item lists from the loan file.
func (lm *LibraryManager) Reconcile() (RepairResult, error) {
	return lm.engine.RepairConsistency()
}

// ImportResult counts what ImportLegacyBooks did.
type ImportResult struct {
	Added   int
	Skipped int
}

// ImportLegacyBooks adds every book not already catalogued. Titles already
// present are skipped; any other failure stops the import.
func (lm *LibraryManager) ImportLegacyBooks(books []LegacyBook) (ImportResult, error) {
	var res ImportResult
	for _, b := range books {
		err := lm.engine.AddItem(b.CatalogueItem())
		switch {
		case errors.Is(err, ErrDuplicateTitle):
			lm.logger.Debug("legacy book already catalogued", "title", b.Title)
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("import %q: %w", b.Title, err)
		default:
			res.Added++
		}
	}
	return res, nil
}

// ------------------ Utilities ------------------

// PrettyItem formats a catalogue item for lists.
func PrettyItem(i CatalogueItem) string {
	return fmt.Sprintf("%-40s %-25s %-12s %-6s %s", truncate(i.Title, 40), truncate(i.Author, 25), i.Type, i.Year, i.Status)
}

// PrettyAccount formats an account for lists.
func PrettyAccount(a *Account) string {
	return fmt.Sprintf("%-14s %-20s %-25s %8s  %s", a.AccountNumber, a.Username, truncate(a.Name(), 25), a.Fine.StringFixed(2), strings.Join(a.HeldItems, "; "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
