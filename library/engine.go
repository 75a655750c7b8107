package library

import (
	"fmt"
	"strings"

	"sola-lending/library/recordstore"
)

const (
	// MaxLoans is the number of active loans an account may hold.
	MaxLoans = 8
	// LoanDays is the loan period.
	LoanDays = 21
)

// Engine owns catalogue availability and active loans. A title moves from
// available to unavailable on borrow and back on return; there is no
// reserved state.
//
// Borrow and return touch three files: catalogue, loans and accounts. They
// are committed one after the other without rollback, so a failure part way
// leaves an inconsistency that RepairConsistency can undo.
type Engine struct {
	store         RecordStore
	cataloguePath string
	loanPath      string
	ledger        *Ledger
	opts          options
}

// NewEngine returns a lending engine over the catalogue and loan files.
func NewEngine(store RecordStore, cataloguePath, loanPath string, ledger *Ledger, opts ...Option) *Engine {
	return &Engine{
		store:         store,
		cataloguePath: cataloguePath,
		loanPath:      loanPath,
		ledger:        ledger,
		opts:          buildOptions(opts),
	}
}

func (e *Engine) loadCatalogue() *recordstore.RecordSet {
	return e.store.Load(e.cataloguePath, catalogueSchema)
}

func (e *Engine) loadLoans() *recordstore.RecordSet {
	return e.store.Load(e.loanPath, loanSchema)
}

func (e *Engine) saveCatalogue(rs *recordstore.RecordSet) error {
	if err := e.store.Save(e.cataloguePath, rs); err != nil {
		return fmt.Errorf("commit catalogue: %w", err)
	}
	return nil
}

func (e *Engine) saveLoans(rs *recordstore.RecordSet) error {
	if err := e.store.Save(e.loanPath, rs); err != nil {
		return fmt.Errorf("commit loans: %w", err)
	}
	return nil
}

// Catalogue returns every catalogue item in file order.
func (e *Engine) Catalogue() []CatalogueItem {
	rs := e.loadCatalogue()
	items := make([]CatalogueItem, 0, rs.Len())
	for _, r := range rs.Records {
		items = append(items, itemFromRecord(r))
	}
	return items
}

// Index builds an ordered title index over the current catalogue.
func (e *Engine) Index() *CatalogueIndex {
	return NewCatalogueIndex(e.Catalogue())
}

// Loans returns every active loan in file order.
func (e *Engine) Loans() []LoanRecord {
	rs := e.loadLoans()
	loans := make([]LoanRecord, 0, rs.Len())
	for _, r := range rs.Records {
		loans = append(loans, loanFromRecord(r))
	}
	return loans
}

func availableMatches(rs *recordstore.RecordSet, fragment string) []int {
	needle := strings.ToLower(strings.TrimSpace(fragment))
	var idx []int
	for i, r := range rs.Records {
		if itemStatus(r) == StatusAvailable && strings.Contains(strings.ToLower(r.Text(colTitle)), needle) {
			idx = append(idx, i)
		}
	}
	return idx
}

// ResolveTitle returns the available items whose title contains fragment,
// ignoring case. Callers use it to let a person pick one exact title.
func (e *Engine) ResolveTitle(fragment string) []CatalogueItem {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}
	rs := e.loadCatalogue()
	var items []CatalogueItem
	for _, i := range availableMatches(rs, fragment) {
		items = append(items, itemFromRecord(rs.Records[i]))
	}
	return items
}

// Borrow lends the available item matching titleFragment to an account.
//
// A fragment matching several available items resolves to the one whose
// title equals it exactly; otherwise Borrow fails with an
// *AmbiguousTitleError listing the candidates.
func (e *Engine) Borrow(accountNumber, titleFragment string) (LoanRecord, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	titleFragment = strings.TrimSpace(titleFragment)
	if titleFragment == "" {
		return LoanRecord{}, fmt.Errorf("title cannot be empty: %w", ErrInvalidInput)
	}
	account, err := e.ledger.FindByAccountNumber(accountNumber)
	if err != nil {
		return LoanRecord{}, err
	}

	loans := e.loadLoans()
	active := 0
	for _, r := range loans.Records {
		if sameAccount(r, accountNumber) {
			active++
		}
	}
	if active >= MaxLoans {
		return LoanRecord{}, fmt.Errorf("account %s holds %d items: %w", accountNumber, active, ErrLimitReached)
	}

	catalogue := e.loadCatalogue()
	matches := availableMatches(catalogue, titleFragment)
	if len(matches) == 0 {
		return LoanRecord{}, fmt.Errorf("%q: %w", titleFragment, ErrNoMatch)
	}
	selected := matches[0]
	if len(matches) > 1 {
		selected = -1
		candidates := make([]string, 0, len(matches))
		for _, i := range matches {
			title := catalogue.Records[i].Text(colTitle)
			if selected < 0 && sameTitle(title, titleFragment) {
				selected = i
			}
			candidates = append(candidates, title)
		}
		if selected < 0 {
			return LoanRecord{}, &AmbiguousTitleError{Fragment: titleFragment, Candidates: candidates}
		}
	}

	item := itemFromRecord(catalogue.Records[selected])
	now := e.opts.now()
	loan := LoanRecord{
		Title:         item.Title,
		AccountNumber: accountNumber,
		Borrowed:      now,
		Due:           now.AddDate(0, 0, LoanDays),
		StdNo:         item.StdNo,
		Type:          item.Type,
	}

	catalogue.Records[selected].Set(colStatus, StatusUnavailable)
	if err := e.saveCatalogue(catalogue); err != nil {
		return LoanRecord{}, fmt.Errorf("borrow %q: %w", item.Title, err)
	}
	loans.Append(loanRecord(loan))
	if err := e.saveLoans(loans); err != nil {
		e.opts.logger.Error("borrow left catalogue and loans out of step", "account", accountNumber, "title", item.Title, "error", err)
		return LoanRecord{}, fmt.Errorf("borrow %q: %w", item.Title, err)
	}
	if !containsTitle(account.HeldItems, item.Title) {
		if err := e.ledger.UpdateHeldItems(accountNumber, append(account.HeldItems, item.Title)); err != nil {
			e.opts.logger.Error("borrow left held-item list out of step", "account", accountNumber, "title", item.Title, "error", err)
			return loan, fmt.Errorf("borrow %q: %w", item.Title, err)
		}
	}

	e.opts.logger.Info("item borrowed", "account", accountNumber, "title", item.Title, "due", loan.Due.Format(dateLayout))
	return loan, nil
}

// Return ends the loan of title to an account. It fails with ErrNotFound
// when no such loan exists, or ErrAlreadyAvailable when nobody has the item.
func (e *Engine) Return(accountNumber, title string) error {
	accountNumber = strings.TrimSpace(accountNumber)
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title cannot be empty: %w", ErrInvalidInput)
	}

	loans := e.loadLoans()
	removed := loans.Filter(func(r recordstore.Record) bool {
		return !(sameAccount(r, accountNumber) && sameTitle(r.Text(colTitle), title))
	})
	catalogue := e.loadCatalogue()
	if removed == 0 {
		if catalogue.Find(func(r recordstore.Record) bool {
			return sameTitle(r.Text(colTitle), title) && itemStatus(r) == StatusAvailable
		}) >= 0 {
			return fmt.Errorf("%q: %w", title, ErrAlreadyAvailable)
		}
		return fmt.Errorf("no loan of %q for account %s: %w", title, accountNumber, ErrNotFound)
	}
	if err := e.saveLoans(loans); err != nil {
		return fmt.Errorf("return %q: %w", title, err)
	}

	flipped := 0
	for _, r := range catalogue.Records {
		if sameTitle(r.Text(colTitle), title) {
			r.Set(colStatus, StatusAvailable)
			flipped++
		}
	}
	if flipped > 0 {
		if err := e.saveCatalogue(catalogue); err != nil {
			e.opts.logger.Error("return left catalogue and loans out of step", "account", accountNumber, "title", title, "error", err)
			return fmt.Errorf("return %q: %w", title, err)
		}
	}

	account, err := e.ledger.FindByAccountNumber(accountNumber)
	switch {
	case IsNotFound(err):
		e.opts.logger.Warn("returned loan belongs to an unknown account", "account", accountNumber, "title", title)
	case err == nil:
		if err := e.ledger.UpdateHeldItems(accountNumber, removeTitle(account.HeldItems, title)); err != nil {
			e.opts.logger.Error("return left held-item list out of step", "account", accountNumber, "title", title, "error", err)
			return fmt.Errorf("return %q: %w", title, err)
		}
	default:
		return err
	}

	e.opts.logger.Info("item returned", "account", accountNumber, "title", title, "loans_removed", removed)
	return nil
}

// ListHeldTitles derives the titles on loan to an account from the loan
// file: distinct ignoring case, in first-seen order.
func (e *Engine) ListHeldTitles(accountNumber string) []string {
	return heldTitles(e.loadLoans(), accountNumber)
}

func heldTitles(loans *recordstore.RecordSet, accountNumber string) []string {
	var titles []string
	for _, r := range loans.Records {
		if sameAccount(r, accountNumber) {
			titles = append(titles, r.Text(colTitle))
		}
	}
	return dedupeTitles(titles)
}

// CleanupLoans drops loan rows repeating an earlier (account, title) pair and
// returns how many were dropped.
func (e *Engine) CleanupLoans() (int, error) {
	loans := e.loadLoans()
	seen := make(map[[2]string]bool, loans.Len())
	dropped := loans.Filter(func(r recordstore.Record) bool {
		key := [2]string{r.Text(colAccountNumber), r.Text(colTitle)}
		if seen[key] {
			return false
		}
		seen[key] = true
		return true
	})
	if dropped == 0 {
		return 0, nil
	}
	if err := e.saveLoans(loans); err != nil {
		return 0, err
	}
	e.opts.logger.Info("duplicate loans removed", "count", dropped)
	return dropped, nil
}
