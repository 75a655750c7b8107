package library

import (
	"fmt"
	"slices"
	"strings"

	"sola-lending/library/recordstore"
)

// Search returns the items whose title, author or category contains keyword,
// ignoring case. An empty keyword matches everything.
func (e *Engine) Search(keyword string) []CatalogueItem {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	var items []CatalogueItem
	for _, item := range e.Catalogue() {
		if needle == "" ||
			strings.Contains(strings.ToLower(item.Title), needle) ||
			strings.Contains(strings.ToLower(item.Author), needle) ||
			strings.Contains(strings.ToLower(item.Category), needle) {
			items = append(items, item)
		}
	}
	return items
}

// AddItem adds an available item to the catalogue.
func (e *Engine) AddItem(item CatalogueItem) error {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return fmt.Errorf("title is required: %w", ErrInvalidInput)
	}
	catalogue := e.loadCatalogue()
	if catalogue.Find(func(r recordstore.Record) bool { return sameTitle(r.Text(colTitle), title) }) >= 0 {
		return fmt.Errorf("%q: %w", title, ErrDuplicateTitle)
	}
	catalogue.Append(itemRecord(item))
	if err := e.saveCatalogue(catalogue); err != nil {
		return err
	}
	e.opts.logger.Info("item added", "title", title)
	return nil
}

// ItemUpdate lists the catalogue fields to change; nil fields are left alone.
// Status is owned by borrow and return and cannot be set here.
type ItemUpdate struct {
	Title       *string
	Category    *string
	Language    *string
	Year        *string
	StdNo       *string
	Author      *string
	Type        *string
	AudioFormat *string
}

// UpdateItem changes the fields of the item titled title. Renaming an item on
// loan is refused so loan records keep pointing at it.
func (e *Engine) UpdateItem(title string, u ItemUpdate) error {
	catalogue := e.loadCatalogue()
	matches := func(r recordstore.Record) bool { return sameTitle(r.Text(colTitle), title) }
	if catalogue.Find(matches) < 0 {
		return fmt.Errorf("%q: %w", title, ErrNotFound)
	}

	if u.Title != nil && !sameTitle(*u.Title, title) {
		newTitle := strings.TrimSpace(*u.Title)
		if newTitle == "" {
			return fmt.Errorf("title is required: %w", ErrInvalidInput)
		}
		if catalogue.Find(func(r recordstore.Record) bool { return sameTitle(r.Text(colTitle), newTitle) }) >= 0 {
			return fmt.Errorf("%q: %w", newTitle, ErrDuplicateTitle)
		}
		if e.onLoan(title) {
			return fmt.Errorf("rename %q: %w", title, ErrItemOnLoan)
		}
	}

	fields := []struct {
		col   string
		value *string
	}{
		{colCategory, u.Category},
		{colLanguage, u.Language},
		{colYear, u.Year},
		{colStdNo, u.StdNo},
		{colAuthor, u.Author},
		{colType, u.Type},
		{colAudioFormat, u.AudioFormat},
		{colTitle, u.Title},
	}
	for _, r := range catalogue.Records {
		if !matches(r) {
			continue
		}
		for _, f := range fields {
			if f.value != nil {
				r.Set(f.col, strings.TrimSpace(*f.value))
			}
		}
	}
	if err := e.saveCatalogue(catalogue); err != nil {
		return err
	}
	e.opts.logger.Info("item updated", "title", title)
	return nil
}

// RemoveItem deletes the item titled title unless a loan references it.
func (e *Engine) RemoveItem(title string) error {
	catalogue := e.loadCatalogue()
	if catalogue.Find(func(r recordstore.Record) bool { return sameTitle(r.Text(colTitle), title) }) < 0 {
		return fmt.Errorf("%q: %w", title, ErrNotFound)
	}
	if e.onLoan(title) {
		return fmt.Errorf("remove %q: %w", title, ErrItemOnLoan)
	}
	catalogue.Filter(func(r recordstore.Record) bool { return !sameTitle(r.Text(colTitle), title) })
	if err := e.saveCatalogue(catalogue); err != nil {
		return err
	}
	e.opts.logger.Info("item removed", "title", title)
	return nil
}

func (e *Engine) onLoan(title string) bool {
	return e.loadLoans().Find(func(r recordstore.Record) bool { return sameTitle(r.Text(colTitle), title) }) >= 0
}

// RepairResult counts what RepairConsistency changed.
type RepairResult struct {
	ItemsFixed    int
	AccountsFixed int
}

// RepairConsistency rederives catalogue status and every held-item list from
// the loan file, which is authoritative. It is the recovery pass for a
// borrow or return that failed part way.
func (e *Engine) RepairConsistency() (RepairResult, error) {
	var res RepairResult
	loans := e.loadLoans()
	onLoan := make(map[string]bool, loans.Len())
	for _, r := range loans.Records {
		onLoan[titleKey(r.Text(colTitle))] = true
	}

	catalogue := e.loadCatalogue()
	for _, r := range catalogue.Records {
		want := StatusAvailable
		if onLoan[titleKey(r.Text(colTitle))] {
			want = StatusUnavailable
		}
		if itemStatus(r) != want {
			r.Set(colStatus, want)
			res.ItemsFixed++
		}
	}
	if res.ItemsFixed > 0 {
		if err := e.saveCatalogue(catalogue); err != nil {
			return res, err
		}
	}

	for _, a := range e.ledger.Accounts() {
		held := heldTitles(loans, a.AccountNumber)
		if slices.Equal(held, a.HeldItems) {
			continue
		}
		if err := e.ledger.UpdateHeldItems(a.AccountNumber, held); err != nil {
			return res, err
		}
		res.AccountsFixed++
	}

	if res.ItemsFixed > 0 || res.AccountsFixed > 0 {
		e.opts.logger.Info("lending state repaired", "items", res.ItemsFixed, "accounts", res.AccountsFixed)
	}
	return res, nil
}
