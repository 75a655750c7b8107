package library

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// CatalogueIndex is an ordered snapshot of the catalogue for title lookups.
// The catalogue file stays authoritative; rebuild the index after changes.
type CatalogueIndex struct {
	items []CatalogueItem
}

func titleKey(title string) string { return strings.ToLower(strings.TrimSpace(title)) }

// NewCatalogueIndex sorts items by case-insensitive title.
func NewCatalogueIndex(items []CatalogueItem) *CatalogueIndex {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b CatalogueItem) int {
		return cmp.Compare(titleKey(a.Title), titleKey(b.Title))
	})
	return &CatalogueIndex{items: sorted}
}

// Lookup finds an item by exact case-insensitive title.
func (ix *CatalogueIndex) Lookup(title string) (CatalogueItem, bool) {
	key := titleKey(title)
	i, found := slices.BinarySearchFunc(ix.items, key, func(item CatalogueItem, k string) int {
		return cmp.Compare(titleKey(item.Title), k)
	})
	if !found {
		return CatalogueItem{}, false
	}
	return ix.items[i], true
}

// Items returns the items in title order.
func (ix *CatalogueIndex) Items() []CatalogueItem { return slices.Clone(ix.items) }

// Len returns the number of indexed items.
func (ix *CatalogueIndex) Len() int { return len(ix.items) }

// BorrowerIndex caches account views by account number for the presentation
// layer. It is refreshed from the ledger, never written back.
type BorrowerIndex struct {
	accounts map[string]*Account
}

// NewBorrowerIndex returns an empty index.
func NewBorrowerIndex() *BorrowerIndex {
	return &BorrowerIndex{accounts: make(map[string]*Account)}
}

// Reset replaces the cached views with accounts.
func (bx *BorrowerIndex) Reset(accounts []*Account) {
	clear(bx.accounts)
	for _, a := range accounts {
		bx.Put(a)
	}
}

// Put caches a, replacing any earlier view of the same account.
func (bx *BorrowerIndex) Put(a *Account) {
	bx.accounts[strings.TrimSpace(a.AccountNumber)] = a
}

// Get returns the cached view of an account.
func (bx *BorrowerIndex) Get(accountNumber string) (*Account, bool) {
	a, ok := bx.accounts[strings.TrimSpace(accountNumber)]
	return a, ok
}

// Remove drops an account and reports whether it was cached.
func (bx *BorrowerIndex) Remove(accountNumber string) bool {
	key := strings.TrimSpace(accountNumber)
	if _, ok := bx.accounts[key]; !ok {
		return false
	}
	delete(bx.accounts, key)
	return true
}

// SetFine updates the cached fine of an account if it is cached.
func (bx *BorrowerIndex) SetFine(accountNumber string, fine decimal.Decimal) {
	if a, ok := bx.Get(accountNumber); ok {
		a.Fine = fine
	}
}

// Len returns the number of cached accounts.
func (bx *BorrowerIndex) Len() int { return len(bx.accounts) }
