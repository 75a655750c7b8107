package library

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Catalogue item status values.
const (
	StatusAvailable   = "available"
	StatusUnavailable = "unavailable"
)

// CatalogueItem is one borrowable item. Titles are unique, compared case-insensitively.
type CatalogueItem struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Language    string `json:"language"`
	Year        string `json:"year_published"`
	StdNo       string `json:"std_no"`
	Author      string `json:"author"`
	Type        string `json:"type"`
	AudioFormat string `json:"audio_format"`
	Status      string `json:"status"`
}

func (i CatalogueItem) Available() bool { return i.Status == StatusAvailable }

// LoanRecord is an active loan of one title to one account.
type LoanRecord struct {
	Title         string    `json:"title"`
	AccountNumber string    `json:"account_number"`
	Borrowed      time.Time `json:"date_borrowed"`
	Due           time.Time `json:"date_due"`
	StdNo         string    `json:"stdno"`
	Type          string    `json:"type"`
}

// Overdue reports whether the loan was due before now. Loans whose due date
// could not be parsed are never overdue.
func (l LoanRecord) Overdue(now time.Time) bool {
	return !l.Due.IsZero() && l.Due.Before(now)
}

// Account is a registered borrower.
type Account struct {
	AccountNumber  string          `json:"account_number"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Username       string          `json:"username"`
	HeldItems      []string        `json:"held_items"`
	Fine           decimal.Decimal `json:"fine"`
	CredentialHash string          `json:"-"` // never serialized
}

// Name returns the account holder's full name.
func (a *Account) Name() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// HasFine reports whether a fine is outstanding.
func (a *Account) HasFine() bool { return a.Fine.IsPositive() }
