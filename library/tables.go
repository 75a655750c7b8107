package library

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sola-lending/library/recordstore"
)

// Column names as they appear in the flat files.
const (
	colTitle       = "title"
	colCategory    = "category"
	colLanguage    = "language"
	colYear        = "year published"
	colStdNo       = "std_no"
	colAuthor      = "author"
	colType        = "type"
	colAudioFormat = "audio format"
	colStatus      = "status"

	colAccountNumber = "account number"
	colDateBorrowed  = "date borrowed"
	colDateDue       = "date due"
	colLoanStdNo     = "stdno"

	colFirstName      = "first name"
	colLastName       = "last name"
	colUsername       = "username"
	colRentedItems    = "rented items"
	colFines          = "fines"
	colHashedPassword = "hashedpassword"
)

// dateLayout is the DD/MM/YYYY form loan dates are stored in.
const dateLayout = "02/01/2006"

var catalogueSchema = recordstore.Schema{
	{Name: colTitle},
	{Name: colCategory},
	{Name: colLanguage},
	{Name: colYear},
	{Name: colStdNo, Kind: recordstore.Identifier},
	{Name: colAuthor},
	{Name: colType},
	{Name: colAudioFormat},
	{Name: colStatus, Default: StatusAvailable},
}

var loanSchema = recordstore.Schema{
	{Name: colTitle},
	{Name: colAccountNumber, Kind: recordstore.Identifier},
	{Name: colDateBorrowed},
	{Name: colDateDue},
	{Name: colLoanStdNo, Kind: recordstore.Identifier},
	{Name: colType},
}

var accountSchema = recordstore.Schema{
	{Name: colAccountNumber, Kind: recordstore.Identifier},
	{Name: colFirstName},
	{Name: colLastName},
	{Name: colUsername},
	{Name: colRentedItems, Kind: recordstore.List},
	{Name: colFines, Kind: recordstore.Number},
	{Name: colHashedPassword},
}

func itemFromRecord(r recordstore.Record) CatalogueItem {
	return CatalogueItem{
		Title:       r.Text(colTitle),
		Category:    r.Text(colCategory),
		Language:    r.Text(colLanguage),
		Year:        r.Text(colYear),
		StdNo:       r.Text(colStdNo),
		Author:      r.Text(colAuthor),
		Type:        r.Text(colType),
		AudioFormat: r.Text(colAudioFormat),
		Status:      itemStatus(r),
	}
}

func itemStatus(r recordstore.Record) string {
	status := strings.ToLower(r.Text(colStatus))
	if status == "" {
		return StatusAvailable
	}
	return status
}

func itemRecord(i CatalogueItem) recordstore.Record {
	return recordstore.Record{
		colTitle:       strings.TrimSpace(i.Title),
		colCategory:    strings.TrimSpace(i.Category),
		colLanguage:    strings.TrimSpace(i.Language),
		colYear:        strings.TrimSpace(i.Year),
		colStdNo:       strings.TrimSpace(i.StdNo),
		colAuthor:      strings.TrimSpace(i.Author),
		colType:        strings.TrimSpace(i.Type),
		colAudioFormat: strings.TrimSpace(i.AudioFormat),
		colStatus:      StatusAvailable,
	}
}

func loanFromRecord(r recordstore.Record) LoanRecord {
	return LoanRecord{
		Title:         r.Text(colTitle),
		AccountNumber: r.Text(colAccountNumber),
		Borrowed:      parseLoanDate(r.Text(colDateBorrowed)),
		Due:           parseLoanDate(r.Text(colDateDue)),
		StdNo:         r.Text(colLoanStdNo),
		Type:          r.Text(colType),
	}
}

func loanRecord(l LoanRecord) recordstore.Record {
	return recordstore.Record{
		colTitle:         l.Title,
		colAccountNumber: l.AccountNumber,
		colDateBorrowed:  l.Borrowed.Format(dateLayout),
		colDateDue:       l.Due.Format(dateLayout),
		colLoanStdNo:     l.StdNo,
		colType:          l.Type,
	}
}

// parseLoanDate accepts DD/MM/YYYY and ISO dates, local midnight. It returns
// the zero time for anything else.
func parseLoanDate(s string) time.Time {
	for _, layout := range []string{dateLayout, time.DateOnly} {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func accountFromRecord(r recordstore.Record) *Account {
	fine := r.Decimal(colFines)
	if fine.IsNegative() {
		fine = decimal.Zero
	}
	return &Account{
		AccountNumber:  r.Text(colAccountNumber),
		FirstName:      r.Text(colFirstName),
		LastName:       r.Text(colLastName),
		Username:       r.Text(colUsername),
		HeldItems:      r.List(colRentedItems),
		Fine:           fine,
		CredentialHash: r.Text(colHashedPassword),
	}
}

func accountRecord(a *Account) recordstore.Record {
	r := recordstore.Record{
		colAccountNumber:  a.AccountNumber,
		colFirstName:      a.FirstName,
		colLastName:       a.LastName,
		colUsername:       a.Username,
		colHashedPassword: a.CredentialHash,
	}
	r.SetList(colRentedItems, a.HeldItems)
	setFine(r, a.Fine)
	return r
}

func setFine(r recordstore.Record, fine decimal.Decimal) {
	r.Set(colFines, fine.StringFixed(2))
}

func sameTitle(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func sameAccount(r recordstore.Record, accountNumber string) bool {
	return r.Text(colAccountNumber) == strings.TrimSpace(accountNumber)
}
