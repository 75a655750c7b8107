package library

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ann = "202406150001"
	ben = "202406150002"
)

// newLending returns a manager with two borrowers and no fines.
func newLending(t *testing.T, titles ...string) (*LibraryManager, Paths) {
	t.Helper()
	mgr, paths := newManager(t)
	seedCatalogue(t, paths.Catalogue, titles...)
	writeTable(t, paths.Accounts, accountHeader+
		ann+",Ann,Lee,ann,[],0,\n"+
		ben+",Ben,Ray,ben,[],0,\n")
	return mgr, paths
}

func TestBorrowExactTitleAmongSeveralMatches(t *testing.T) {
	mgr, paths := newLending(t, "Dune Messiah", "Dune", "Children of Dune", "Emma")
	e := mgr.Engine()

	loan, err := e.Borrow(ann, "dune")
	require.NoError(t, err)
	assert.Equal(t, "Dune", loan.Title)
	assert.Equal(t, ann, loan.AccountNumber)
	assert.Equal(t, testNow, loan.Borrowed)
	assert.Equal(t, testNow.AddDate(0, 0, LoanDays), loan.Due)

	item, ok := e.Index().Lookup("DUNE")
	require.True(t, ok)
	assert.Equal(t, StatusUnavailable, item.Status)
	assert.Equal(t, []string{"Dune"}, e.ListHeldTitles(ann))

	acct, err := mgr.Ledger().FindByAccountNumber(ann)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, acct.HeldItems)

	due := testNow.AddDate(0, 0, LoanDays).Format("02/01/2006")
	assert.Contains(t, readTable(t, paths.Loans), "Dune,"+ann+","+testNow.Format("02/01/2006")+","+due)
}

func TestBorrowAmbiguousFragment(t *testing.T) {
	mgr, _ := newLending(t, "Dune Messiah", "Dune", "Children of Dune")
	e := mgr.Engine()
	_, err := e.Borrow(ann, "Dune")
	require.NoError(t, err)

	_, err = e.Borrow(ben, "dun")
	require.ErrorIs(t, err, ErrAmbiguousTitle)
	var amb *AmbiguousTitleError
	require.True(t, errors.As(err, &amb))
	assert.Equal(t, []string{"Dune Messiah", "Children of Dune"}, amb.Candidates)

	matches := e.ResolveTitle("dun")
	require.Len(t, matches, 2)
	loan, err := e.Borrow(ben, matches[1].Title)
	require.NoError(t, err)
	assert.Equal(t, "Children of Dune", loan.Title)
}

func TestBorrowUnavailableWritesNoLoan(t *testing.T) {
	mgr, _ := newLending(t, "Dune")
	e := mgr.Engine()
	_, err := e.Borrow(ann, "Dune")
	require.NoError(t, err)

	_, err = e.Borrow(ben, "Dune")
	assert.ErrorIs(t, err, ErrNoMatch)
	_, err = e.Borrow(ben, "Nonexistent")
	assert.ErrorIs(t, err, ErrNoMatch)
	_, err = e.Borrow(ben, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.Borrow("999", "Dune")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, e.Loans(), 1)
	assert.Empty(t, e.ListHeldTitles(ben))
}

func TestBorrowLimit(t *testing.T) {
	titles := make([]string, 0, MaxLoans+1)
	for i := 1; i <= MaxLoans+1; i++ {
		titles = append(titles, fmt.Sprintf("Volume %c", 'A'+i-1))
	}
	mgr, _ := newLending(t, titles...)
	e := mgr.Engine()

	for _, title := range titles[:MaxLoans] {
		_, err := e.Borrow(ann, title)
		require.NoError(t, err, title)
	}
	_, err := e.Borrow(ann, titles[MaxLoans])
	assert.ErrorIs(t, err, ErrLimitReached)

	item, ok := e.Index().Lookup(titles[MaxLoans])
	require.True(t, ok)
	assert.True(t, item.Available())
	assert.Len(t, e.ListHeldTitles(ann), MaxLoans)
}

func TestReturnRoundTrip(t *testing.T) {
	mgr, _ := newLending(t, "Dune", "Emma")
	e := mgr.Engine()
	_, err := e.Borrow(ann, "Dune")
	require.NoError(t, err)
	_, err = e.Borrow(ann, "Emma")
	require.NoError(t, err)

	require.NoError(t, e.Return(ann, "dune"))

	item, ok := e.Index().Lookup("Dune")
	require.True(t, ok)
	assert.True(t, item.Available())
	assert.Equal(t, []string{"Emma"}, e.ListHeldTitles(ann))
	acct, err := mgr.Ledger().FindByAccountNumber(ann)
	require.NoError(t, err)
	assert.Equal(t, []string{"Emma"}, acct.HeldItems)

	assert.ErrorIs(t, e.Return(ann, "Dune"), ErrAlreadyAvailable)
	assert.ErrorIs(t, e.Return(ben, "Emma"), ErrNotFound, "someone else's loan")
	assert.ErrorIs(t, e.Return(ann, ""), ErrInvalidInput)
}

func TestReturnForUnknownAccountStillFreesItem(t *testing.T) {
	mgr, paths := newLending(t, "Dune")
	writeTable(t, paths.Catalogue, catalogueHeader+"Dune,Fiction,English,1965,9780441013593,Herbert,Book,,unavailable\n")
	writeTable(t, paths.Loans, loanHeader+"Dune,202001010000,"+daysAgo(3)+","+daysAgo(-18)+",9780441013593,Book\n")

	require.NoError(t, mgr.Engine().Return("202001010000", "Dune"))
	item, ok := mgr.Engine().Index().Lookup("Dune")
	require.True(t, ok)
	assert.True(t, item.Available())
}

func TestListHeldTitlesDerivesFromLoans(t *testing.T) {
	mgr, paths := newLending(t)
	writeTable(t, paths.Loans, loanHeader+
		"Dune,"+ann+","+daysAgo(3)+","+daysAgo(-18)+",1,Book\n"+
		"Emma,"+ben+","+daysAgo(3)+","+daysAgo(-18)+",2,Book\n"+
		"dune,"+ann+","+daysAgo(2)+","+daysAgo(-19)+",1,Book\n"+
		"Beloved,"+ann+","+daysAgo(1)+","+daysAgo(-20)+",3,Book\n")

	assert.Equal(t, []string{"Dune", "Beloved"}, mgr.Engine().ListHeldTitles(ann))
	assert.Empty(t, mgr.Engine().ListHeldTitles("404"))
}

func TestCleanupLoansDropsExactDuplicates(t *testing.T) {
	mgr, paths := newLending(t)
	row := "Dune," + ann + "," + daysAgo(3) + "," + daysAgo(-18) + ",1,Book\n"
	writeTable(t, paths.Loans, loanHeader+row+row+
		"Dune,"+ben+","+daysAgo(3)+","+daysAgo(-18)+",1,Book\n"+row)

	dropped, err := mgr.Engine().CleanupLoans()
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	assert.Len(t, mgr.Engine().Loans(), 2)

	dropped, err = mgr.Engine().CleanupLoans()
	require.NoError(t, err)
	assert.Zero(t, dropped)
}

func TestLoanDatesAcceptIsoForm(t *testing.T) {
	mgr, paths := newLending(t)
	writeTable(t, paths.Loans, loanHeader+
		"Dune,"+ann+",2024-05-01,2024-05-22,1,Book\n"+
		"Emma,"+ann+",someday,never,2,Book\n")

	loans := mgr.Engine().Loans()
	require.Len(t, loans, 2)
	assert.Equal(t, 22, loans[0].Due.Day())
	assert.True(t, loans[0].Overdue(testNow))
	assert.True(t, loans[1].Due.IsZero())
	assert.False(t, loans[1].Overdue(testNow))
}

func TestSearchMatchesTitleAuthorAndCategory(t *testing.T) {
	mgr, paths := newManager(t)
	writeTable(t, paths.Catalogue, catalogueHeader+
		"Dune,Science Fiction,English,1965,1,Frank Herbert,Book,,available\n"+
		"Emma,Romance,English,1815,2,Jane Austen,Book,,unavailable\n"+
		"Dracula,Horror,English,1897,3,Bram Stoker,Audiobook,MP3,available\n")

	titles := func(items []CatalogueItem) string {
		var out []string
		for _, i := range items {
			out = append(out, i.Title)
		}
		return strings.Join(out, ",")
	}
	assert.Equal(t, "Dune", titles(mgr.Search("herbert")))
	assert.Equal(t, "Emma", titles(mgr.Search("ROMANCE")))
	assert.Equal(t, "Dune,Dracula", titles(mgr.Search("d")))
	assert.Len(t, mgr.Search(""), 3)
}
