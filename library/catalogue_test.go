package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestAddItem(t *testing.T) {
	mgr, _ := newManager(t)
	e := mgr.Engine()

	require.NoError(t, e.AddItem(CatalogueItem{Title: " Dune ", Author: "Frank Herbert", Type: "Book", Status: StatusUnavailable}))
	assert.ErrorIs(t, e.AddItem(CatalogueItem{Title: "DUNE"}), ErrDuplicateTitle)
	assert.ErrorIs(t, e.AddItem(CatalogueItem{Title: "  "}), ErrInvalidInput)

	item, ok := e.Index().Lookup("dune")
	require.True(t, ok)
	assert.Equal(t, "Dune", item.Title)
	assert.Equal(t, "Frank Herbert", item.Author)
	assert.True(t, item.Available(), "new items always start available")
}

func TestUpdateItem(t *testing.T) {
	mgr, _ := newLending(t, "Dune", "Emma")
	e := mgr.Engine()

	require.NoError(t, e.UpdateItem("dune", ItemUpdate{Author: strPtr("Frank Herbert"), Year: strPtr("1966")}))
	item, _ := e.Index().Lookup("Dune")
	assert.Equal(t, "Frank Herbert", item.Author)
	assert.Equal(t, "1966", item.Year)

	assert.ErrorIs(t, e.UpdateItem("Dune", ItemUpdate{Title: strPtr("emma")}), ErrDuplicateTitle)
	assert.ErrorIs(t, e.UpdateItem("Dune", ItemUpdate{Title: strPtr(" ")}), ErrInvalidInput)
	assert.ErrorIs(t, e.UpdateItem("Missing", ItemUpdate{}), ErrNotFound)

	require.NoError(t, e.UpdateItem("Dune", ItemUpdate{Title: strPtr("Dune (1965)")}))
	_, ok := e.Index().Lookup("Dune (1965)")
	assert.True(t, ok)

	_, err := e.Borrow(ann, "Emma")
	require.NoError(t, err)
	assert.ErrorIs(t, e.UpdateItem("Emma", ItemUpdate{Title: strPtr("Emma!")}), ErrItemOnLoan)
	assert.NoError(t, e.UpdateItem("Emma", ItemUpdate{Category: strPtr("Classics")}))
}

func TestRemoveItem(t *testing.T) {
	mgr, _ := newLending(t, "Dune", "Emma")
	e := mgr.Engine()
	_, err := e.Borrow(ann, "Emma")
	require.NoError(t, err)

	assert.ErrorIs(t, e.RemoveItem("Emma"), ErrItemOnLoan)
	assert.ErrorIs(t, e.RemoveItem("Beloved"), ErrNotFound)
	require.NoError(t, e.RemoveItem("DUNE"))

	assert.Equal(t, 1, e.Index().Len())
}

func TestReconcileRepairsPartialCommits(t *testing.T) {
	mgr, paths := newLending(t)
	writeTable(t, paths.Catalogue, catalogueHeader+
		"Dune,Fiction,English,1965,1,Herbert,Book,,unavailable\n"+
		"Emma,Fiction,English,1815,2,Austen,Book,,available\n"+
		"Beloved,Fiction,English,1987,3,Morrison,Book,,Available\n")
	writeTable(t, paths.Loans, loanHeader+
		"Emma,"+ann+","+daysAgo(2)+","+daysAgo(-19)+",2,Book\n")
	writeTable(t, paths.Accounts, accountHeader+
		ann+",Ann,Lee,ann,[],0,\n"+
		ben+",Ben,Ray,ben,\"[\"\"Dune\"\"]\",0,\n")

	res, err := mgr.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, RepairResult{ItemsFixed: 2, AccountsFixed: 2}, res)

	ix := mgr.Engine().Index()
	dune, _ := ix.Lookup("Dune")
	emma, _ := ix.Lookup("Emma")
	assert.True(t, dune.Available())
	assert.False(t, emma.Available())

	a, err := mgr.Ledger().FindByAccountNumber(ann)
	require.NoError(t, err)
	assert.Equal(t, []string{"Emma"}, a.HeldItems)
	b, err := mgr.Ledger().FindByAccountNumber(ben)
	require.NoError(t, err)
	assert.Empty(t, b.HeldItems)

	res, err = mgr.Reconcile()
	require.NoError(t, err)
	assert.Zero(t, res)
}
