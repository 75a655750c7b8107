package library

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempLegacyDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE books (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT NOT NULL,
        author TEXT,
        content TEXT,
        available INTEGER NOT NULL DEFAULT 1,
        borrower_id INTEGER)`)
	require.NoError(t, err)
	for _, b := range [][2]any{{"1984", "George Orwell"}, {" Animal Farm ", nil}, {"  ", "Nobody"}, {"Dune", "Frank Herbert"}} {
		_, err = db.Exec(`INSERT INTO books(title,author,content) VALUES(?,?,'')`, b[0], b[1])
		require.NoError(t, err)
	}
	return path
}

func TestLegacyDatabaseBooks(t *testing.T) {
	db, err := OpenLegacyDatabase(tempLegacyDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	books, err := db.Books()
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, LegacyBook{ID: 2, Title: "Animal Farm", Author: ""}, books[1])
	assert.Equal(t, "Book", books[0].CatalogueItem().Type)
}

func TestOpenLegacyDatabaseMissingFile(t *testing.T) {
	_, err := OpenLegacyDatabase(filepath.Join(t.TempDir(), "absent.db"))
	assert.Error(t, err)
}

func TestImportLegacyBooksSkipsCatalogued(t *testing.T) {
	mgr, paths := newManager(t)
	seedCatalogue(t, paths.Catalogue, "dune")

	db, err := OpenLegacyDatabase(tempLegacyDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	books, err := db.Books()
	require.NoError(t, err)

	res, err := mgr.ImportLegacyBooks(books)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 2, Skipped: 1}, res)

	res, err = mgr.ImportLegacyBooks(books)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Skipped: 3}, res)
	assert.Len(t, mgr.ListItems(), 3)
}
