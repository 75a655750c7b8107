package library

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// LegacyBook is one row of the books table of a SQLite library database.
type LegacyBook struct {
	ID     int64
	Title  string
	Author string
}

// LegacyDatabase reads books out of a SQLite library database so they can be
// imported into the catalogue file. It never writes to the database.
type LegacyDatabase struct {
	db *sql.DB
}

// OpenLegacyDatabase opens the SQLite database at dbPath read-only.
func OpenLegacyDatabase(dbPath string) (*LegacyDatabase, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open legacy db: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &LegacyDatabase{db: db}, nil
}

func (d *LegacyDatabase) Close() error { return d.db.Close() }

// Books returns every book with a non-blank title, in id order.
func (d *LegacyDatabase) Books() ([]LegacyBook, error) {
	rows, err := d.db.Query(`SELECT id,title,COALESCE(author,'') FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []LegacyBook
	for rows.Next() {
		var b LegacyBook
		if err := rows.Scan(&b.ID, &b.Title, &b.Author); err != nil {
			return nil, err
		}
		b.Title = strings.TrimSpace(b.Title)
		b.Author = strings.TrimSpace(b.Author)
		if b.Title == "" {
			continue
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// CatalogueItem maps a legacy book onto an available catalogue item.
func (b LegacyBook) CatalogueItem() CatalogueItem {
	return CatalogueItem{
		Title:  b.Title,
		Author: b.Author,
		Type:   "Book",
		Status: StatusAvailable,
	}
}
