package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sola-lending/config"
	"sola-lending/library"
	"sola-lending/library/credential"
)

func main() {
	var dbPath, dataDir string
	cmd := &cobra.Command{
		Use:          "import_catalogue",
		Short:        "Import the books of a SQLite library database into the catalogue file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			logger := config.NewLogger(cfg, os.Stderr)

			db, err := library.OpenLegacyDatabase(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			books, err := db.Books()
			if err != nil {
				return err
			}
			fmt.Printf("Importing %d book(s) from %s into %s...\n", len(books), dbPath, cfg.Paths().Catalogue)

			mgr, err := library.NewLibraryManager(cfg.Paths(), credential.NewHasher(cfg.BcryptCost), library.WithLogger(logger))
			if err != nil {
				return err
			}
			res, err := mgr.ImportLegacyBooks(books)
			fmt.Printf("\nImport complete!\n")
			fmt.Printf("Added: %d\n", res.Added)
			fmt.Printf("Already catalogued: %d\n", res.Skipped)
			if err != nil {
				return err
			}

			if res.Added > 0 {
				fmt.Printf("\n%-50s %-30s\n", "Title", "Author")
				fmt.Println(strings.Repeat("-", 81))
				for _, item := range mgr.ListItems() {
					fmt.Printf("%-50s %-30s\n", truncateString(item.Title, 50), truncateString(item.Author, 30))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "library.db", "SQLite database to read")
	cmd.Flags().StringVar(&dataDir, "data-dir", ".", "directory holding the catalogue file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
