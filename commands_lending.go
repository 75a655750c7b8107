package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sola-lending/library"
)

func (a *app) borrowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <account> <title fragment>",
		Short: "Borrow an available item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := a.authenticateUser(args[0])
			if err != nil {
				return err
			}
			fragment := strings.Join(args[1:], " ")
			loan, err := a.mgr.Borrow(acct.AccountNumber, fragment)
			var amb *library.AmbiguousTitleError
			if errors.As(err, &amb) {
				title, pickErr := a.pickTitle(amb)
				if pickErr != nil {
					return pickErr
				}
				loan, err = a.mgr.Borrow(acct.AccountNumber, title)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Borrowed '%s', due %s\n", loan.Title, loan.Due.Format("02/01/2006"))
			return nil
		},
	}
}

// pickTitle lets the borrower choose one of the candidates of an ambiguous
// fragment.
func (a *app) pickTitle(amb *library.AmbiguousTitleError) (string, error) {
	fmt.Fprintf(a.out, "'%s' matches several available items:\n", amb.Fragment)
	for i, title := range amb.Candidates {
		fmt.Fprintf(a.out, "  %d. %s\n", i+1, title)
	}
	choice, err := a.readLine("Select item number (blank to cancel): ")
	if err != nil {
		return "", err
	}
	if choice == "" {
		return "", fmt.Errorf("borrow cancelled: %w", library.ErrAmbiguousTitle)
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(amb.Candidates) {
		return "", fmt.Errorf("invalid selection %q: %w", choice, library.ErrInvalidInput)
	}
	return amb.Candidates[n-1], nil
}

func (a *app) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <account> <title>",
		Short: "Return a borrowed item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := a.authenticateUser(args[0])
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			if err := a.mgr.Return(acct.AccountNumber, title); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Returned '%s'\n", title)
			return nil
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search the catalogue by title, author or category",
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []library.CatalogueItem
			if len(args) == 0 {
				items = a.mgr.ListItems()
			} else {
				items = a.mgr.Search(strings.Join(args, " "))
			}
			if len(items) == 0 {
				fmt.Fprintln(a.out, "No matching items.")
				return nil
			}
			fmt.Fprintf(a.out, "%-40s %-25s %-12s %-6s %s\n", "Title", "Author", "Type", "Year", "Status")
			fmt.Fprintln(a.out, strings.Repeat("-", 96))
			for _, item := range items {
				fmt.Fprintln(a.out, library.PrettyItem(item))
			}
			return nil
		},
	}
}
