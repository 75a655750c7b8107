package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sola-lending/library"
)

// adminCmd groups the catalogue and account maintenance commands. Every
// subcommand except hash-password asks for the administrator password.
func (a *app) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Catalogue and account administration",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A subcommand hook replaces the root one, so run it here first.
			if err := a.setup(cmd, args); err != nil {
				return err
			}
			if cmd.Name() == "hash-password" {
				return nil
			}
			return a.authenticateAdmin()
		},
	}
	cmd.AddCommand(
		a.addItemCmd(),
		a.updateItemCmd(),
		a.removeItemCmd(),
		a.listAccountsCmd(),
		a.deleteAccountCmd(),
		a.cleanupLoansCmd(),
		a.reconcileCmd(),
		a.hashPasswordCmd(),
	)
	return cmd
}

func (a *app) authenticateAdmin() error {
	if a.cfg.AdminPasswordHash == "" {
		return fmt.Errorf("SOLA_ADMIN_PASSWORD_HASH is not set; create one with 'sola admin hash-password'")
	}
	password, err := a.readPassword("Admin password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := a.hasher.Verify(a.cfg.AdminPasswordHash, password); err != nil {
		a.logger.Warn("admin authentication failed", "error", err)
		return library.ErrInvalidCredentials
	}
	return nil
}

// itemFlags binds one flag per catalogue field.
type itemFlags struct {
	title, category, language, year, stdNo, author, itemType, audioFormat string
}

func (f *itemFlags) bind(cmd *cobra.Command, titleFlag string) {
	cmd.Flags().StringVar(&f.title, titleFlag, "", "title")
	cmd.Flags().StringVar(&f.category, "category", "", "category")
	cmd.Flags().StringVar(&f.language, "language", "", "language")
	cmd.Flags().StringVar(&f.year, "year", "", "year published")
	cmd.Flags().StringVar(&f.stdNo, "std-no", "", "ISBN or other standard number")
	cmd.Flags().StringVar(&f.author, "author", "", "author")
	cmd.Flags().StringVar(&f.itemType, "type", "Book", "item type")
	cmd.Flags().StringVar(&f.audioFormat, "audio-format", "", "audio format for audio items")
}

func (a *app) addItemCmd() *cobra.Command {
	var f itemFlags
	cmd := &cobra.Command{
		Use:   "add-item",
		Short: "Add an item to the catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(f.title) == "" {
				title, err := a.readLine("Title: ")
				if err != nil {
					return err
				}
				f.title = title
			}
			err := a.mgr.Engine().AddItem(library.CatalogueItem{
				Title:       f.title,
				Category:    f.category,
				Language:    f.language,
				Year:        f.year,
				StdNo:       f.stdNo,
				Author:      f.author,
				Type:        f.itemType,
				AudioFormat: f.audioFormat,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added '%s'\n", strings.TrimSpace(f.title))
			return nil
		},
	}
	f.bind(cmd, "title")
	return cmd
}

func (a *app) updateItemCmd() *cobra.Command {
	var f itemFlags
	cmd := &cobra.Command{
		Use:   "update-item <title>",
		Short: "Change catalogue fields of an item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := func(name string, v *string) *string {
				if cmd.Flags().Changed(name) {
					return v
				}
				return nil
			}
			u := library.ItemUpdate{
				Title:       changed("new-title", &f.title),
				Category:    changed("category", &f.category),
				Language:    changed("language", &f.language),
				Year:        changed("year", &f.year),
				StdNo:       changed("std-no", &f.stdNo),
				Author:      changed("author", &f.author),
				Type:        changed("type", &f.itemType),
				AudioFormat: changed("audio-format", &f.audioFormat),
			}
			title := strings.Join(args, " ")
			if err := a.mgr.Engine().UpdateItem(title, u); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated '%s'\n", title)
			return nil
		},
	}
	f.bind(cmd, "new-title")
	return cmd
}

func (a *app) removeItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-item <title>",
		Short: "Remove an item that is not on loan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			if err := a.mgr.Engine().RemoveItem(title); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed '%s'\n", title)
			return nil
		},
	}
}

func (a *app) listAccountsCmd() *cobra.Command {
	var finedOnly bool
	cmd := &cobra.Command{
		Use:   "list-accounts",
		Short: "List borrower accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var accounts []*library.Account
			if finedOnly {
				accounts = a.mgr.AccountsWithFines()
			} else {
				accounts = a.mgr.ListAccounts()
			}
			if len(accounts) == 0 {
				fmt.Fprintln(a.out, "No accounts.")
				return nil
			}
			fmt.Fprintf(a.out, "%-14s %-20s %-25s %8s  %s\n", "Account", "Username", "Name", "Fine", "Held items")
			fmt.Fprintln(a.out, strings.Repeat("-", 100))
			for _, acct := range accounts {
				fmt.Fprintln(a.out, library.PrettyAccount(acct))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&finedOnly, "fines", false, "only accounts with an outstanding fine")
	return cmd
}

func (a *app) deleteAccountCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-account <account>",
		Short: "Delete a borrower account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := a.mgr.Account(args[0])
			if err != nil {
				return err
			}
			if held := a.mgr.ListHeldTitles(acct.AccountNumber); len(held) > 0 {
				fmt.Fprintf(a.out, "Warning: %s still holds %s\n", acct.Username, strings.Join(held, "; "))
			}
			if !yes {
				answer, err := a.readLine(fmt.Sprintf("Delete account %s (%s)? [y/N]: ", acct.AccountNumber, acct.Username))
				if err != nil {
					return err
				}
				if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
					fmt.Fprintln(a.out, "Cancelled.")
					return nil
				}
			}
			if err := a.mgr.DeleteAccount(acct.AccountNumber); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted account %s\n", acct.AccountNumber)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *app) cleanupLoansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-loans",
		Short: "Drop duplicate loan rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.mgr.Engine().CleanupLoans()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %d duplicate loan(s)\n", n)
			return nil
		},
	}
}

func (a *app) reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair item status and held-item lists from the loan file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.mgr.Reconcile()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Fixed %d item(s) and %d account(s)\n", res.ItemsFixed, res.AccountsFixed)
			return nil
		},
	}
}

func (a *app) hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a hash for SOLA_ADMIN_PASSWORD_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := a.readNewPassword("Admin password: ")
			if err != nil {
				return err
			}
			hash, err := a.hasher.Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, hash)
			return nil
		},
	}
}
