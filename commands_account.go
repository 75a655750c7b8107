package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sola-lending/library"
	"sola-lending/library/credential"
)

func (a *app) registerCmd() *cobra.Command {
	var username, firstName, lastName string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a borrower account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			for _, f := range []struct {
				value  *string
				prompt string
			}{
				{&username, "Username: "},
				{&firstName, "First name: "},
				{&lastName, "Last name: "},
			} {
				if strings.TrimSpace(*f.value) != "" {
					continue
				}
				if *f.value, err = a.readLine(f.prompt); err != nil {
					return err
				}
			}
			password, err := a.readNewPassword(fmt.Sprintf("Enter password for %s: ", username))
			if err != nil {
				return err
			}
			acct, err := a.mgr.Register(username, firstName, lastName, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered account %s for %s\n", acct, library.NormalizeUsername(username))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username (prompted when empty)")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name (prompted when empty)")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name (prompted when empty)")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in and show the account summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := a.argOrPrompt(args, 0, "Username: ")
			if err != nil {
				return err
			}
			password, err := a.readPassword("Password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			acct, err := a.mgr.Login(username, password)
			if err != nil {
				return err
			}
			a.printAccount(acct)
			return nil
		},
	}
}

func (a *app) heldCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "held <account>",
		Short: "List the items on loan to an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := a.authenticateUser(args[0])
			if err != nil {
				return err
			}
			a.printAccount(acct)
			return nil
		},
	}
}

// printAccount shows identity, fine and the loans of an account.
func (a *app) printAccount(acct *library.Account) {
	fmt.Fprintf(a.out, "Account:  %s\n", acct.AccountNumber)
	fmt.Fprintf(a.out, "Name:     %s\n", acct.Name())
	fmt.Fprintf(a.out, "Username: %s\n", acct.Username)
	fmt.Fprintf(a.out, "Fine:     %s\n", acct.Fine.StringFixed(2))

	now := a.clock()
	var loans []library.LoanRecord
	for _, l := range a.mgr.Engine().Loans() {
		if l.AccountNumber == acct.AccountNumber {
			loans = append(loans, l)
		}
	}
	if len(loans) == 0 {
		fmt.Fprintln(a.out, "No items on loan.")
		return
	}
	fmt.Fprintf(a.out, "\n%-40s %-12s %s\n", "Title", "Due", "Accrued")
	fmt.Fprintln(a.out, strings.Repeat("-", 64))
	for _, l := range loans {
		due := "unknown"
		if !l.Due.IsZero() {
			due = l.Due.Format("02/01/2006")
		}
		fmt.Fprintf(a.out, "%-40s %-12s %s\n", l.Title, due, library.AccrueFine(l, now).StringFixed(2))
	}
}

func (a *app) accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Change account details",
	}

	field := func(use, short, prompt string, update func(acct, value string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <account> [value]",
			Short: short,
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				acct, err := a.authenticateUser(args[0])
				if err != nil {
					return err
				}
				value, err := a.argOrPrompt(args, 1, prompt)
				if err != nil {
					return err
				}
				if err := update(acct.AccountNumber, value); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Account updated.")
				return nil
			},
		}
	}

	cmd.AddCommand(
		field("set-username", "Change the username", "New username: ", func(acct, v string) error {
			return a.mgr.Ledger().UpdateUsername(acct, v)
		}),
		field("set-first-name", "Change the first name", "New first name: ", func(acct, v string) error {
			return a.mgr.Ledger().UpdateFirstName(acct, v)
		}),
		field("set-last-name", "Change the last name", "New last name: ", func(acct, v string) error {
			return a.mgr.Ledger().UpdateLastName(acct, v)
		}),
		&cobra.Command{
			Use:   "set-password <account>",
			Short: "Change the password",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				acct, err := a.authenticateUser(args[0])
				if err != nil {
					return err
				}
				password, err := a.readNewPassword("New password: ")
				if err != nil {
					return err
				}
				if !strings.Contains(acct.Username, "admin") {
					if ok, reason := credential.ValidatePolicy(password, acct.Username); !ok {
						return fmt.Errorf("%w: %s", library.ErrPolicyViolation, reason)
					}
				}
				if err := a.mgr.Ledger().UpdateCredential(acct.AccountNumber, password); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Password changed.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset-password [username]",
			Short: "Reset a forgotten password",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				username, err := a.argOrPrompt(args, 0, "Username: ")
				if err != nil {
					return err
				}
				firstName, err := a.readLine("First name on the account: ")
				if err != nil {
					return err
				}
				password, err := a.readNewPassword("New password: ")
				if err != nil {
					return err
				}
				if err := a.mgr.Ledger().ResetPassword(username, firstName, password); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Password successfully reset for %s\n", library.NormalizeUsername(username))
				return nil
			},
		},
	)
	return cmd
}
