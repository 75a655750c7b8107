package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sola-lending/library"
)

func (a *app) finesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fines",
		Short: "Accrue, report and settle overdue fines",
	}
	cmd.AddCommand(a.recomputeCmd(), a.reportCmd(), a.payCmd(), a.watchCmd())
	return cmd
}

func (a *app) recomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Accrue fines for every overdue loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			changes, err := a.mgr.Reconciler().RecomputeAll()
			for _, c := range changes {
				fmt.Fprintf(a.out, "%s: %s -> %s\n", c.AccountNumber, c.Previous.StringFixed(2), c.Applied.StringFixed(2))
			}
			fmt.Fprintf(a.out, "%d fine(s) updated\n", len(changes))
			return err
		},
	}
}

func (a *app) reportCmd() *cobra.Command {
	var (
		asJSON  bool
		csvPath string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Rank accounts by outstanding fine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep := a.mgr.Reconciler().Report()
			if csvPath != "" {
				if err := rep.WriteCSV(a.mgr.Store(), csvPath); err != nil {
					return err
				}
				a.logger.Info("fine report written", "path", csvPath, "accounts", rep.Count)
			}
			if asJSON {
				enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			a.printReport(rep)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write the report to this CSV file")
	return cmd
}

func (a *app) printReport(rep *library.FineReport) {
	if rep.Count == 0 {
		fmt.Fprintln(a.out, "No outstanding fines.")
		return
	}
	fmt.Fprintf(a.out, "%-4s %-14s %-20s %-25s %8s\n", "#", "Account", "Username", "Name", "Fine")
	fmt.Fprintln(a.out, strings.Repeat("-", 75))
	for i, e := range rep.Entries {
		name := strings.TrimSpace(e.FirstName + " " + e.LastName)
		fmt.Fprintf(a.out, "%-4d %-14s %-20s %-25s %8s\n", i+1, e.AccountNumber, e.Username, name, e.Fine.StringFixed(2))
	}
	fmt.Fprintln(a.out, strings.Repeat("-", 75))
	fmt.Fprintf(a.out, "Accounts: %d  Total: %s  Average: %s  Max: %s  Min: %s\n",
		rep.Count, rep.Total.StringFixed(2), rep.Average.StringFixed(2), rep.Max.StringFixed(2), rep.Min.StringFixed(2))
}

func (a *app) payCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pay <account> <amount>",
		Short: "Record a fine payment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(strings.TrimSpace(args[1]))
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[1], library.ErrInvalidInput)
			}
			acct, err := a.authenticateUser(args[0])
			if err != nil {
				return err
			}
			left, err := a.mgr.Ledger().PayFine(acct.AccountNumber, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Paid %s, outstanding fine %s\n", amount.StringFixed(2), left.StringFixed(2))
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Accrue fines on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := cronLogger{a.logger}
			c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
			run := func() {
				changes, err := a.mgr.Reconciler().RecomputeAll()
				if err != nil {
					a.logger.Error("scheduled fine recompute failed", "error", err)
				}
				a.logger.Info("scheduled fine recompute finished", "updated", len(changes))
			}
			if _, err := c.AddFunc(a.cfg.FineSchedule, run); err != nil {
				return fmt.Errorf("schedule %q: %w", a.cfg.FineSchedule, err)
			}

			run()
			c.Start()
			a.logger.Info("watching fines", "schedule", a.cfg.FineSchedule)
			<-ctx.Done()

			a.logger.Info("stopping fine watch")
			<-c.Stop().Done()
			return nil
		},
	}
}

// cronLogger routes cron's scheduler logs to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
