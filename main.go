package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sola-lending/config"
	"sola-lending/library"
	"sola-lending/library/credential"
)

// app carries what every command needs; it is filled in by the root
// command's PersistentPreRunE.
type app struct {
	stdin io.Reader
	in    *bufio.Scanner
	out   io.Writer
	errw  io.Writer

	dataDir string
	envFile string
	clock   func() time.Time

	cfg    *config.Config
	logger *slog.Logger
	hasher *credential.Hasher
	mgr    *library.LibraryManager
}

func newApp(stdin io.Reader, out, errw io.Writer) *app {
	return &app{stdin: stdin, in: bufio.NewScanner(stdin), out: out, errw: errw, clock: time.Now}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var envFiles []string
	if a.envFile != "" {
		envFiles = append(envFiles, a.envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = a.dataDir
	}
	a.cfg = cfg
	a.logger = config.NewLogger(cfg, a.errw)
	if cfg.EnvFile != "" {
		a.logger.Debug("configuration file loaded", "path", cfg.EnvFile)
	}
	a.hasher = credential.NewHasher(cfg.BcryptCost)
	a.mgr, err = library.NewLibraryManager(cfg.Paths(), a.hasher,
		library.WithLogger(a.logger),
		library.WithSettleDelay(cfg.SettleDelay),
		library.WithClock(a.clock),
	)
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "sola",
		Short:             "Lending desk for the SOLA library catalogue",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.out)
	root.SetErr(a.errw)
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", ".", "directory holding the catalogue, loan and account files")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "configuration file to read instead of .env")

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.borrowCmd(),
		a.returnCmd(),
		a.heldCmd(),
		a.searchCmd(),
		a.accountCmd(),
		a.finesCmd(),
		a.adminCmd(),
	)
	return root
}

// readLine prints prompt and returns the next trimmed input line.
func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	if !a.in.Scan() {
		if err := a.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(a.in.Text()), nil
}

// readPassword securely reads a password with masking. Input that is not a
// terminal is read as a plain line.
func (a *app) readPassword(prompt string) (string, error) {
	f, ok := a.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return a.readLine(prompt)
	}
	fmt.Fprint(a.out, prompt)
	bytePassword, err := term.ReadPassword(int(f.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(a.out) // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

// readNewPassword asks twice and checks both entries agree.
func (a *app) readNewPassword(prompt string) (string, error) {
	password, err := a.readPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := a.readPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match: %w", library.ErrInvalidInput)
	}
	return password, nil
}

// authenticateUser prompts for the password of an account and verifies it.
func (a *app) authenticateUser(accountNumber string) (*library.Account, error) {
	acct, err := a.mgr.Account(accountNumber)
	if err != nil {
		return nil, err
	}
	password, err := a.readPassword(fmt.Sprintf("Password for %s: ", acct.Username))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if _, err := a.mgr.Ledger().Authenticate(acct.Username, password); err != nil {
		return nil, err
	}
	return acct, nil
}

// argOrPrompt returns args[i] when present, otherwise asks for it.
func (a *app) argOrPrompt(args []string, i int, prompt string) (string, error) {
	if i < len(args) {
		return strings.TrimSpace(args[i]), nil
	}
	v, err := a.readLine(prompt)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%s is required: %w", strings.TrimSuffix(strings.TrimSpace(prompt), ":"), library.ErrInvalidInput)
	}
	return v, nil
}

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := a.rootCmd().Execute(); err != nil {
		code := 1
		if errors.Is(err, library.ErrInvalidCredentials) {
			code = 2
		}
		os.Exit(code)
	}
}
