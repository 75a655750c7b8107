package library

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sola-lending/library/recordstore"
)

// Ledger owns the account file: identities, credentials, fines and the
// held-item cache of every borrower.
//
// Every operation reloads the file first and commits the whole file before
// returning. Fine and username updates additionally read the committed file
// back and fail with ErrVerificationFailed when it does not hold the value
// that was written.
type Ledger struct {
	store  RecordStore
	path   string
	hasher PasswordHasher
	opts   options
}

// NewLedger returns a ledger over the account file at path.
func NewLedger(store RecordStore, path string, hasher PasswordHasher, opts ...Option) *Ledger {
	return &Ledger{store: store, path: path, hasher: hasher, opts: buildOptions(opts)}
}

// NormalizeUsername trims and lower-cases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (l *Ledger) load() *recordstore.RecordSet {
	return l.store.Load(l.path, accountSchema)
}

func (l *Ledger) save(rs *recordstore.RecordSet) error {
	if err := l.store.Save(l.path, rs); err != nil {
		return fmt.Errorf("commit accounts: %w", err)
	}
	return nil
}

func usernameIndex(rs *recordstore.RecordSet, username, exceptAccount string) int {
	return rs.Find(func(r recordstore.Record) bool {
		return NormalizeUsername(r.Text(colUsername)) == username &&
			(exceptAccount == "" || !sameAccount(r, exceptAccount))
	})
}

// Register creates an account and returns its account number.
//
// Usernames containing "admin" are exempt from the password policy.
func (l *Ledger) Register(username, firstName, lastName, password string) (string, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return "", fmt.Errorf("username cannot be empty: %w", ErrInvalidInput)
	}

	rs := l.load()
	if usernameIndex(rs, username, "") >= 0 {
		return "", fmt.Errorf("%q: %w", username, ErrDuplicateUsername)
	}
	if !strings.Contains(username, "admin") {
		if ok, reason := l.opts.policy(password, username); !ok {
			return "", fmt.Errorf("%w: %s", ErrPolicyViolation, reason)
		}
	}

	hash, err := l.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	accountNumber := l.newAccountNumber(rs)
	rs.Append(accountRecord(&Account{
		AccountNumber:  accountNumber,
		FirstName:      strings.TrimSpace(firstName),
		LastName:       strings.TrimSpace(lastName),
		Username:       username,
		Fine:           decimal.Zero,
		CredentialHash: hash,
	}))
	if err := l.save(rs); err != nil {
		return "", err
	}

	l.opts.logger.Info("account registered", "account", accountNumber, "username", username)
	return accountNumber, nil
}

// newAccountNumber builds YYYYMMDD followed by four random digits. Numbers
// are not retried on collision; a collision is only logged.
func (l *Ledger) newAccountNumber(rs *recordstore.RecordSet) string {
	n := l.opts.now().Format("20060102") + fmt.Sprintf("%04d", rand.IntN(10000))
	if rs.Find(func(r recordstore.Record) bool { return sameAccount(r, n) }) >= 0 {
		l.opts.logger.Warn("generated account number collides with an existing account", "account", n)
	}
	return n
}

// Authenticate returns the account for username when password matches.
// Unknown users, wrong passwords and hashing failures all yield
// ErrInvalidCredentials.
func (l *Ledger) Authenticate(username, password string) (*Account, error) {
	username = NormalizeUsername(username)
	rs := l.load()
	i := usernameIndex(rs, username, "")
	if i < 0 {
		l.opts.logger.Debug("authentication failed", "username", username, "reason", "unknown user")
		return nil, ErrInvalidCredentials
	}
	account := accountFromRecord(rs.Records[i])
	if err := l.hasher.Verify(account.CredentialHash, password); err != nil {
		l.opts.logger.Debug("authentication failed", "username", username, "reason", err)
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// FindByAccountNumber reloads the account file and returns the account.
func (l *Ledger) FindByAccountNumber(accountNumber string) (*Account, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, fmt.Errorf("account number cannot be empty: %w", ErrNotFound)
	}
	rs := l.load()
	i := rs.Find(func(r recordstore.Record) bool { return sameAccount(r, accountNumber) })
	if i < 0 {
		return nil, fmt.Errorf("account %s: %w", accountNumber, ErrNotFound)
	}
	return accountFromRecord(rs.Records[i]), nil
}

func (l *Ledger) findByUsername(username string) (*Account, error) {
	rs := l.load()
	i := usernameIndex(rs, NormalizeUsername(username), "")
	if i < 0 {
		return nil, fmt.Errorf("username %q: %w", username, ErrNotFound)
	}
	return accountFromRecord(rs.Records[i]), nil
}

// Accounts returns every account in file order.
func (l *Ledger) Accounts() []*Account {
	rs := l.load()
	accounts := make([]*Account, 0, rs.Len())
	for _, r := range rs.Records {
		accounts = append(accounts, accountFromRecord(r))
	}
	return accounts
}

func (l *Ledger) update(accountNumber string, mutate func(recordstore.Record)) error {
	accountNumber = strings.TrimSpace(accountNumber)
	rs := l.load()
	i := rs.Find(func(r recordstore.Record) bool { return sameAccount(r, accountNumber) })
	if i < 0 {
		return fmt.Errorf("account %s: %w", accountNumber, ErrNotFound)
	}
	mutate(rs.Records[i])
	return l.save(rs)
}

// verify re-reads the committed file after the settle delay and checks the
// account's record with check.
func (l *Ledger) verify(accountNumber, field string, check func(recordstore.Record) bool) error {
	if l.opts.settleDelay > 0 {
		time.Sleep(l.opts.settleDelay)
	}
	accountNumber = strings.TrimSpace(accountNumber)
	rs := l.load()
	i := rs.Find(func(r recordstore.Record) bool { return sameAccount(r, accountNumber) })
	if i < 0 || !check(rs.Records[i]) {
		l.opts.logger.Warn("committed value does not match what was written", "account", accountNumber, "field", field)
		return fmt.Errorf("account %s %s: %w", accountNumber, field, ErrVerificationFailed)
	}
	return nil
}

// UpdateHeldItems replaces the held-item list. Duplicate titles are dropped,
// keeping the first occurrence.
func (l *Ledger) UpdateHeldItems(accountNumber string, titles []string) error {
	held := dedupeTitles(titles)
	return l.update(accountNumber, func(r recordstore.Record) {
		r.SetList(colRentedItems, held)
	})
}

// UpdateFine sets the fine balance, rounded to the cent, and verifies the
// committed value.
func (l *Ledger) UpdateFine(accountNumber string, fine decimal.Decimal) error {
	if fine.IsNegative() {
		return fmt.Errorf("fine %s is negative: %w", fine, ErrInvalidInput)
	}
	fine = fine.Round(2)
	if err := l.update(accountNumber, func(r recordstore.Record) { setFine(r, fine) }); err != nil {
		return err
	}
	return l.verify(accountNumber, colFines, func(r recordstore.Record) bool {
		return r.Decimal(colFines).Sub(fine).Abs().LessThanOrEqual(verifyTolerance)
	})
}

// UpdateUsername renames an account and verifies the committed value. The new
// username must not belong to a different account.
func (l *Ledger) UpdateUsername(accountNumber, username string) error {
	username = NormalizeUsername(username)
	if username == "" {
		return fmt.Errorf("username cannot be empty: %w", ErrInvalidInput)
	}
	accountNumber = strings.TrimSpace(accountNumber)

	rs := l.load()
	if usernameIndex(rs, username, accountNumber) >= 0 {
		return fmt.Errorf("%q: %w", username, ErrDuplicateUsername)
	}
	i := rs.Find(func(r recordstore.Record) bool { return sameAccount(r, accountNumber) })
	if i < 0 {
		return fmt.Errorf("account %s: %w", accountNumber, ErrNotFound)
	}
	rs.Records[i].Set(colUsername, username)
	if err := l.save(rs); err != nil {
		return err
	}
	return l.verify(accountNumber, colUsername, func(r recordstore.Record) bool {
		return NormalizeUsername(r.Text(colUsername)) == username
	})
}

// UpdateFirstName replaces the account holder's first name.
func (l *Ledger) UpdateFirstName(accountNumber, firstName string) error {
	return l.update(accountNumber, func(r recordstore.Record) {
		r.Set(colFirstName, strings.TrimSpace(firstName))
	})
}

// UpdateLastName replaces the account holder's last name.
func (l *Ledger) UpdateLastName(accountNumber, lastName string) error {
	return l.update(accountNumber, func(r recordstore.Record) {
		r.Set(colLastName, strings.TrimSpace(lastName))
	})
}

// UpdateCredential stores a hash of password. No policy is applied here.
func (l *Ledger) UpdateCredential(accountNumber, password string) error {
	hash, err := l.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return l.update(accountNumber, func(r recordstore.Record) {
		r.Set(colHashedPassword, hash)
	})
}

// ResetPassword replaces a forgotten password after checking the holder's
// first name and the password policy.
func (l *Ledger) ResetPassword(username, firstName, password string) error {
	account, err := l.findByUsername(username)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(firstName), strings.TrimSpace(account.FirstName)) {
		return ErrInvalidCredentials
	}
	if !strings.Contains(account.Username, "admin") {
		if ok, reason := l.opts.policy(password, account.Username); !ok {
			return fmt.Errorf("%w: %s", ErrPolicyViolation, reason)
		}
	}
	return l.UpdateCredential(account.AccountNumber, password)
}

// PayFine reduces the outstanding fine by amount and returns what is left.
func (l *Ledger) PayFine(accountNumber string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("payment must be positive: %w", ErrInvalidInput)
	}
	account, err := l.FindByAccountNumber(accountNumber)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.GreaterThan(account.Fine.Add(fineTolerance)) {
		return account.Fine, fmt.Errorf("paying %s against %s: %w", amount.StringFixed(2), account.Fine.StringFixed(2), ErrOverpayment)
	}
	remaining := decimal.Max(decimal.Zero, account.Fine.Sub(amount)).Round(2)
	if err := l.UpdateFine(account.AccountNumber, remaining); err != nil {
		return account.Fine, err
	}
	l.opts.logger.Info("fine paid", "account", account.AccountNumber, "amount", amount.StringFixed(2), "remaining", remaining.StringFixed(2))
	return remaining, nil
}

// Delete removes an account from the account file.
func (l *Ledger) Delete(accountNumber string) error {
	accountNumber = strings.TrimSpace(accountNumber)
	rs := l.load()
	if rs.Filter(func(r recordstore.Record) bool { return !sameAccount(r, accountNumber) }) == 0 {
		return fmt.Errorf("account %s: %w", accountNumber, ErrNotFound)
	}
	if err := l.save(rs); err != nil {
		return err
	}
	l.opts.logger.Info("account deleted", "account", accountNumber)
	return nil
}

// dedupeTitles drops blank and case-insensitively repeated titles.
func dedupeTitles(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" || containsTitle(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func containsTitle(titles []string, title string) bool {
	return slices.ContainsFunc(titles, func(t string) bool { return sameTitle(t, title) })
}

func removeTitle(titles []string, title string) []string {
	return slices.DeleteFunc(slices.Clone(titles), func(t string) bool { return sameTitle(t, title) })
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
