package library

import (
	"log/slog"
	"time"

	"sola-lending/library/credential"
	"sola-lending/library/recordstore"
)

// RecordStore is the persistence the ledger and the lending engine commit through.
type RecordStore interface {
	Load(path string, schema recordstore.Schema) *recordstore.RecordSet
	Save(path string, rs *recordstore.RecordSet) error
}

// PasswordHasher hashes credentials and verifies a password against a stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// PolicyFunc decides whether a password is acceptable for a username.
type PolicyFunc func(password, username string) (ok bool, reason string)

type options struct {
	logger      *slog.Logger
	now         func() time.Time
	settleDelay time.Duration
	policy      PolicyFunc
}

// Option configures the ledger, the lending engine and the fine reconciler.
type Option func(*options)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces time.Now, which drives due dates, fine accrual and
// account numbers.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSettleDelay makes verified updates wait before reading back the
// committed file. Zero reads back immediately.
func WithSettleDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.settleDelay = d
		}
	}
}

// WithPolicy sets the password policy applied at registration and reset.
func WithPolicy(policy PolicyFunc) Option {
	return func(o *options) {
		if policy != nil {
			o.policy = policy
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		now:    time.Now,
		policy: credential.ValidatePolicy,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
