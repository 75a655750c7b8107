// Package credential hashes and verifies account passwords and applies the
// password policy.
package credential

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the default bcrypt cost.
const DefaultCost = 12

// ErrMismatch is returned by Verify when the password does not match the hash.
var ErrMismatch = errors.New("password does not match")

// Hasher hashes passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, or DefaultCost when cost is out of range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash hashes a password.
func (h *Hasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify compares a password with a hash. A wrong password yields
// ErrMismatch; a malformed hash yields the bcrypt error.
func (h *Hasher) Verify(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}

var (
	lower   = regexp.MustCompile(`[a-z]`)
	upper   = regexp.MustCompile(`[A-Z]`)
	digit   = regexp.MustCompile(`[0-9]`)
	special = regexp.MustCompile(`[!@#$%^&*()_+\-={}\[\]:;"'<>,.?/~` + "`" + `|]`)
)

// ValidatePolicy checks a password against the account password rules and
// returns a human readable reason when it is rejected.
func ValidatePolicy(password, username string) (bool, string) {
	switch {
	case len(password) < 8 || len(password) > 30:
		return false, "password must be between 8 and 30 characters"
	case !lower.MatchString(password):
		return false, "password must contain at least one lowercase letter"
	case !upper.MatchString(password):
		return false, "password must contain at least one uppercase letter"
	case !digit.MatchString(password):
		return false, "password must contain at least one digit"
	case !special.MatchString(password):
		return false, "password must contain at least one special character"
	}
	if u := strings.ToLower(strings.TrimSpace(username)); u != "" && strings.Contains(strings.ToLower(password), u) {
		return false, "password cannot contain your username"
	}
	return true, ""
}
