package library

import (
	"errors"
	"fmt"
	"strings"
)

// Business-rule errors. None of them wrap recordstore.ErrIO, so a failed
// commit can always be told apart from a rejected operation.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrPolicyViolation    = errors.New("password policy violation")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrVerificationFailed = errors.New("committed value could not be verified")

	ErrLimitReached     = errors.New("borrowing limit reached")
	ErrNoMatch          = errors.New("no available item matches that title")
	ErrAlreadyAvailable = errors.New("item is already available")
	ErrAmbiguousTitle   = errors.New("title matches more than one available item")

	ErrDuplicateTitle  = errors.New("item already exists")
	ErrItemOnLoan      = errors.New("item is currently borrowed")
	ErrOverpayment     = errors.New("payment exceeds outstanding fine")
	ErrFineOutstanding = errors.New("account has an outstanding fine")
)

// AmbiguousTitleError lists the available titles a fragment matched.
type AmbiguousTitleError struct {
	Fragment   string
	Candidates []string
}

func (e *AmbiguousTitleError) Error() string {
	return fmt.Sprintf("%q matches %d available items: %s", e.Fragment, len(e.Candidates), strings.Join(e.Candidates, "; "))
}

func (e *AmbiguousTitleError) Is(target error) bool { return target == ErrAmbiguousTitle }
