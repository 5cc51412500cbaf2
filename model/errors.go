/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrOverdraftLimitExceeded = errors.New("transaction exceeds overdraft limit")
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountInactive        = errors.New("account is not active")
	ErrLedgerFull             = errors.New("transaction ledger is full")
)

// MutationError is returned when a balance mutation is refused. Kind is one of
// the sentinel errors above, so callers match it with errors.Is.
type MutationError struct {
	Kind      error
	AccountID string
	Reason    string
}

func (e *MutationError) Error() string {
	if e.AccountID == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s (account %s): %s", e.Kind, e.AccountID, e.Reason)
}

func (e *MutationError) Unwrap() error {
	return e.Kind
}

// NewMutationError builds a MutationError with a formatted reason.
func NewMutationError(kind error, accountID, format string, args ...interface{}) *MutationError {
	return &MutationError{Kind: kind, AccountID: accountID, Reason: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err belongs to the mutation error taxonomy, i.e.
// it is an expected refusal rather than an internal failure.
func IsRejection(err error) bool {
	for _, kind := range []error{
		ErrInvalidAmount,
		ErrInsufficientFunds,
		ErrOverdraftLimitExceeded,
		ErrAccountNotFound,
		ErrAccountInactive,
		ErrLedgerFull,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// RejectionKind returns the sentinel error name used when grouping rejections
// in simulation summaries.
func RejectionKind(err error) string {
	var mErr *MutationError
	if errors.As(err, &mErr) {
		return mErr.Kind.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
