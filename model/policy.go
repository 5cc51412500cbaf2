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
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountType names the policy variant an account was opened with.
type AccountType string

const (
	AccountTypeSavings  AccountType = "Savings"
	AccountTypeChecking AccountType = "Checking"
)

// ParseAccountType accepts both the short and the long spelling found in
// account files ("Savings", "SavingsAccount").
func ParseAccountType(s string) (AccountType, error) {
	switch s {
	case "Savings", "SavingsAccount":
		return AccountTypeSavings, nil
	case "Checking", "CheckingAccount":
		return AccountTypeChecking, nil
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

// Policy decides whether a signed delta may be applied to a balance. It is a
// tagged variant: exactly one of the limits is meaningful, depending on Type.
// A Policy never reads or writes account state; it only sees the candidate.
type Policy struct {
	Type           AccountType
	MinimumBalance decimal.Decimal
	OverdraftLimit decimal.Decimal
}

// NewSavingsPolicy returns a policy whose floor is minimumBalance.
func NewSavingsPolicy(minimumBalance decimal.Decimal) Policy {
	return Policy{Type: AccountTypeSavings, MinimumBalance: minimumBalance}
}

// NewCheckingPolicy returns a policy whose floor is -overdraftLimit.
func NewCheckingPolicy(overdraftLimit decimal.Decimal) Policy {
	return Policy{Type: AccountTypeChecking, OverdraftLimit: overdraftLimit.Abs()}
}

// Floor is the lowest balance the policy admits.
func (p Policy) Floor() decimal.Decimal {
	switch p.Type {
	case AccountTypeSavings:
		return p.MinimumBalance
	case AccountTypeChecking:
		return p.OverdraftLimit.Neg()
	}
	return decimal.Zero
}

// Admit checks the candidate balance that would result from applying delta.
// It returns nil when the mutation is admissible and a *MutationError carrying
// the variant-specific kind otherwise.
func (p Policy) Admit(delta, candidate decimal.Decimal) error {
	switch p.Type {
	case AccountTypeSavings:
		if candidate.LessThan(p.MinimumBalance) {
			return NewMutationError(ErrInsufficientFunds, "",
				"balance cannot go below minimum of $%s", p.MinimumBalance.StringFixed(2))
		}
		return nil
	case AccountTypeChecking:
		if delta.IsZero() {
			return NewMutationError(ErrInvalidAmount, "", "withdrawal amount must be greater than zero")
		}
		if candidate.LessThan(p.OverdraftLimit.Neg()) {
			return NewMutationError(ErrOverdraftLimitExceeded, "",
				"exceeds overdraft limit of $%s", p.OverdraftLimit.StringFixed(2))
		}
		return nil
	}
	return fmt.Errorf("unknown account policy %q", p.Type)
}

// String describes the policy the way account listings print it.
func (p Policy) String() string {
	switch p.Type {
	case AccountTypeSavings:
		return fmt.Sprintf("Min Balance: $%s", p.MinimumBalance.StringFixed(2))
	case AccountTypeChecking:
		return fmt.Sprintf("Overdraft Limit: $%s", p.OverdraftLimit.StringFixed(2))
	}
	return string(p.Type)
}
