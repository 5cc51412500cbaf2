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

package teller

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wacul/ptr"

	"github.com/blnkfinance/teller/model"
)

// LatencyFunc returns the processing delay injected inside an account's
// critical section. A nil LatencyFunc means no delay.
type LatencyFunc func() time.Duration

// ApplyResult is the outcome of a committed mutation. Sequence increases by one
// for every commit on the account and orders the account's ledger records.
type ApplyResult struct {
	Balance  decimal.Decimal
	Sequence uint64
}

// Account owns a balance and the policy that guards it. All reads and writes of
// the balance go through mu.
type Account struct {
	mu            sync.Mutex
	id            string
	customer      model.Customer
	policy        model.Policy
	balance       decimal.Decimal
	status        model.AccountStatus
	deactivatedAt *time.Time
	sequence      uint64
	latency       LatencyFunc
}

// NewAccount creates an active account. The id must already be unique; the
// Registry guarantees this for accounts it hands out.
//
// Parameters:
// - id string: The account id.
// - customer model.Customer: The owning customer.
// - policy model.Policy: The admissibility policy, fixed for the account's lifetime.
// - balance decimal.Decimal: The opening balance.
//
// Returns:
// - *Account: The new account.
func NewAccount(id string, customer model.Customer, policy model.Policy, balance decimal.Decimal) *Account {
	return &Account{
		id:       id,
		customer: customer,
		policy:   policy,
		balance:  model.RoundMoney(balance),
		status:   model.StatusActive,
	}
}

// accountFromSnapshot rebuilds an account loaded from storage, keeping its status.
func accountFromSnapshot(s model.AccountSnapshot) *Account {
	acc := NewAccount(s.AccountID, s.Customer, s.Policy, s.Balance)
	if s.Status == model.StatusInactive {
		acc.status = model.StatusInactive
		acc.deactivatedAt = s.DeactivatedAt
	}
	return acc
}

func (a *Account) ID() string {
	return a.id
}

func (a *Account) Customer() model.Customer {
	return a.customer
}

func (a *Account) Policy() model.Policy {
	return a.policy
}

func (a *Account) Type() model.AccountType {
	return a.policy.Type
}

// SetLatency installs the latency hook used between validation and commit.
// Passing nil switches it off.
func (a *Account) SetLatency(fn LatencyFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latency = fn
}

// Apply adds a signed delta to the balance and returns the new balance.
func (a *Account) Apply(delta decimal.Decimal) (decimal.Decimal, error) {
	res, err := a.ApplySequenced(delta)
	if err != nil {
		return decimal.Zero, err
	}
	return res.Balance, nil
}

// ApplySequenced is Apply that also reports the commit sequence number.
// The lock is held for the status check, the policy decision, the optional
// latency and the write, and released on every path.
func (a *Account) ApplySequenced(delta decimal.Decimal) (ApplyResult, error) {
	if delta.IsZero() {
		return ApplyResult{}, model.NewMutationError(model.ErrInvalidAmount, a.id, "amount must not be zero")
	}
	if !delta.Equal(model.RoundMoney(delta)) {
		return ApplyResult{}, model.NewMutationError(model.ErrInvalidAmount, a.id, "amount %s has more than two decimal places", delta)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != model.StatusActive {
		return ApplyResult{}, model.NewMutationError(model.ErrAccountInactive, a.id, "account status is %s", a.status)
	}

	candidate := a.balance.Add(delta)
	if err := a.policy.Admit(delta, candidate); err != nil {
		return ApplyResult{}, a.withAccount(err)
	}

	if a.latency != nil {
		if d := a.latency(); d > 0 {
			time.Sleep(d)
		}
	}

	a.balance = candidate
	a.sequence++
	return ApplyResult{Balance: candidate, Sequence: a.sequence}, nil
}

// Deposit applies a positive amount.
func (a *Account) Deposit(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, model.NewMutationError(model.ErrInvalidAmount, a.id, "deposit amount must be greater than zero")
	}
	return a.Apply(amount)
}

// Withdraw applies the negation of a positive amount.
func (a *Account) Withdraw(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, model.NewMutationError(model.ErrInvalidAmount, a.id, "withdrawal amount must be greater than zero")
	}
	return a.Apply(amount.Neg())
}

func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

func (a *Account) Status() model.AccountStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *Account) Activate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = model.StatusActive
	a.deactivatedAt = nil
}

func (a *Account) Deactivate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == model.StatusInactive {
		return
	}
	a.status = model.StatusInactive
	a.deactivatedAt = ptr.Time(time.Now())
}

// Snapshot copies the account state under the lock.
func (a *Account) Snapshot() model.AccountSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return model.AccountSnapshot{
		AccountID:     a.id,
		Customer:      a.customer,
		Type:          a.policy.Type,
		Policy:        a.policy,
		Balance:       a.balance,
		Status:        a.status,
		DeactivatedAt: a.deactivatedAt,
	}
}

// withAccount stamps the account id on policy errors, which are produced
// without knowledge of the account.
func (a *Account) withAccount(err error) error {
	var mErr *model.MutationError
	if errors.As(err, &mErr) && mErr.AccountID == "" {
		return &model.MutationError{Kind: mErr.Kind, AccountID: a.id, Reason: mErr.Reason}
	}
	return err
}
