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
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/teller/model"
)

const (
	AccountPrefix  = "ACC"
	CustomerPrefix = "CUS"
)

// Sequence hands out prefixed, zero padded ids such as ACC001. It is safe for
// concurrent use and is owned by a Registry rather than shared process state.
type Sequence struct {
	mu   sync.Mutex
	last map[string]int
}

func NewSequence() *Sequence {
	return &Sequence{last: make(map[string]int)}
}

// Next returns the next id for prefix.
func (s *Sequence) Next(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[prefix]++
	return fmt.Sprintf("%s%03d", prefix, s.last[prefix])
}

// Observe advances the counter for the id's prefix past the id's number, so
// ids restored from storage are never handed out again. Ids that do not follow
// the prefix+number shape are ignored.
func (s *Sequence) Observe(id string) {
	i := strings.IndexFunc(id, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.last[id[:i]] {
		s.last[id[:i]] = n
	}
}

// Registry holds every account for the lifetime of the process.
type Registry struct {
	mu       sync.RWMutex
	seq      *Sequence
	accounts map[string]*Account
	order    []string
}

// NewRegistry creates an empty registry. A nil sequence gets a fresh one.
func NewRegistry(seq *Sequence) *Registry {
	if seq == nil {
		seq = NewSequence()
	}
	return &Registry{seq: seq, accounts: make(map[string]*Account)}
}

// Open validates the customer, assigns ids and registers a new account.
//
// Parameters:
// - customer model.Customer: The account holder. A CustomerID is assigned when empty.
// - policy model.Policy: The account policy.
// - initial decimal.Decimal: The opening deposit. It must not be negative and must satisfy the policy floor.
//
// Returns:
// - *Account: The registered account.
// - error: A validation error, or a *model.MutationError if the opening deposit is not admissible.
func (r *Registry) Open(customer model.Customer, policy model.Policy, initial decimal.Decimal) (*Account, error) {
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	initial = model.RoundMoney(initial)
	if initial.IsNegative() {
		return nil, model.NewMutationError(model.ErrInvalidAmount, "", "initial deposit cannot be negative")
	}
	if initial.LessThan(policy.Floor()) {
		return nil, model.NewMutationError(model.ErrInsufficientFunds, "",
			"initial deposit must be at least %s", model.FormatMoney(policy.Floor()))
	}

	if customer.CustomerID == "" {
		customer.CustomerID = r.seq.Next(CustomerPrefix)
	} else {
		r.seq.Observe(customer.CustomerID)
	}
	acc := NewAccount(r.seq.Next(AccountPrefix), customer, policy, initial)
	if err := r.Add(acc); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"account_id":  acc.ID(),
		"customer_id": customer.CustomerID,
		"type":        policy.Type,
	}).Info("account opened")
	return acc, nil
}

// Add registers an existing account, typically one loaded from storage.
func (r *Registry) Add(acc *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[acc.ID()]; exists {
		return fmt.Errorf("account %s is already registered", acc.ID())
	}
	r.accounts[acc.ID()] = acc
	r.order = append(r.order, acc.ID())
	r.seq.Observe(acc.ID())
	r.seq.Observe(acc.Customer().CustomerID)
	return nil
}

// Get returns the account with the given id.
func (r *Registry) Get(id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, model.NewMutationError(model.ErrAccountNotFound, id, "no account with this id")
	}
	return acc, nil
}

// List returns the accounts in registration order.
func (r *Registry) List() []*Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Account, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.accounts[id])
	}
	return list
}

// Active returns the active accounts in registration order.
func (r *Registry) Active() []*Account {
	var active []*Account
	for _, acc := range r.List() {
		if acc.Status() == model.StatusActive {
			active = append(active, acc)
		}
	}
	return active
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
