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
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/blnkfinance/teller/model"
)

// TransactionLedger is the append-only record of committed mutations. It has
// its own lock and is never locked while an account lock is held.
type TransactionLedger struct {
	mu       sync.RWMutex
	capacity int
	reserved int
	records  []model.TransactionRecord
}

// NewTransactionLedger creates a ledger holding at most capacity records.
// A capacity of zero means unbounded.
func NewTransactionLedger(capacity int) *TransactionLedger {
	if capacity < 0 {
		capacity = 0
	}
	return &TransactionLedger{capacity: capacity}
}

// Reservation is a slot claimed in the ledger before the mutation it will
// record is applied. Exactly one of Commit or Release must be called.
type Reservation struct {
	ledger *TransactionLedger
	once   sync.Once
}

// Reserve claims a slot, failing with ErrLedgerFull at capacity.
func (l *TransactionLedger) Reserve() (*Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full() {
		return nil, l.fullError()
	}
	l.reserved++
	return &Reservation{ledger: l}, nil
}

// Commit appends rec into the reserved slot.
func (r *Reservation) Commit(rec model.TransactionRecord) {
	r.once.Do(func() {
		r.ledger.mu.Lock()
		defer r.ledger.mu.Unlock()
		r.ledger.reserved--
		r.ledger.insert(rec)
	})
}

// Release gives the slot back without appending.
func (r *Reservation) Release() {
	r.once.Do(func() {
		r.ledger.mu.Lock()
		defer r.ledger.mu.Unlock()
		r.ledger.reserved--
	})
}

// Append adds a record directly. At capacity it is a no-op returning ErrLedgerFull.
func (l *TransactionLedger) Append(rec model.TransactionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full() {
		return l.fullError()
	}
	l.insert(rec)
	return nil
}

// Restore replaces the ledger content with records loaded from storage.
// Capacity is not enforced on restore; later appends see the ledger as full
// if the loaded history already exceeds it.
func (l *TransactionLedger) Restore(records []model.TransactionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append([]model.TransactionRecord(nil), records...)
}

func (l *TransactionLedger) full() bool {
	return l.capacity > 0 && len(l.records)+l.reserved >= l.capacity
}

func (l *TransactionLedger) fullError() error {
	return model.NewMutationError(model.ErrLedgerFull, "", "capacity of %d records reached", l.capacity)
}

// insert places rec after every earlier commit on the same account. Records
// usually arrive in sequence order and are appended; a record whose worker was
// overtaken between Apply and Commit is moved in front of the account's later
// records. Unsequenced records (restored or appended directly) go last.
func (l *TransactionLedger) insert(rec model.TransactionRecord) {
	if rec.Sequence > 0 {
		for i := len(l.records) - 1; i >= 0; i-- {
			cur := l.records[i]
			if cur.AccountID != rec.AccountID {
				continue
			}
			if cur.Sequence < rec.Sequence {
				break
			}
			if cur.Sequence > rec.Sequence {
				pos := l.firstAfter(rec)
				l.records = append(l.records, model.TransactionRecord{})
				copy(l.records[pos+1:], l.records[pos:])
				l.records[pos] = rec
				return
			}
		}
	}
	l.records = append(l.records, rec)
}

func (l *TransactionLedger) firstAfter(rec model.TransactionRecord) int {
	for i, cur := range l.records {
		if cur.AccountID == rec.AccountID && cur.Sequence > rec.Sequence {
			return i
		}
	}
	return len(l.records)
}

func (l *TransactionLedger) Capacity() int {
	return l.capacity
}

func (l *TransactionLedger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Records returns a copy of every record in ledger order.
func (l *TransactionLedger) Records() []model.TransactionRecord {
	return l.filter(func(model.TransactionRecord) bool { return true })
}

// ForAccount returns the account's records in apply order.
func (l *TransactionLedger) ForAccount(accountID string) []model.TransactionRecord {
	return l.filter(func(r model.TransactionRecord) bool { return r.AccountID == accountID })
}

func (l *TransactionLedger) FilterByKind(kind model.TransactionKind) []model.TransactionRecord {
	return l.filter(func(r model.TransactionRecord) bool { return r.Kind == kind })
}

// FilterByAmountRange returns records whose amount lies in [min, max].
func (l *TransactionLedger) FilterByAmountRange(min, max decimal.Decimal) []model.TransactionRecord {
	return l.filter(func(r model.TransactionRecord) bool {
		return r.Amount.GreaterThanOrEqual(min) && r.Amount.LessThanOrEqual(max)
	})
}

// SumByAccount totals the amounts of one kind for an account.
func (l *TransactionLedger) SumByAccount(accountID string, kind model.TransactionKind) decimal.Decimal {
	return sum(l.filter(func(r model.TransactionRecord) bool {
		return r.AccountID == accountID && r.Kind == kind
	}))
}

// SumByKind totals the amounts of one kind across all accounts.
func (l *TransactionLedger) SumByKind(kind model.TransactionKind) decimal.Decimal {
	return sum(l.FilterByKind(kind))
}

func (l *TransactionLedger) SortedByAmount(desc bool) []model.TransactionRecord {
	records := l.Records()
	sort.SliceStable(records, func(i, j int) bool {
		if desc {
			return records[i].Amount.GreaterThan(records[j].Amount)
		}
		return records[i].Amount.LessThan(records[j].Amount)
	})
	return records
}

func (l *TransactionLedger) SortedByTime(desc bool) []model.TransactionRecord {
	records := l.Records()
	sort.SliceStable(records, func(i, j int) bool {
		if desc {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records
}

func (l *TransactionLedger) filter(keep func(model.TransactionRecord) bool) []model.TransactionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.TransactionRecord, 0, len(l.records))
	for _, r := range l.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func sum(records []model.TransactionRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}
