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
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/blnkfinance/teller/model"
)

// AccountPicker chooses the account a worker attempt targets.
type AccountPicker interface {
	Pick() (*Account, error)
}

// AccountPickerFunc adapts a function to AccountPicker.
type AccountPickerFunc func() (*Account, error)

func (f AccountPickerFunc) Pick() (*Account, error) {
	return f()
}

// SingleAccount always picks acc.
func SingleAccount(acc *Account) AccountPicker {
	return AccountPickerFunc(func() (*Account, error) { return acc, nil })
}

// RandomActiveAccount picks uniformly among the registry's active accounts.
func RandomActiveAccount(r *Registry, src *RandomSource) AccountPicker {
	return AccountPickerFunc(func() (*Account, error) {
		active := r.Active()
		if len(active) == 0 {
			return nil, model.NewMutationError(model.ErrAccountNotFound, "", "no active accounts to pick from")
		}
		return active[src.Index(len(active))], nil
	})
}

type OutcomeStatus string

const (
	OutcomeCommitted OutcomeStatus = "Committed"
	OutcomeRejected  OutcomeStatus = "Rejected"
)

// Outcome is the result of one worker attempt. Record is set only when the
// attempt committed; Err and Reason only when it was rejected.
type Outcome struct {
	WorkerID  int
	Status    OutcomeStatus
	AccountID string
	Delta     decimal.Decimal
	Record    *model.TransactionRecord
	Err       error
	Reason    string
}

func (o Outcome) Committed() bool {
	return o.Status == OutcomeCommitted
}

// Worker performs simulated transaction attempts. It never retries.
type Worker struct {
	id     int
	picker AccountPicker
	ledger *TransactionLedger
	source AmountSource
	pause  func() time.Duration
}

type WorkerOption func(*Worker)

// WithPause sets the delay between consecutive attempts in RunTasks.
func WithPause(fn func() time.Duration) WorkerOption {
	return func(w *Worker) {
		w.pause = fn
	}
}

func NewWorker(id int, picker AccountPicker, ledger *TransactionLedger, source AmountSource, opts ...WorkerOption) *Worker {
	w := &Worker{id: id, picker: picker, ledger: ledger, source: source}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) ID() int {
	return w.id
}

// Run performs a single attempt. The kind and amount are drawn before any lock
// is taken, and the ledger slot is reserved before the account is touched so a
// full ledger never leaves an unrecorded mutation behind. The record is built
// from the balance returned by the account, not from a second read.
func (w *Worker) Run(ctx context.Context) Outcome {
	_, span := tracer.Start(ctx, "Worker attempt", trace.WithAttributes(attribute.Int("worker.id", w.id)))
	defer span.End()

	kind, magnitude := w.source.Next()
	delta := kind.Signed(magnitude)
	if !magnitude.IsPositive() {
		return w.reject(span, "", delta, model.NewMutationError(model.ErrInvalidAmount, "", "amount must be greater than zero"))
	}

	acc, err := w.picker.Pick()
	if err != nil {
		return w.reject(span, "", delta, err)
	}

	slot, err := w.ledger.Reserve()
	if err != nil {
		return w.reject(span, acc.ID(), delta, err)
	}

	res, err := acc.ApplySequenced(delta)
	if err != nil {
		slot.Release()
		return w.reject(span, acc.ID(), delta, err)
	}

	rec := model.NewTransactionRecord(acc.ID(), delta, res.Balance, res.Sequence, w.id)
	slot.Commit(rec)

	span.SetAttributes(attribute.String("account.id", acc.ID()), attribute.String("transaction.id", rec.TransactionID))
	logrus.WithFields(logrus.Fields{
		"worker":        w.id,
		"account_id":    acc.ID(),
		"kind":          rec.Kind,
		"amount":        rec.Amount.StringFixed(2),
		"balance_after": rec.BalanceAfter.StringFixed(2),
	}).Debug("transaction committed")

	return Outcome{WorkerID: w.id, Status: OutcomeCommitted, AccountID: acc.ID(), Delta: delta, Record: &rec}
}

// RunTasks performs up to n attempts, stopping early once ctx is done. An
// attempt that has started always finishes.
func (w *Worker) RunTasks(ctx context.Context, n int) []Outcome {
	outcomes := make([]Outcome, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 && w.pause != nil {
			if !sleepCtx(ctx, w.pause()) {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, w.Run(ctx))
	}
	return outcomes
}

func (w *Worker) reject(span trace.Span, accountID string, delta decimal.Decimal, err error) Outcome {
	span.RecordError(err)
	level := logrus.WarnLevel
	if !model.IsRejection(err) && !errors.Is(err, context.Canceled) {
		level = logrus.ErrorLevel
	}
	logrus.WithFields(logrus.Fields{
		"worker":     w.id,
		"account_id": accountID,
		"amount":     delta.StringFixed(2),
	}).Log(level, "transaction rejected: ", err)
	return Outcome{
		WorkerID:  w.id,
		Status:    OutcomeRejected,
		AccountID: accountID,
		Delta:     delta,
		Err:       err,
		Reason:    err.Error(),
	}
}

// sleepCtx waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
