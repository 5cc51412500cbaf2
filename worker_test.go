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
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/teller/model"
)

// scriptedSource replays signed amounts in order, wrapping around.
type scriptedSource struct {
	mu     sync.Mutex
	deltas []decimal.Decimal
	next   int
}

func script(deltas ...string) *scriptedSource {
	s := &scriptedSource{}
	for _, delta := range deltas {
		s.deltas = append(s.deltas, d(delta))
	}
	return s
}

func (s *scriptedSource) Next() (model.TransactionKind, decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delta := s.deltas[s.next%len(s.deltas)]
	s.next++
	return model.KindOf(delta), delta.Abs()
}

func TestWorker_CommitRecordsReturnedBalance(t *testing.T) {
	acc := checkingAccount("500")
	ledger := NewTransactionLedger(10)
	w := NewWorker(3, SingleAccount(acc), ledger, script("-800"))

	out := w.Run(context.Background())

	require.True(t, out.Committed())
	require.NotNil(t, out.Record)
	assert.Equal(t, 3, out.Record.WorkerID)
	assert.Equal(t, model.KindWithdrawal, out.Record.Kind)
	assert.True(t, out.Record.Amount.Equal(d("800")))
	assert.True(t, out.Record.BalanceAfter.Equal(d("-300")))
	assert.Equal(t, uint64(1), out.Record.Sequence)
	assert.Equal(t, []model.TransactionRecord{*out.Record}, ledger.Records())
}

func TestWorker_RejectionTouchesNothing(t *testing.T) {
	acc := savingsAccount("500")
	ledger := NewTransactionLedger(10)
	w := NewWorker(1, SingleAccount(acc), ledger, script("-1"))

	out := w.Run(context.Background())

	assert.False(t, out.Committed())
	assert.Nil(t, out.Record)
	assert.True(t, errors.Is(out.Err, model.ErrInsufficientFunds))
	assert.Contains(t, out.Reason, "insufficient funds")
	assert.True(t, acc.Balance().Equal(d("500")))
	assert.Equal(t, 0, ledger.Count())

	// the released reservation is available again
	_, err := ledger.Reserve()
	assert.NoError(t, err)
}

func TestWorker_LedgerFullLeavesBalanceAlone(t *testing.T) {
	acc := savingsAccount("1000")
	ledger := NewTransactionLedger(1)
	w := NewWorker(1, SingleAccount(acc), ledger, script("100"))

	first := w.Run(context.Background())
	second := w.Run(context.Background())

	assert.True(t, first.Committed())
	assert.False(t, second.Committed())
	assert.True(t, errors.Is(second.Err, model.ErrLedgerFull))
	assert.True(t, acc.Balance().Equal(d("1100")))
	assert.Equal(t, 1, ledger.Count())
}

func TestWorker_PickerFailure(t *testing.T) {
	ledger := NewTransactionLedger(10)
	picker := AccountPickerFunc(func() (*Account, error) {
		return nil, model.NewMutationError(model.ErrAccountNotFound, "ACC404", "gone")
	})
	w := NewWorker(1, picker, ledger, script("10"))

	out := w.Run(context.Background())
	assert.False(t, out.Committed())
	assert.True(t, errors.Is(out.Err, model.ErrAccountNotFound))
	assert.Equal(t, 0, ledger.Count())
}

func TestWorker_RunTasks(t *testing.T) {
	acc := savingsAccount("600")
	ledger := NewTransactionLedger(0)
	w := NewWorker(2, SingleAccount(acc), ledger, script("50", "-200", "-150"))

	outcomes := w.RunTasks(context.Background(), 3)

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Committed())
	assert.False(t, outcomes[1].Committed())
	assert.True(t, outcomes[2].Committed())
	assert.True(t, acc.Balance().Equal(d("500")))
	assert.Equal(t, 2, ledger.Count())
}

func TestWorker_RunTasksStopsWhenCancelled(t *testing.T) {
	acc := savingsAccount("1000")
	ledger := NewTransactionLedger(0)
	w := NewWorker(1, SingleAccount(acc), ledger, script("10"),
		WithPause(func() time.Duration { return 50 * time.Millisecond }))

	ctx, cancel := context.WithTimeout(context.Background(), 75*time.Millisecond)
	defer cancel()

	outcomes := w.RunTasks(ctx, 10)
	assert.Len(t, outcomes, 2)
	assert.Equal(t, 2, ledger.Count())

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	assert.Empty(t, w.RunTasks(cancelled, 5))
}

func TestRandomSource(t *testing.T) {
	src := NewRandomSource(50, 250, 42)

	kinds := map[model.TransactionKind]int{}
	for i := 0; i < 500; i++ {
		kind, amount := src.Next()
		kinds[kind]++
		assert.True(t, amount.GreaterThanOrEqual(d("50")) && amount.LessThanOrEqual(d("250")), "amount %s", amount)
		assert.True(t, amount.Equal(amount.Round(2)))
	}
	assert.Positive(t, kinds[model.KindDeposit])
	assert.Positive(t, kinds[model.KindWithdrawal])

	for i := 0; i < 50; i++ {
		dur := src.Duration(20*time.Millisecond, 70*time.Millisecond)
		assert.True(t, dur >= 20*time.Millisecond && dur <= 70*time.Millisecond)
		idx := src.Index(3)
		assert.True(t, idx >= 0 && idx < 3)
	}
	assert.Nil(t, src.Latency(0, 0))
}
