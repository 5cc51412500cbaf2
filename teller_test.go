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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/teller/config"
	redlock "github.com/blnkfinance/teller/internal/lock"
	"github.com/blnkfinance/teller/model"
)

func newTestTeller(t *testing.T) *Teller {
	t.Helper()
	cnf := config.Defaults()
	cnf.DataDir = t.TempDir()
	cnf.Simulation.LatencyMin, cnf.Simulation.LatencyMax = config.Duration(time.Millisecond), config.Duration(2*time.Millisecond)
	cnf.Simulation.PauseMin, cnf.Simulation.PauseMax = 0, config.Duration(time.Millisecond)
	config.MockConfig(cnf)

	tl, err := NewTeller(cnf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tl.Close() })
	return tl
}

func TestTeller_PostingAndStatement(t *testing.T) {
	tl := newTestTeller(t)
	ctx := context.Background()

	acc, err := tl.OpenAccount(newCustomer(model.CustomerTypeRegular), model.AccountTypeChecking, d("500"))
	require.NoError(t, err)

	rec, err := tl.Withdraw(ctx, acc.ID(), d("800"))
	require.NoError(t, err)
	assert.True(t, rec.BalanceAfter.Equal(d("-300")))
	assert.Equal(t, TellerWorkerID, rec.WorkerID)

	_, err = tl.Withdraw(ctx, acc.ID(), d("800"))
	assert.True(t, errors.Is(err, model.ErrOverdraftLimitExceeded))

	_, err = tl.Deposit(ctx, acc.ID(), d("0"))
	assert.True(t, errors.Is(err, model.ErrInvalidAmount))

	_, err = tl.Deposit(ctx, "ACC404", d("10"))
	assert.True(t, errors.Is(err, model.ErrAccountNotFound))

	_, err = tl.Deposit(ctx, acc.ID(), d("50.255"))
	require.NoError(t, err)

	statement, err := tl.Statement(acc.ID())
	require.NoError(t, err)
	require.Len(t, statement, 2)
	assert.Equal(t, model.KindDeposit, statement[0].Kind)
	assert.True(t, statement[0].BalanceAfter.Equal(d("-249.74")))
	assert.Equal(t, model.KindWithdrawal, statement[1].Kind)
}

func TestTeller_InactiveAccount(t *testing.T) {
	tl := newTestTeller(t)
	acc, err := tl.OpenAccount(newCustomer(model.CustomerTypeRegular), model.AccountTypeSavings, d("600"))
	require.NoError(t, err)

	require.NoError(t, tl.SetStatus(acc.ID(), model.StatusInactive))
	_, err = tl.Deposit(context.Background(), acc.ID(), d("10"))
	assert.True(t, errors.Is(err, model.ErrAccountInactive))
	assert.Equal(t, 0, tl.Ledger().Count())

	require.NoError(t, tl.SetStatus(acc.ID(), model.StatusActive))
	_, err = tl.Deposit(context.Background(), acc.ID(), d("10"))
	assert.NoError(t, err)

	assert.Error(t, tl.SetStatus(acc.ID(), "Frozen"))
}

func TestTeller_SaveLoadRoundTrip(t *testing.T) {
	tl := newTestTeller(t)
	ctx := context.Background()

	savings, err := tl.OpenAccount(newCustomer(model.CustomerTypePremium), model.AccountTypeSavings, d("1200"))
	require.NoError(t, err)
	checking, err := tl.OpenAccount(newCustomer(model.CustomerTypeRegular), model.AccountTypeChecking, d("0"))
	require.NoError(t, err)

	_, err = tl.Withdraw(ctx, savings.ID(), d("199.99"))
	require.NoError(t, err)
	_, err = tl.Withdraw(ctx, checking.ID(), d("300"))
	require.NoError(t, err)
	checking.Deactivate()

	require.NoError(t, tl.Save(ctx))

	restored, err := NewTeller(tl.Config())
	require.NoError(t, err)
	require.NoError(t, restored.Load(ctx))

	require.Equal(t, 2, restored.Registry().Len())
	for _, want := range tl.Registry().List() {
		got, err := restored.Registry().Get(want.ID())
		require.NoError(t, err)
		assert.Equal(t, want.Type(), got.Type())
		assert.Equal(t, want.Status(), got.Status())
		assert.Equal(t, want.Customer(), got.Customer())
		assert.True(t, want.Balance().Sub(got.Balance()).Abs().LessThanOrEqual(d("0.01")))
		assert.Equal(t, want.Policy(), got.Policy())
	}

	wantRecords := tl.Ledger().Records()
	gotRecords := restored.Ledger().Records()
	require.Len(t, gotRecords, len(wantRecords))
	for i := range wantRecords {
		assert.Equal(t, wantRecords[i].TransactionID, gotRecords[i].TransactionID)
		assert.True(t, wantRecords[i].BalanceAfter.Equal(gotRecords[i].BalanceAfter))
	}

	// ids handed out after a load never clash with loaded ones
	acc, err := restored.OpenAccount(newCustomer(model.CustomerTypeRegular), model.AccountTypeSavings, d("500"))
	require.NoError(t, err)
	assert.Equal(t, "ACC003", acc.ID())
	assert.Equal(t, "CUS003", acc.Customer().CustomerID)
}

func TestTeller_SaveFailureIsReturned(t *testing.T) {
	tl := newTestTeller(t)
	blocker := filepath.Join(tl.Config().DataDir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	tl.Config().DataDir = blocker

	_, err := tl.OpenAccount(newCustomer(model.CustomerTypeRegular), model.AccountTypeSavings, d("500"))
	require.NoError(t, err)
	assert.Error(t, tl.Save(context.Background()))
}

func TestTeller_SaveHoldsDataDirLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cnf := config.Defaults()
	cnf.DataDir = t.TempDir()
	cnf.Redis.Dns = mr.Addr()
	cnf.Lock.Wait = config.Duration(200 * time.Millisecond)
	config.MockConfig(cnf)

	tl, err := NewTeller(cnf)
	require.NoError(t, err)
	defer tl.Close()

	require.NoError(t, tl.Save(context.Background()))
	key := redlock.DataDirKey(cnf.DataDir)
	assert.False(t, mr.Exists(key), "lock released after save")

	// another process holds the directory
	require.NoError(t, mr.Set(key, "someone-else"))
	err = tl.Save(context.Background())
	assert.ErrorContains(t, err, "failed to acquire lock")
}

func TestTeller_MonthlyFees(t *testing.T) {
	tl := newTestTeller(t)

	regular, err := tl.OpenAccount(newCustomer(model.CustomerTypeRegular), model.AccountTypeChecking, d("100"))
	require.NoError(t, err)
	premium, err := tl.OpenAccount(newCustomer(model.CustomerTypePremium), model.AccountTypeChecking, d("100"))
	require.NoError(t, err)
	atLimit, err := tl.OpenAccount(newCustomer(model.CustomerTypeRegular), model.AccountTypeChecking, d("0"))
	require.NoError(t, err)
	_, err = tl.Withdraw(context.Background(), atLimit.ID(), d("1000"))
	require.NoError(t, err)
	_, err = tl.OpenAccount(newCustomer(model.CustomerTypeRegular), model.AccountTypeSavings, d("800"))
	require.NoError(t, err)

	report := tl.ApplyMonthlyFees(context.Background())

	assert.True(t, report.Fee.Equal(d("10")))
	assert.Equal(t, 1, report.Charged)
	assert.Equal(t, 1, report.Waived)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.Results, 3)

	assert.True(t, regular.Balance().Equal(d("90")))
	assert.True(t, premium.Balance().Equal(d("100")))
	assert.True(t, atLimit.Balance().Equal(d("-1000")))
	assert.True(t, tl.Ledger().SumByAccount(regular.ID(), model.KindWithdrawal).Equal(d("10")))
}

func TestTeller_Simulate(t *testing.T) {
	tl := newTestTeller(t)
	acc, err := tl.OpenAccount(newCustomer(model.CustomerTypeRegular), model.AccountTypeChecking, d("1000"))
	require.NoError(t, err)

	summary, err := tl.Simulate(context.Background(), 4, 5)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, summary.State)
	assert.Equal(t, 20, summary.Attempts())
	assert.Equal(t, summary.Committed, tl.Ledger().Count())
	assertLedgerReplays(t, tl.Ledger(), acc, d("1000"))

	_, err = tl.Simulate(context.Background(), 1, 5)
	assert.ErrorIs(t, err, ErrInvalidWorkerCount)
}

func TestTeller_SimulateWithoutAccounts(t *testing.T) {
	tl := newTestTeller(t)
	_, err := tl.Simulate(context.Background(), 4, 5)
	assert.True(t, errors.Is(err, model.ErrAccountNotFound))
}
