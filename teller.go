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
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/blnkfinance/teller/config"
	"github.com/blnkfinance/teller/internal/files"
	redlock "github.com/blnkfinance/teller/internal/lock"
	"github.com/blnkfinance/teller/internal/notification"
	redis_db "github.com/blnkfinance/teller/internal/redis-db"
	"github.com/blnkfinance/teller/model"
)

// TellerWorkerID is the worker id recorded for transactions posted outside a
// simulation (CLI deposits, withdrawals and fees).
const TellerWorkerID = 0

// Teller ties the account registry, the ledger and persistence together.
type Teller struct {
	cnf      *config.Configuration
	registry *Registry
	ledger   *TransactionLedger
	source   *RandomSource
	redis    *redis_db.Redis
	locker   *redlock.Locker
}

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

// NewTeller creates a Teller from the configuration. When a redis address is
// configured, saves are guarded by a lock on the data directory.
//
// Parameters:
// - cnf *config.Configuration: The configuration. Nil means config.Fetch().
//
// Returns:
// - *Teller: The new instance with an empty registry and ledger.
// - error: An error if the configuration is missing or redis cannot be reached.
func NewTeller(cnf *config.Configuration) (*Teller, error) {
	if cnf == nil {
		var err error
		cnf, err = config.Fetch()
		if err != nil {
			return nil, err
		}
	}

	capacity := config.DEFAULT_LEDGER_CAPACITY
	if cnf.Ledger.Capacity != nil {
		capacity = *cnf.Ledger.Capacity
	}

	t := &Teller{
		cnf:      cnf,
		registry: NewRegistry(NewSequence()),
		ledger:   NewTransactionLedger(capacity),
		source:   NewRandomSource(cnf.Simulation.MinAmount, cnf.Simulation.MaxAmount, cnf.Simulation.Seed),
	}

	if cnf.Redis.Dns != "" {
		client, err := redis_db.FromConfig(cnf.Redis)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		t.redis = client
		t.locker = redlock.NewDataDirLocker(client.Client(), cnf.DataDir)
	}
	return t, nil
}

func (t *Teller) Close() error {
	if t.redis != nil {
		return t.redis.Close()
	}
	return nil
}

func (t *Teller) Registry() *Registry {
	return t.registry
}

func (t *Teller) Ledger() *TransactionLedger {
	return t.ledger
}

func (t *Teller) Config() *config.Configuration {
	return t.cnf
}

// PolicyFor builds the policy of an account type from the configured limits.
func (t *Teller) PolicyFor(accountType model.AccountType) (model.Policy, error) {
	switch accountType {
	case model.AccountTypeSavings:
		return model.NewSavingsPolicy(decimal.NewFromFloat(t.cnf.Policy.SavingsMinimumBalance)), nil
	case model.AccountTypeChecking:
		return model.NewCheckingPolicy(decimal.NewFromFloat(t.cnf.Policy.CheckingOverdraftLimit)), nil
	}
	return model.Policy{}, fmt.Errorf("unknown account type %q", accountType)
}

// Load reads accounts and transactions from the data directory. Accounts that
// clash with an already registered id are skipped with a warning.
func (t *Teller) Load(ctx context.Context) error {
	_, span := tracer.Start(ctx, "Loading data")
	defer span.End()

	snapshots, err := files.LoadAccounts(t.cnf.AccountsPath())
	if err != nil {
		return logAndRecordError(span, "loading accounts error: ", err)
	}
	for _, s := range snapshots {
		policy, err := t.PolicyFor(s.Type)
		if err != nil {
			logrus.Warnf("skipping account %s: %v", s.AccountID, err)
			continue
		}
		s.Policy = policy
		if err := t.registry.Add(accountFromSnapshot(s)); err != nil {
			logrus.Warnf("skipping account %s: %v", s.AccountID, err)
		}
	}

	records, err := files.LoadTransactions(t.cnf.TransactionsPath())
	if err != nil {
		return logAndRecordError(span, "loading transactions error: ", err)
	}
	for _, rec := range records {
		if _, err := t.registry.Get(rec.AccountID); err != nil {
			logrus.Warnf("transaction %s references unknown account %s", rec.TransactionID, rec.AccountID)
		}
	}
	t.ledger.Restore(records)

	span.SetAttributes(attribute.Int("accounts", t.registry.Len()), attribute.Int("transactions", len(records)))
	logrus.Infof("loaded %d accounts and %d transactions", t.registry.Len(), len(records))
	return nil
}

// Save rewrites both data files. Failures are reported through the error
// notifier and returned; they are not retried.
func (t *Teller) Save(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Saving data")
	defer span.End()

	save := func() error {
		snapshots := make([]model.AccountSnapshot, 0, t.registry.Len())
		for _, acc := range t.registry.List() {
			snapshots = append(snapshots, acc.Snapshot())
		}
		if err := files.SaveAccounts(t.cnf.AccountsPath(), snapshots); err != nil {
			return err
		}
		return files.SaveTransactions(t.cnf.TransactionsPath(), t.ledger.Records())
	}

	var err error
	if t.locker != nil {
		err = t.locker.Guard(ctx, t.cnf.Lock.TTL.Std(), t.cnf.Lock.Wait.Std(), save)
	} else {
		err = save()
	}
	if err != nil {
		notification.NotifyError(ctx, err)
		return logAndRecordError(span, "saving data error: ", err)
	}
	logrus.Infof("saved %d accounts and %d transactions to %s", t.registry.Len(), t.ledger.Count(), t.cnf.DataDir)
	return nil
}

// OpenAccount registers a new account for customer.
func (t *Teller) OpenAccount(customer model.Customer, accountType model.AccountType, initial decimal.Decimal) (*Account, error) {
	policy, err := t.PolicyFor(accountType)
	if err != nil {
		return nil, err
	}
	return t.registry.Open(customer, policy, initial)
}

// Deposit posts a deposit to an account and records it.
func (t *Teller) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (model.TransactionRecord, error) {
	return t.post(ctx, accountID, model.KindDeposit, amount)
}

// Withdraw posts a withdrawal from an account and records it.
func (t *Teller) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (model.TransactionRecord, error) {
	return t.post(ctx, accountID, model.KindWithdrawal, amount)
}

func (t *Teller) post(ctx context.Context, accountID string, kind model.TransactionKind, amount decimal.Decimal) (model.TransactionRecord, error) {
	_, span := tracer.Start(ctx, "Posting transaction", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.String("transaction.kind", string(kind)),
	))
	defer span.End()

	amount = model.RoundMoney(amount)
	if !amount.IsPositive() {
		return model.TransactionRecord{}, model.NewMutationError(model.ErrInvalidAmount, accountID, "amount must be greater than zero")
	}
	acc, err := t.registry.Get(accountID)
	if err != nil {
		return model.TransactionRecord{}, err
	}
	rec, err := t.apply(acc, kind.Signed(amount), TellerWorkerID)
	if err != nil {
		span.RecordError(err)
		return model.TransactionRecord{}, err
	}
	return rec, nil
}

// apply runs one guarded mutation outside a simulation: reserve a ledger
// slot, apply, then record.
func (t *Teller) apply(acc *Account, delta decimal.Decimal, workerID int) (model.TransactionRecord, error) {
	slot, err := t.ledger.Reserve()
	if err != nil {
		return model.TransactionRecord{}, err
	}
	res, err := acc.ApplySequenced(delta)
	if err != nil {
		slot.Release()
		return model.TransactionRecord{}, err
	}
	rec := model.NewTransactionRecord(acc.ID(), delta, res.Balance, res.Sequence, workerID)
	slot.Commit(rec)
	return rec, nil
}

// SetStatus activates or deactivates an account.
func (t *Teller) SetStatus(accountID string, status model.AccountStatus) error {
	acc, err := t.registry.Get(accountID)
	if err != nil {
		return err
	}
	switch status {
	case model.StatusActive:
		acc.Activate()
	case model.StatusInactive:
		acc.Deactivate()
	default:
		return fmt.Errorf("unknown account status %q", status)
	}
	return nil
}

// Statement returns an account's transactions, most recent first.
func (t *Teller) Statement(accountID string) ([]model.TransactionRecord, error) {
	if _, err := t.registry.Get(accountID); err != nil {
		return nil, err
	}
	records := t.ledger.ForAccount(accountID)
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Simulate runs the concurrent workload against the active accounts with the
// simulation latency switched on for the duration of the run.
func (t *Teller) Simulate(ctx context.Context, workers, tasksPerWorker int) (Summary, error) {
	sim := t.cnf.Simulation
	accounts := t.registry.Active()
	if len(accounts) == 0 {
		return Summary{}, model.NewMutationError(model.ErrAccountNotFound, "", "no active accounts to simulate against")
	}

	latency := t.source.Latency(sim.LatencyMin.Std(), sim.LatencyMax.Std())
	for _, acc := range accounts {
		acc.SetLatency(latency)
	}
	defer func() {
		for _, acc := range accounts {
			acc.SetLatency(nil)
		}
	}()

	simulator := NewSimulator(t.ledger, RandomActiveAccount(t.registry, t.source), t.source,
		WithPoolSize(sim.PoolSize),
		WithTimeout(sim.Timeout.Std()),
		WithWorkerPause(func() time.Duration { return t.source.Duration(sim.PauseMin.Std(), sim.PauseMax.Std()) }),
	)
	return simulator.Run(ctx, workers, tasksPerWorker)
}
