package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindDeposit    TransactionKind = "DEPOSIT"
	KindWithdrawal TransactionKind = "WITHDRAWAL"
)

// ParseTransactionKind is case-insensitive.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(KindDeposit):
		return KindDeposit, nil
	case string(KindWithdrawal):
		return KindWithdrawal, nil
	}
	return "", fmt.Errorf("unknown transaction kind %q", s)
}

// Signed turns a positive magnitude into the delta applied to a balance.
func (k TransactionKind) Signed(amount decimal.Decimal) decimal.Decimal {
	if k == KindWithdrawal {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// KindOf returns the kind of a signed delta.
func KindOf(delta decimal.Decimal) TransactionKind {
	if delta.IsNegative() {
		return KindWithdrawal
	}
	return KindDeposit
}

// TransactionRecord is the immutable log entry of one committed mutation.
// BalanceAfter is the balance returned by the mutation itself. Sequence is
// the per-account commit number handed out under the account lock; records
// loaded from disk carry 0.
type TransactionRecord struct {
	TransactionID string          `json:"id"`
	AccountID     string          `json:"account_id"`
	Kind          TransactionKind `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Timestamp     time.Time       `json:"timestamp"`
	WorkerID      int             `json:"worker_id"`
	Sequence      uint64          `json:"sequence"`
}

// NewTransactionRecord builds a record for a committed delta.
func NewTransactionRecord(accountID string, delta, balanceAfter decimal.Decimal, sequence uint64, workerID int) TransactionRecord {
	return TransactionRecord{
		TransactionID: GenerateUUIDWithSuffix("txn"),
		AccountID:     accountID,
		Kind:          KindOf(delta),
		Amount:        delta.Abs(),
		BalanceAfter:  balanceAfter,
		Timestamp:     time.Now(),
		WorkerID:      workerID,
		Sequence:      sequence,
	}
}

// Delta is the signed change this record applied.
func (r TransactionRecord) Delta() decimal.Decimal {
	return r.Kind.Signed(r.Amount)
}

func (r TransactionRecord) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
