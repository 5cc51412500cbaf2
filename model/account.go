package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	StatusActive   AccountStatus = "Active"
	StatusInactive AccountStatus = "Inactive"
)

// ParseAccountStatus maps a persisted status string to an AccountStatus.
func ParseAccountStatus(s string) (AccountStatus, error) {
	switch s {
	case string(StatusActive):
		return StatusActive, nil
	case string(StatusInactive):
		return StatusInactive, nil
	}
	return "", fmt.Errorf("unknown account status %q", s)
}

// AccountSnapshot is a point-in-time copy of an account, safe to hand out and
// to persist. It carries no lock.
type AccountSnapshot struct {
	AccountID     string          `json:"account_id"`
	Customer      Customer        `json:"customer"`
	Type          AccountType     `json:"account_type"`
	Policy        Policy          `json:"-"`
	Balance       decimal.Decimal `json:"balance"`
	Status        AccountStatus   `json:"status"`
	DeactivatedAt *time.Time      `json:"deactivated_at,omitempty"`
}
