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

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/blnkfinance/teller/model"
)

type FeeStatus string

const (
	FeeCharged FeeStatus = "Charged"
	FeeWaived  FeeStatus = "Waived"
	FeeFailed  FeeStatus = "Failed"
)

type FeeResult struct {
	AccountID string
	Status    FeeStatus
	Record    *model.TransactionRecord
	Err       error
}

// FeeReport lists the outcome for every active checking account.
type FeeReport struct {
	Fee     decimal.Decimal
	Charged int
	Waived  int
	Failed  int
	Results []FeeResult
}

// ApplyMonthlyFees charges the configured monthly fee to every active checking
// account. Premium customers are waived. The fee goes through the same guarded
// mutation as any withdrawal, so an account already at its overdraft limit
// fails and is left untouched.
func (t *Teller) ApplyMonthlyFees(ctx context.Context) FeeReport {
	_, span := tracer.Start(ctx, "Applying monthly fees")
	defer span.End()

	report := FeeReport{Fee: model.RoundMoney(decimal.NewFromFloat(t.cnf.Policy.CheckingMonthlyFee))}
	if !report.Fee.IsPositive() {
		return report
	}

	for _, acc := range t.registry.Active() {
		if acc.Type() != model.AccountTypeChecking {
			continue
		}
		result := FeeResult{AccountID: acc.ID()}
		switch {
		case acc.Customer().WaivesFees():
			result.Status = FeeWaived
			report.Waived++
		default:
			rec, err := t.apply(acc, report.Fee.Neg(), TellerWorkerID)
			if err != nil {
				result.Status, result.Err = FeeFailed, err
				report.Failed++
				logrus.Warnf("monthly fee for %s not charged: %v", acc.ID(), err)
			} else {
				result.Status, result.Record = FeeCharged, &rec
				report.Charged++
			}
		}
		report.Results = append(report.Results, result)
	}

	span.SetAttributes(
		attribute.Int("fees.charged", report.Charged),
		attribute.Int("fees.waived", report.Waived),
		attribute.Int("fees.failed", report.Failed),
	)
	logrus.Infof("monthly fees: %d charged, %d waived, %d failed", report.Charged, report.Waived, report.Failed)
	return report
}
