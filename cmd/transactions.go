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

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/teller/model"
)

type postFunc func(ctx context.Context, accountID string, amount decimal.Decimal) (model.TransactionRecord, error)

func depositCommand(b *tellerInstance) *cobra.Command {
	return postCommand("deposit", "Deposit money into an account", func(ctx context.Context, id string, amount decimal.Decimal) (model.TransactionRecord, error) {
		return b.teller.Deposit(ctx, id, amount)
	}, b)
}

func withdrawCommand(b *tellerInstance) *cobra.Command {
	return postCommand("withdraw", "Withdraw money from an account", func(ctx context.Context, id string, amount decimal.Decimal) (model.TransactionRecord, error) {
		return b.teller.Withdraw(ctx, id, amount)
	}, b)
}

func postCommand(use, short string, post postFunc, b *tellerInstance) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <account-id> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := model.ParseMoney(args[1])
			if err != nil {
				return err
			}
			rec, err := post(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			if err := b.teller.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s of %s on %s committed, balance %s (%s)\n",
				rec.Kind, model.FormatMoney(rec.Amount), rec.AccountID, model.FormatMoney(rec.BalanceAfter), rec.TransactionID)
			return nil
		},
	}
}

func transactionCommands(b *tellerInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Query the transaction ledger",
	}

	cmd.AddCommand(listTransactionsCommand(b))
	cmd.AddCommand(summaryCommand(b))
	return cmd
}

func listTransactionsCommand(b *tellerInstance) *cobra.Command {
	var (
		accountID string
		kind      string
		minAmount string
		maxAmount string
		sortBy    string
		desc      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, optionally filtered and sorted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger := b.teller.Ledger()

			var records []model.TransactionRecord
			switch sortBy {
			case "":
				records = ledger.Records()
			case "amount":
				records = ledger.SortedByAmount(desc)
			case "time":
				records = ledger.SortedByTime(desc)
			default:
				return fmt.Errorf("unknown sort %q, use amount or time", sortBy)
			}

			var keep []func(model.TransactionRecord) bool
			if accountID != "" {
				if _, err := b.teller.Registry().Get(accountID); err != nil {
					return err
				}
				keep = append(keep, func(r model.TransactionRecord) bool { return r.AccountID == accountID })
			}
			if kind != "" {
				k, err := model.ParseTransactionKind(kind)
				if err != nil {
					return err
				}
				keep = append(keep, func(r model.TransactionRecord) bool { return r.Kind == k })
			}
			if minAmount != "" || maxAmount != "" {
				lo, hi, err := amountRange(minAmount, maxAmount)
				if err != nil {
					return err
				}
				keep = append(keep, func(r model.TransactionRecord) bool {
					return r.Amount.GreaterThanOrEqual(lo) && r.Amount.LessThanOrEqual(hi)
				})
			}

			filtered := records[:0]
		next:
			for _, r := range records {
				for _, fn := range keep {
					if !fn(r) {
						continue next
					}
				}
				filtered = append(filtered, r)
			}

			if len(filtered) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions found.")
				return nil
			}
			return printTransactions(cmd.OutOrStdout(), filtered)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "only transactions of this account")
	cmd.Flags().StringVar(&kind, "kind", "", "DEPOSIT or WITHDRAWAL")
	cmd.Flags().StringVar(&minAmount, "min", "", "minimum amount, inclusive")
	cmd.Flags().StringVar(&maxAmount, "max", "", "maximum amount, inclusive")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by amount or time")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort in descending order")
	return cmd
}

func amountRange(minAmount, maxAmount string) (decimal.Decimal, decimal.Decimal, error) {
	lo, hi := decimal.Zero, decimal.New(1, 18)
	var err error
	if minAmount != "" {
		if lo, err = model.ParseMoney(minAmount); err != nil {
			return lo, hi, err
		}
	}
	if maxAmount != "" {
		if hi, err = model.ParseMoney(maxAmount); err != nil {
			return lo, hi, err
		}
	}
	if lo.GreaterThan(hi) {
		return lo, hi, fmt.Errorf("minimum %s is above maximum %s", lo, hi)
	}
	return lo, hi, nil
}

func printTransactions(out io.Writer, records []model.TransactionRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tACCOUNT\tKIND\tAMOUNT\tBALANCE AFTER\tWORKER\tTIME")
	for _, r := range records {
		// records loaded from file carry no timestamp
		at := "-"
		if !r.Timestamp.IsZero() {
			at = r.Timestamp.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.TransactionID, r.AccountID, r.Kind, model.FormatMoney(r.Amount),
			model.FormatMoney(r.BalanceAfter), r.WorkerID, at)
	}
	return w.Flush()
}

func summaryCommand(b *tellerInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Totals per account and per kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger := b.teller.Ledger()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tDEPOSITS\tWITHDRAWALS\tBALANCE")
			for _, acc := range b.teller.Registry().List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", acc.ID(),
					model.FormatMoney(ledger.SumByAccount(acc.ID(), model.KindDeposit)),
					model.FormatMoney(ledger.SumByAccount(acc.ID(), model.KindWithdrawal)),
					model.FormatMoney(acc.Balance()))
			}
			fmt.Fprintf(w, "TOTAL\t%s\t%s\t\n",
				model.FormatMoney(ledger.SumByKind(model.KindDeposit)),
				model.FormatMoney(ledger.SumByKind(model.KindWithdrawal)))
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %s ledger entries used\n", ledger.Count(), capacityLabel(ledger.Capacity()))
			return nil
		},
	}
}

func capacityLabel(capacity int) string {
	if capacity == 0 {
		return "unbounded"
	}
	return fmt.Sprint(capacity)
}
