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
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/blnkfinance/teller"
	"github.com/blnkfinance/teller/model"
)

func accountCommands(b *tellerInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage customer accounts",
	}

	cmd.AddCommand(createAccountCommand(b))
	cmd.AddCommand(listAccountsCommand(b))
	cmd.AddCommand(statusCommand(b, "activate", model.StatusActive))
	cmd.AddCommand(statusCommand(b, "deactivate", model.StatusInactive))
	return cmd
}

func createAccountCommand(b *tellerInstance) *cobra.Command {
	var (
		customer     model.Customer
		customerType string
		accountType  string
		initial      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open an account for a new customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := model.ParseCustomerType(customerType)
			if err != nil {
				return err
			}
			at, err := model.ParseAccountType(accountType)
			if err != nil {
				return err
			}
			amount, err := model.ParseMoney(initial)
			if err != nil {
				return err
			}
			customer.Type = ct

			acc, err := b.teller.OpenAccount(customer, at, amount)
			if err != nil {
				return err
			}
			if err := b.teller.Save(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s account %s for %s (%s) with balance %s\n",
				acc.Type(), acc.ID(), acc.Customer().Name, acc.Customer().CustomerID, model.FormatMoney(acc.Balance()))
			return nil
		},
	}

	cmd.Flags().StringVar(&customer.Name, "name", "", "customer name")
	cmd.Flags().IntVar(&customer.Age, "age", 0, "customer age")
	cmd.Flags().StringVar(&customer.Contact, "contact", "", "customer phone number")
	cmd.Flags().StringVar(&customer.Address, "address", "", "customer address")
	cmd.Flags().StringVar(&customerType, "customer-type", string(model.CustomerTypeRegular), "Regular or Premium")
	cmd.Flags().StringVar(&accountType, "type", string(model.AccountTypeSavings), "Savings or Checking")
	cmd.Flags().StringVar(&initial, "initial", "0", "opening balance")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("contact")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func listAccountsCommand(b *tellerInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts := b.teller.Registry().List()
			if len(accounts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No accounts found.")
				return nil
			}
			return printAccounts(cmd.OutOrStdout(), accounts)
		},
	}
}

func printAccounts(out io.Writer, accounts []*teller.Account) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tCUSTOMER\tNAME\tTYPE\tPOLICY\tBALANCE\tSTATUS")
	for _, acc := range accounts {
		snap := acc.Snapshot()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			snap.AccountID, snap.Customer.CustomerID, snap.Customer.Name, snap.Type,
			snap.Policy, model.FormatMoney(snap.Balance), snap.Status)
	}
	return w.Flush()
}

func statusCommand(b *tellerInstance, use string, status model.AccountStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <account-id>",
		Short: fmt.Sprintf("Mark an account %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := b.teller.SetStatus(args[0], status); err != nil {
				return err
			}
			if err := b.teller.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s is now %s\n", args[0], status)
			return nil
		},
	}
}
