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

	"github.com/spf13/cobra"

	"github.com/blnkfinance/teller/model"
)

func feeCommands(b *tellerInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Account fees",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Charge the monthly fee to every active checking account",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := b.teller.ApplyMonthlyFees(cmd.Context())
			if report.Charged > 0 {
				if err := b.teller.Save(cmd.Context()); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, r := range report.Results {
				switch {
				case r.Err != nil:
					fmt.Fprintf(out, "%s: %s (%v)\n", r.AccountID, r.Status, r.Err)
				case r.Record != nil:
					fmt.Fprintf(out, "%s: %s, balance %s\n", r.AccountID, r.Status, model.FormatMoney(r.Record.BalanceAfter))
				default:
					fmt.Fprintf(out, "%s: %s\n", r.AccountID, r.Status)
				}
			}
			fmt.Fprintf(out, "Monthly fee %s: %d charged, %d waived, %d failed\n",
				model.FormatMoney(report.Fee), report.Charged, report.Waived, report.Failed)
			return nil
		},
	})
	return cmd
}
