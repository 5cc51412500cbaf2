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
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/teller"
	"github.com/blnkfinance/teller/config"
	"github.com/blnkfinance/teller/internal/prompt"
	"github.com/blnkfinance/teller/model"
)

func simulateCommand(b *tellerInstance) *cobra.Command {
	var (
		workers int
		tasks   int
		noWait  bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run concurrent workers against the active accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := prompt.NewReader(cmd.InOrStdin(), cmd.OutOrStdout())
			if !cmd.Flags().Changed("workers") {
				n, err := in.ReadIntDefault("Number of workers", b.cnf.Simulation.Workers, config.MIN_WORKERS, config.MAX_WORKERS)
				if err != nil {
					return err
				}
				workers = n
			}
			if !cmd.Flags().Changed("tasks") {
				tasks = b.cnf.Simulation.TasksPerWorker
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logrus.Infof("simulating %d workers with %d tasks each", workers, tasks)
			summary, err := b.teller.Simulate(ctx, workers, tasks)
			if err != nil {
				return err
			}

			// committed transactions are saved even when the run timed out
			if err := b.teller.Save(cmd.Context()); err != nil {
				return err
			}
			if err := printSummary(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			if err := printAccounts(cmd.OutOrStdout(), b.teller.Registry().List()); err != nil {
				return err
			}

			if !noWait {
				in.WaitForEnter()
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, fmt.Sprintf("number of workers (%d-%d), asked for when omitted with simulation.workers as the default", config.MIN_WORKERS, config.MAX_WORKERS))
	cmd.Flags().IntVar(&tasks, "tasks", 0, "transactions attempted by each worker")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "exit without waiting for Enter")
	return cmd
}

func printSummary(out io.Writer, summary teller.Summary) error {
	fmt.Fprintf(out, "Simulation %s: %d committed, %d rejected, %d timed out\n",
		summary.State, summary.Committed, summary.Rejected, summary.TimedOut)
	if summary.Cancelled {
		fmt.Fprintln(out, "Simulation was interrupted before all workers finished")
	}
	if summary.StartedAt != nil && summary.FinishedAt != nil {
		fmt.Fprintf(out, "Took %s\n", summary.FinishedAt.Sub(*summary.StartedAt).Round(time.Millisecond))
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKER\tCOMMITTED\tREJECTED")
	for _, r := range summary.Workers {
		fmt.Fprintf(w, "%d\t%d\t%d\n", r.WorkerID, r.Committed, r.Rejected)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	reasons := make([]string, 0, len(summary.Reasons))
	for reason := range summary.Reasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(out, "  rejected %dx: %s\n", summary.Reasons[reason], reason)
	}

	for _, r := range summary.Workers {
		for _, o := range r.Outcomes {
			if o.Committed() {
				fmt.Fprintf(out, "worker %d: %s %s on %s, balance %s\n", o.WorkerID, o.Record.Kind,
					model.FormatMoney(o.Record.Amount), o.AccountID, model.FormatMoney(o.Record.BalanceAfter))
			}
		}
	}
	return nil
}
