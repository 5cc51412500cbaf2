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
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/teller"
	"github.com/blnkfinance/teller/config"
)

// Teller is the CLI application wrapping the root command.
type Teller struct {
	cmd *cobra.Command
}

// tellerInstance is the runtime state shared by the subcommands.
type tellerInstance struct {
	teller *teller.Teller
	cnf    *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration, connects the optional redis lock and loads
// the data files before any subcommand runs.
func preRun(app *tellerInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		if level, err := logrus.ParseLevel(cnf.LogLevel); err == nil {
			logrus.SetLevel(level)
		}

		t, err := setupTeller(cnf)
		if err != nil {
			return err
		}
		if err := t.Load(cmd.Context()); err != nil {
			_ = t.Close()
			return fmt.Errorf("error loading data: %w", err)
		}

		app.teller = t
		app.cnf = cnf
		return nil
	}
}

func setupTeller(cnf *config.Configuration) (*teller.Teller, error) {
	t, err := teller.NewTeller(cnf)
	if err != nil {
		return nil, fmt.Errorf("error creating teller: %v", err)
	}
	return t, nil
}

func postRun(app *tellerInstance) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if app.teller != nil {
			_ = app.teller.Close()
		}
	}
}

// NewCLI creates the root command and its subcommands.
func NewCLI() *Teller {
	var configFile string
	t := &tellerInstance{}

	rootCmd := &cobra.Command{
		Use:           "teller",
		Short:         "Concurrent account ledger and transaction simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./teller.json", "Configuration file for teller")
	rootCmd.PersistentPreRunE = preRun(t, &configFile)
	rootCmd.PersistentPostRun = postRun(t)

	rootCmd.AddCommand(accountCommands(t))
	rootCmd.AddCommand(depositCommand(t))
	rootCmd.AddCommand(withdrawCommand(t))
	rootCmd.AddCommand(transactionCommands(t))
	rootCmd.AddCommand(feeCommands(t))
	rootCmd.AddCommand(simulateCommand(t))
	rootCmd.AddCommand(configCommands())

	return &Teller{cmd: rootCmd}
}

func (w Teller) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
