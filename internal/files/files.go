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

package files

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/teller/model"
)

const (
	AccountFieldCount     = 10
	TransactionFieldCount = 5
)

// SaveAccounts writes one line per account:
// accountId,customerName,customerId,age,contact,address,customerType,balance,status,accountType
func SaveAccounts(path string, accounts []model.AccountSnapshot) error {
	rows := make([][]string, 0, len(accounts))
	for _, acc := range accounts {
		rows = append(rows, []string{
			acc.AccountID,
			acc.Customer.Name,
			acc.Customer.CustomerID,
			strconv.Itoa(acc.Customer.Age),
			acc.Customer.Contact,
			acc.Customer.Address,
			string(acc.Customer.Type),
			acc.Balance.StringFixed(2),
			string(acc.Status),
			string(acc.Type),
		})
	}
	return writeFile(path, rows)
}

// SaveTransactions writes one line per record:
// transactionId,accountId,kind,amount,balanceAfter
func SaveTransactions(path string, records []model.TransactionRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.TransactionID,
			rec.AccountID,
			string(rec.Kind),
			rec.Amount.StringFixed(2),
			rec.BalanceAfter.StringFixed(2),
		})
	}
	return writeFile(path, rows)
}

// LoadAccounts reads the accounts file. A missing file yields no accounts.
// The returned snapshots carry the account type but no policy; the caller
// builds the policy from its configuration.
func LoadAccounts(path string) ([]model.AccountSnapshot, error) {
	var accounts []model.AccountSnapshot
	err := readFile(path, AccountFieldCount, func(fields []string) error {
		acc, err := parseAccount(fields)
		if err != nil {
			return err
		}
		accounts = append(accounts, acc)
		return nil
	})
	return accounts, err
}

// LoadTransactions reads the transactions file. A missing file yields no records.
func LoadTransactions(path string) ([]model.TransactionRecord, error) {
	var records []model.TransactionRecord
	err := readFile(path, TransactionFieldCount, func(fields []string) error {
		rec, err := parseTransaction(fields)
		if err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

// writeFile replaces path with rows. The rows go to a temporary file in the
// same directory which is then renamed over the target.
func writeFile(path string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating data directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temporary file")
	}
	defer cleanupTempFile(tmp)

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrapf(err, "syncing %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "replacing %s", path)
	}
	return nil
}

// cleanupTempFile removes the temporary file if it was not renamed.
func cleanupTempFile(file *os.File) {
	name := file.Name()
	file.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		logrus.Errorf("error removing temporary file %s: %v", name, err)
	}
}

// readFile calls parse for every well formed line. Blank lines are skipped by
// the csv reader; short lines, unparsable lines and lines parse rejects are
// logged and discarded.
func readFile(path string, minFields int, parse func([]string) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Infof("%s does not exist, starting empty", path)
			return nil
		}
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	line := 0
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				logrus.Warnf("%s: skipping malformed line %d: %v", path, parseErr.Line, err)
				continue
			}
			return errors.Wrapf(err, "reading %s", path)
		}
		if len(fields) < minFields {
			logrus.Warnf("%s: skipping line %d with %d fields, expected %d", path, line, len(fields), minFields)
			continue
		}
		if err := parse(fields); err != nil {
			logrus.Warnf("%s: skipping line %d: %v", path, line, err)
		}
	}
	return nil
}

func parseAccount(fields []string) (model.AccountSnapshot, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	age, err := strconv.Atoi(fields[3])
	if err != nil {
		return model.AccountSnapshot{}, errors.Wrap(err, "invalid age")
	}
	customerType, err := model.ParseCustomerType(fields[6])
	if err != nil {
		return model.AccountSnapshot{}, err
	}
	balance, err := model.ParseMoney(fields[7])
	if err != nil {
		return model.AccountSnapshot{}, err
	}
	status, err := model.ParseAccountStatus(fields[8])
	if err != nil {
		return model.AccountSnapshot{}, err
	}
	accountType, err := model.ParseAccountType(fields[9])
	if err != nil {
		return model.AccountSnapshot{}, err
	}
	if fields[0] == "" {
		return model.AccountSnapshot{}, errors.New("missing account id")
	}

	return model.AccountSnapshot{
		AccountID: fields[0],
		Customer: model.Customer{
			Name:       fields[1],
			CustomerID: fields[2],
			Age:        age,
			Contact:    fields[4],
			Address:    fields[5],
			Type:       customerType,
		},
		Type:    accountType,
		Balance: balance,
		Status:  status,
	}, nil
}

func parseTransaction(fields []string) (model.TransactionRecord, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if fields[0] == "" || fields[1] == "" {
		return model.TransactionRecord{}, errors.New("missing transaction or account id")
	}
	kind, err := model.ParseTransactionKind(fields[2])
	if err != nil {
		return model.TransactionRecord{}, err
	}
	amount, err := model.ParseMoney(fields[3])
	if err != nil {
		return model.TransactionRecord{}, err
	}
	balanceAfter, err := model.ParseMoney(fields[4])
	if err != nil {
		return model.TransactionRecord{}, err
	}

	return model.TransactionRecord{
		TransactionID: fields[0],
		AccountID:     fields[1],
		Kind:          kind,
		Amount:        amount.Abs(),
		BalanceAfter:  balanceAfter,
	}, nil
}
