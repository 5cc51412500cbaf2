package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/teller/model"
)

func sampleAccounts() []model.AccountSnapshot {
	return []model.AccountSnapshot{
		{
			AccountID: "ACC001",
			Customer: model.Customer{
				CustomerID: "CUS001",
				Name:       gofakeit.Name(),
				Age:        42,
				Contact:    "+233 20 555 0101",
				Address:    "12 Ring Road, Accra",
				Type:       model.CustomerTypePremium,
			},
			Type:    model.AccountTypeSavings,
			Balance: decimal.RequireFromString("1500.5"),
			Status:  model.StatusActive,
		},
		{
			AccountID: "ACC002",
			Customer: model.Customer{
				CustomerID: "CUS002",
				Name:       "Kofi Boateng",
				Age:        29,
				Contact:    "0244123456",
				Address:    "Box 44, Kumasi",
				Type:       model.CustomerTypeRegular,
			},
			Type:    model.AccountTypeChecking,
			Balance: decimal.RequireFromString("-300"),
			Status:  model.StatusInactive,
		},
	}
}

func TestAccountsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "accounts.csv")
	accounts := sampleAccounts()

	require.NoError(t, SaveAccounts(path, accounts))

	loaded, err := LoadAccounts(path)
	require.NoError(t, err)
	require.Len(t, loaded, len(accounts))

	for i, want := range accounts {
		got := loaded[i]
		assert.Equal(t, want.AccountID, got.AccountID)
		assert.Equal(t, want.Customer, got.Customer)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Status, got.Status)
		assert.True(t, want.Balance.Sub(got.Balance).Abs().LessThanOrEqual(decimal.RequireFromString("0.01")),
			"balance %s != %s", want.Balance, got.Balance)
	}
}

func TestSaveAccounts_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.csv")
	require.NoError(t, SaveAccounts(path, sampleAccounts()[1:]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ACC002,Kofi Boateng,CUS002,29,0244123456,\"Box 44, Kumasi\",Regular,-300.00,Inactive,Checking\n", string(data))
}

func TestTransactionsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")
	records := []model.TransactionRecord{
		model.NewTransactionRecord("ACC001", decimal.RequireFromString("250"), decimal.RequireFromString("1250"), 1, 1),
		model.NewTransactionRecord("ACC001", decimal.RequireFromString("-99.99"), decimal.RequireFromString("1150.01"), 2, 3),
	}

	require.NoError(t, SaveTransactions(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), ",ACC001,WITHDRAWAL,99.99,1150.01\n")

	loaded, err := LoadTransactions(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	for i, want := range records {
		assert.Equal(t, want.TransactionID, loaded[i].TransactionID)
		assert.Equal(t, want.AccountID, loaded[i].AccountID)
		assert.Equal(t, want.Kind, loaded[i].Kind)
		assert.True(t, want.Amount.Equal(loaded[i].Amount))
		assert.True(t, want.BalanceAfter.Equal(loaded[i].BalanceAfter))
	}
}

func TestLoadTransactions_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")
	content := "txn_1,ACC001,DEPOSIT,100.00,600.00\n" +
		"\n" +
		"txn_2,ACC001,DEPOSIT\n" +
		"txn_3,ACC001,TRANSFER,10.00,610.00\n" +
		"txn_4,ACC001,WITHDRAWAL,abc,610.00\n" +
		"txn_5,ACC002,withdrawal,50.00,-50.00\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loaded, err := LoadTransactions(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "txn_1", loaded[0].TransactionID)
	assert.Equal(t, "txn_5", loaded[1].TransactionID)
	assert.Equal(t, model.KindWithdrawal, loaded[1].Kind)
}

func TestLoadAccounts_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.csv")
	content := "ACC001,Ama Mensah,CUS001,34,0241234567,Accra,Regular,500.00,Active,Savings\n" +
		"ACC002,Short Line,CUS002\n" +
		"ACC003,Bad Age,CUS003,old,0241234567,Accra,Regular,500.00,Active,Savings\n" +
		"ACC004,Bad Type,CUS004,40,0241234567,Accra,Regular,500.00,Active,Brokerage\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loaded, err := LoadAccounts(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "ACC001", loaded[0].AccountID)
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()

	accounts, err := LoadAccounts(filepath.Join(dir, "nope.csv"))
	assert.NoError(t, err)
	assert.Empty(t, accounts)

	records, err := LoadTransactions(filepath.Join(dir, "nope.csv"))
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.csv")
	require.NoError(t, SaveAccounts(path, sampleAccounts()))
	require.NoError(t, SaveAccounts(path, sampleAccounts()[:1]))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "accounts.csv", entries[0].Name())

	loaded, err := LoadAccounts(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}
