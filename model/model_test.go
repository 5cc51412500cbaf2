package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	module := "txn"
	id := GenerateUUIDWithSuffix(module)
	assert.Contains(t, id, module+"_")
	assert.NotEqual(t, id, GenerateUUIDWithSuffix(module))
}

func TestParseMoney(t *testing.T) {
	amount, err := ParseMoney("150.456")
	assert.NoError(t, err)
	assert.Equal(t, "150.46", amount.StringFixed(2))

	_, err = ParseMoney("abc")
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$500.00", FormatMoney(d("500")))
	assert.Equal(t, "-$300.00", FormatMoney(d("-300")))
}

func TestMutationError(t *testing.T) {
	err := NewMutationError(ErrInsufficientFunds, "ACC001", "need $%s", "10.00")
	assert.EqualError(t, err, "insufficient funds (account ACC001): need $10.00")
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.True(t, IsRejection(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, "insufficient funds", RejectionKind(err))

	assert.False(t, IsRejection(errors.New("disk full")))
	assert.Equal(t, "", RejectionKind(nil))
}

func TestCustomer_Validate(t *testing.T) {
	valid := Customer{
		Name:    "Ama Mensah",
		Age:     34,
		Contact: "+233 24 555 0101",
		Address: gofakeit.Street(),
		Type:    CustomerTypeRegular,
	}
	assert.NoError(t, valid.Validate())

	tooYoung := valid
	tooYoung.Age = 12
	assert.Error(t, tooYoung.Validate())

	badName := valid
	badName.Name = "R2D2"
	assert.Error(t, badName.Validate())

	badContact := valid
	badContact.Contact = "call me"
	assert.Error(t, badContact.Validate())

	unknownType := valid
	unknownType.Type = "Gold"
	assert.Error(t, unknownType.Validate())
}

func TestCustomer_WaivesFees(t *testing.T) {
	assert.True(t, Customer{Type: CustomerTypePremium}.WaivesFees())
	assert.False(t, Customer{Type: CustomerTypeRegular}.WaivesFees())
}
