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
package model

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type CustomerType string

const (
	CustomerTypeRegular CustomerType = "Regular"
	CustomerTypePremium CustomerType = "Premium"
)

var (
	namePattern    = regexp.MustCompile(`^[A-Za-z][A-Za-z .'\-]*$`)
	contactPattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,18}[0-9]$`)
)

// ParseCustomerType accepts the short and long spellings used in account files.
func ParseCustomerType(s string) (CustomerType, error) {
	switch s {
	case "Regular", "RegularCustomer":
		return CustomerTypeRegular, nil
	case "Premium", "PremiumCustomer":
		return CustomerTypePremium, nil
	}
	return "", fmt.Errorf("unknown customer type %q", s)
}

// Customer is the holder of one or more accounts.
type Customer struct {
	CustomerID string       `json:"customer_id"`
	Name       string       `json:"name"`
	Age        int          `json:"age"`
	Contact    string       `json:"contact"`
	Address    string       `json:"address"`
	Type       CustomerType `json:"customer_type"`
}

// Validate checks the customer fields before an account is opened for them.
func (c *Customer) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Contact = strings.TrimSpace(c.Contact)
	c.Address = strings.TrimSpace(c.Address)
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required, validation.Length(2, 50), validation.Match(namePattern)),
		validation.Field(&c.Age, validation.Required, validation.Min(18), validation.Max(120)),
		validation.Field(&c.Contact, validation.Required, validation.Match(contactPattern)),
		validation.Field(&c.Address, validation.Required, validation.Length(5, 100)),
		validation.Field(&c.Type, validation.Required, validation.In(CustomerTypeRegular, CustomerTypePremium)),
	)
}

// WaivesFees reports whether monthly account fees are waived for this customer.
func (c Customer) WaivesFees() bool {
	return c.Type == CustomerTypePremium
}
