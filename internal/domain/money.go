package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultCurrency is the currency every remote price is quoted in.
var DefaultCurrency = currency.IDR

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

func NewMoney(amount decimal.Decimal) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency.String(), m.Amount.StringFixed(0))
}

// MarshalText keeps Money readable in JSON bodies, e.g. "IDR 250000".
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
