// README: Common money value object used across modules.
package types

import "strconv"

// DefaultCurrency is used when a tariff row carries no currency.
const DefaultCurrency = "UAH"

type Money struct {
	Amount   int64
	Currency string
}

func (m Money) String() string {
	cur := m.Currency
	if cur == "" {
		cur = DefaultCurrency
	}
	return strconv.FormatInt(m.Amount, 10) + " " + cur
}
