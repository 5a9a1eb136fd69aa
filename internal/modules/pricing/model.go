// README: Tariff definition for each car class and the quotes derived from it.
package pricing

import "flytaxi/internal/types"

type CarClass string

const (
	ClassStandard CarClass = "standard"
	ClassComfort  CarClass = "comfort"
	ClassBusiness CarClass = "business"
)

// Tariff prices one car class: BaseFare covers the first IncludedKm, each
// kilometre beyond that costs PerKm.
type Tariff struct {
	Class      CarClass
	Label      string
	BaseFare   int64
	IncludedKm float64
	PerKm      int64
	Currency   string
}

type Quote struct {
	Class CarClass
	Label string
	Price types.Money
	Surge float64
}

// DefaultTariffs is the FlyTaxi city tariff table.
func DefaultTariffs() []Tariff {
	return []Tariff{
		{Class: ClassStandard, Label: "Стандарт", BaseFare: 120, IncludedKm: 2, PerKm: 20, Currency: types.DefaultCurrency},
		{Class: ClassComfort, Label: "Комфорт", BaseFare: 150, IncludedKm: 2, PerKm: 25, Currency: types.DefaultCurrency},
		{Class: ClassBusiness, Label: "Бізнес", BaseFare: 180, IncludedKm: 2, PerKm: 27, Currency: types.DefaultCurrency},
	}
}
