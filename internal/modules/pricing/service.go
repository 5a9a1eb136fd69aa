// README: Pricing engine computes fares from the immutable tariff table.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"flytaxi/internal/types"
)

var (
	ErrUnknownCarClass  = errors.New("unknown car class")
	ErrNegativeDistance = errors.New("distance must be non-negative")
	ErrInvalidSurge     = errors.New("surge multiplier must be positive")
	ErrInvalidTariff    = errors.New("invalid tariff")
)

// Service holds a private copy of the tariff table; it never changes after
// construction, so all methods are safe for concurrent use.
type Service struct {
	tariffs map[CarClass]Tariff
	order   []CarClass
}

func NewService(tariffs []Tariff) (*Service, error) {
	if len(tariffs) == 0 {
		return nil, fmt.Errorf("%w: empty tariff table", ErrInvalidTariff)
	}
	s := &Service{tariffs: make(map[CarClass]Tariff, len(tariffs))}
	for _, t := range tariffs {
		if t.Class == "" || t.BaseFare < 0 || t.PerKm < 0 || t.IncludedKm < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTariff, t.Class)
		}
		if _, dup := s.tariffs[t.Class]; dup {
			return nil, fmt.Errorf("%w: duplicate class %q", ErrInvalidTariff, t.Class)
		}
		if t.Currency == "" {
			t.Currency = types.DefaultCurrency
		}
		s.tariffs[t.Class] = t
		s.order = append(s.order, t.Class)
	}
	return s, nil
}

// Tariff looks up a class; ok is false for unknown identifiers.
func (s *Service) Tariff(class CarClass) (Tariff, bool) {
	t, ok := s.tariffs[class]
	return t, ok
}

// Tariffs returns the table in its configured display order.
func (s *Service) Tariffs() []Tariff {
	out := make([]Tariff, 0, len(s.order))
	for _, c := range s.order {
		out = append(out, s.tariffs[c])
	}
	return out
}

// Price returns the fare for class over distanceKm at the given surge.
func (s *Service) Price(class CarClass, distanceKm, surge float64) (types.Money, error) {
	t, ok := s.tariffs[class]
	if !ok {
		return types.Money{}, fmt.Errorf("%w: %q", ErrUnknownCarClass, class)
	}
	amount, err := Compute(t, distanceKm, surge)
	if err != nil {
		return types.Money{}, err
	}
	return types.Money{Amount: amount, Currency: t.Currency}, nil
}

// QuoteAll prices every class for the same trip, in display order.
func (s *Service) QuoteAll(distanceKm, surge float64) ([]Quote, error) {
	quotes := make([]Quote, 0, len(s.order))
	for _, c := range s.order {
		price, err := s.Price(c, distanceKm, surge)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, Quote{Class: c, Label: s.tariffs[c].Label, Price: price, Surge: surge})
	}
	return quotes, nil
}

// Compute is the fare formula:
//
//	billable = max(0, distanceKm - IncludedKm)
//	fare     = trunc((BaseFare + billable*PerKm) * surge)
//
// Arithmetic is decimal so truncation happens exactly once, at the end.
func Compute(t Tariff, distanceKm, surge float64) (int64, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return 0, ErrNegativeDistance
	}
	if math.IsNaN(surge) || math.IsInf(surge, 0) || surge <= 0 {
		return 0, ErrInvalidSurge
	}

	billable := decimal.Max(decimal.Zero, decimal.NewFromFloat(distanceKm).Sub(decimal.NewFromFloat(t.IncludedKm)))
	raw := decimal.NewFromInt(t.BaseFare).Add(billable.Mul(decimal.NewFromInt(t.PerKm)))
	return raw.Mul(decimal.NewFromFloat(surge)).IntPart(), nil
}
