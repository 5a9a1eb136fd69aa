// README: Bounded-window rating aggregate kept per rated subject.
package rating

import (
	"errors"
	"fmt"

	"flytaxi/internal/types"
)

const (
	MinScore   = 1
	MaxScore   = 5
	WindowSize = 100

	// NeutralAverage is reported before any score has been recorded.
	NeutralAverage = 5.0
)

var (
	ErrInvalidScore     = errors.New("score must be between 1 and 5")
	ErrCorruptAggregate = errors.New("rating aggregate invariant violated")
)

// Aggregate keeps the most recent WindowSize scores plus their running sum
// and count. Sum == Σ History and Count == len(History) at all times.
type Aggregate struct {
	SubjectID types.ID
	History   []int
	Sum       int
	Count     int
}

// Add appends score, evicting the oldest entry first when the window is full.
func (a *Aggregate) Add(score int) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("%w: got %d", ErrInvalidScore, score)
	}
	if len(a.History) >= WindowSize {
		oldest := a.History[0]
		a.History = append(a.History[:0:0], a.History[1:]...)
		a.Sum -= oldest
		a.Count--
	}
	a.History = append(a.History, score)
	a.Sum += score
	a.Count++
	return nil
}

// Average is Sum/Count, or NeutralAverage for an empty window.
func (a Aggregate) Average() float64 {
	if a.Count == 0 {
		return NeutralAverage
	}
	return float64(a.Sum) / float64(a.Count)
}

// Check verifies the sum/count invariant, e.g. after loading from storage.
func (a Aggregate) Check() error {
	if a.Count != len(a.History) || len(a.History) > WindowSize {
		return fmt.Errorf("%w: count=%d len=%d", ErrCorruptAggregate, a.Count, len(a.History))
	}
	sum := 0
	for _, s := range a.History {
		if s < MinScore || s > MaxScore {
			return fmt.Errorf("%w: stored score %d", ErrCorruptAggregate, s)
		}
		sum += s
	}
	if sum != a.Sum {
		return fmt.Errorf("%w: sum=%d expected=%d", ErrCorruptAggregate, a.Sum, sum)
	}
	return nil
}
