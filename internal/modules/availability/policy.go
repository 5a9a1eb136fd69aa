// Package availability decides, from local wall-clock time alone, whether
// orders are accepted and which surge multiplier applies.
//
// Windows are half-open [Start, End) in minutes since local midnight and are
// evaluated against the same calendar day: End = 24:00 means the end-of-day
// instant, so 21:30–24:00 never matches 00:00 of the next day.
package availability

import (
	"fmt"
	"time"
)

const endOfDay = 24 * 60

// ClockTime is a time of day in minutes since midnight, 0..1440.
type ClockTime int

// At builds a ClockTime; At(24, 0) is the end-of-day instant.
func At(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Window is a named half-open interval of the day.
type Window struct {
	Name  string
	Start ClockTime
	End   ClockTime
}

func (w Window) Contains(c ClockTime) bool {
	return c >= w.Start && c < w.End
}

// PeakWindow raises the multiplier while it matches. When Days is non-empty
// the window only applies on those weekdays.
type PeakWindow struct {
	Window
	Surge float64
	Days  []time.Weekday
}

func (p PeakWindow) matches(day time.Weekday, c ClockTime) bool {
	if !p.Contains(c) {
		return false
	}
	if len(p.Days) == 0 {
		return true
	}
	for _, d := range p.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Result is the outcome of evaluating the policy at an instant.
type Result struct {
	Available bool
	Surge     float64
	Window    string
}

// Policy is immutable once built; Evaluate is a pure function of its input.
type Policy struct {
	Curfew  Window
	Peaks   []PeakWindow
	Weekend PeakWindow
}

// DefaultPolicy is the FlyTaxi schedule.
func DefaultPolicy() Policy {
	return Policy{
		Curfew: Window{Name: "curfew", Start: At(0, 0), End: At(5, 0)},
		Peaks: []PeakWindow{
			{Window: Window{Name: "early_morning", Start: At(5, 0), End: At(7, 0)}, Surge: 1.3},
			{Window: Window{Name: "morning_commute", Start: At(7, 30), End: At(9, 30)}, Surge: 1.3},
			{Window: Window{Name: "evening_commute", Start: At(17, 0), End: At(19, 30)}, Surge: 1.3},
			{Window: Window{Name: "late_evening", Start: At(21, 30), End: At(24, 0)}, Surge: 1.5},
		},
		Weekend: PeakWindow{
			Window: Window{Name: "weekend_night", Start: At(22, 0), End: At(24, 0)},
			Surge:  2.0,
			Days:   []time.Weekday{time.Friday, time.Saturday},
		},
	}
}

// Evaluate applies the policy to t as read in its own location; callers
// convert to the service time zone first.
func (p Policy) Evaluate(t time.Time) Result {
	c := At(t.Hour(), t.Minute())
	day := t.Weekday()

	if p.Curfew.Contains(c) {
		return Result{Available: false, Surge: 1.0, Window: p.Curfew.Name}
	}
	if p.Weekend.Surge > 0 && p.Weekend.matches(day, c) {
		return Result{Available: true, Surge: p.Weekend.Surge, Window: p.Weekend.Name}
	}
	for _, peak := range p.Peaks {
		if peak.matches(day, c) {
			return Result{Available: true, Surge: peak.Surge, Window: peak.Name}
		}
	}
	return Result{Available: true, Surge: 1.0}
}

// Validate reports windows that are empty or fall outside the day.
func (p Policy) Validate() error {
	windows := []Window{p.Curfew, p.Weekend.Window}
	for _, peak := range p.Peaks {
		windows = append(windows, peak.Window)
	}
	for _, w := range windows {
		if w.Start == 0 && w.End == 0 {
			continue
		}
		if w.Start < 0 || w.End > endOfDay || w.Start >= w.End {
			return fmt.Errorf("window %q [%s, %s) is not a forward interval within one day", w.Name, w.Start, w.End)
		}
	}
	if p.Weekend.Surge < 0 {
		return fmt.Errorf("window %q has negative surge", p.Weekend.Name)
	}
	for _, peak := range p.Peaks {
		if peak.Surge <= 0 {
			return fmt.Errorf("window %q needs a positive surge", peak.Name)
		}
	}
	return nil
}

// Clock evaluates a policy against the current time in a fixed location.
type Clock struct {
	policy Policy
	loc    *time.Location
	now    func() time.Time
}

func NewClock(policy Policy, loc *time.Location, now func() time.Time) *Clock {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{policy: policy, loc: loc, now: now}
}

// Now returns the current local time used for every decision.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Current evaluates the policy at Now.
func (c *Clock) Current() Result {
	return c.policy.Evaluate(c.Now())
}
