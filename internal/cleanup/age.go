package cleanup

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultAge is used when a run does not name an age.
const DefaultAge = "1 month"

var ErrInvalidAge = errors.New("age is not recognized")

// Age is a relative duration such as "1 month", "2 weeks 3 days" or "72h".
// Calendar units are applied with time.AddDate and normalize the way it does.
type Age struct {
	raw    string
	years  int
	months int
	days   int
	clock  time.Duration
}

// maxAgeDays bounds the calendar part of an age so that cutoffs stay in the past.
const maxAgeDays = 1000 * 366

var ageTerm = regexp.MustCompile(`^\s*\+?(\d+)\s*([a-zA-Z]+)\s*,?`)

// ParseAge parses a relative age. Terms are summed; an unknown unit or an
// empty string is an error wrapping ErrInvalidAge.
func ParseAge(s string) (Age, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Age{}, fmt.Errorf("%w: empty", ErrInvalidAge)
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return Age{}, fmt.Errorf("%w: %q is negative", ErrInvalidAge, raw)
		}
		return Age{raw: raw, clock: d}, nil
	}

	a := Age{raw: raw}
	rest := s
	for rest != "" {
		m := ageTerm.FindStringSubmatch(rest)
		if m == nil {
			return Age{}, fmt.Errorf("%w: %q", ErrInvalidAge, raw)
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Age{}, fmt.Errorf("%w: %q", ErrInvalidAge, raw)
		}
		if err := a.add(n, strings.ToLower(m[2])); err != nil {
			return Age{}, fmt.Errorf("%w: %q: %v", ErrInvalidAge, raw, err)
		}
		rest = strings.TrimSpace(rest[len(m[0]):])
	}
	return a, nil
}

func (a *Age) add(n int, unit string) error {
	switch unit {
	case "s", "sec", "secs", "second", "seconds":
		return a.addClock(n, time.Second)
	case "min", "mins", "minute", "minutes":
		return a.addClock(n, time.Minute)
	case "h", "hour", "hours":
		return a.addClock(n, time.Hour)
	case "d", "day", "days":
		return a.addCalendar(&a.days, n, 1, 1)
	case "week", "weeks":
		return a.addCalendar(&a.days, n, 7, 7)
	case "fortnight", "fortnights":
		return a.addCalendar(&a.days, n, 14, 14)
	case "month", "months":
		return a.addCalendar(&a.months, n, 1, 31)
	case "year", "years":
		return a.addCalendar(&a.years, n, 1, 366)
	default:
		return fmt.Errorf("unknown unit %q", unit)
	}
}

func (a *Age) addClock(n int, unit time.Duration) error {
	if int64(n) > math.MaxInt64/int64(unit) {
		return errors.New("age too large")
	}
	d := time.Duration(n) * unit
	if a.clock > math.MaxInt64-d {
		return errors.New("age too large")
	}
	a.clock += d
	return nil
}

// addCalendar adds n*scale to field. spanDays is the longest a single term
// can last; the sum of all calendar terms is bounded by maxAgeDays.
func (a *Age) addCalendar(field *int, n, scale, spanDays int) error {
	if n > maxAgeDays/spanDays || a.span()+n*spanDays > maxAgeDays {
		return errors.New("age too large")
	}
	*field += n * scale
	return nil
}

// span is an upper bound of the calendar part in days.
func (a *Age) span() int {
	return a.years*366 + a.months*31 + a.days
}

// Cutoff returns the instant the age reaches back to from now.
func (a Age) Cutoff(now time.Time) time.Time {
	return now.AddDate(-a.years, -a.months, -a.days).Add(-a.clock)
}

func (a Age) String() string {
	return a.raw
}

// Expired reports whether t lies strictly before cutoff. A time exactly on
// the cutoff has not yet reached the age.
func Expired(t, cutoff time.Time) bool {
	return t.Before(cutoff)
}
