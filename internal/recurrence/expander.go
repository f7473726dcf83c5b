// Package recurrence turns a base event interval plus a recurrence kind into
// the concrete occurrences that get stored as separate events.
package recurrence

import (
	"iter"
	"time"

	"begegnungscafe/internal/domain"

	"github.com/teambition/rrule-go"
)

// MaxOccurrences bounds the size of a single series.
const MaxOccurrences = 52

// Occurrence is one concrete [Start, End) interval of a series.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Series yields the occurrences of one expansion in ascending order. It is
// consumed once; a drained Series stays drained.
type Series struct {
	kind     domain.RecurrenceKind
	current  time.Time
	duration time.Duration
	limit    time.Time // exclusive; midnight after the inclusive end date

	emitted   int
	done      bool
	truncated bool
}

// Expand prepares the occurrences of the interval [start, end) repeated by
// kind until the calendar day of until (inclusive) in loc. Stepping happens
// in loc, so wall-clock times survive daylight saving changes.
//
// Monthly steps use time.AddDate(0, 1, 0) on the previous occurrence. A day
// of month that does not exist in the next month overflows forward: a series
// starting on January 31st continues on March 3rd (March 2nd in leap years)
// and keeps that day from then on. Dates are not clamped to month ends.
//
// RecurrenceNone yields the base interval only and ignores until. Any other
// kind requires until, otherwise domain.ErrInvalidRecurrence is returned.
func Expand(start, end time.Time, kind domain.RecurrenceKind, until *time.Time, loc *time.Location) (*Series, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Series{
		kind:     kind,
		current:  start.In(loc),
		duration: end.Sub(start),
	}
	switch kind {
	case domain.RecurrenceNone, "":
		s.kind = domain.RecurrenceNone
		s.limit = s.current.Add(time.Nanosecond)
		return s, nil
	case domain.RecurrenceDaily, domain.RecurrenceWeekly, domain.RecurrenceMonthly:
	default:
		return nil, domain.ErrInvalidRecurrence
	}
	if until == nil || until.IsZero() {
		return nil, domain.ErrInvalidRecurrence
	}
	y, m, d := until.In(loc).Date()
	s.limit = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return s, nil
}

// Next returns the next occurrence, or false once the series is exhausted.
func (s *Series) Next() (Occurrence, bool) {
	if s.done {
		return Occurrence{}, false
	}
	if !s.current.Before(s.limit) {
		s.done = true
		return Occurrence{}, false
	}
	if s.emitted == MaxOccurrences {
		s.done = true
		s.truncated = true
		return Occurrence{}, false
	}
	occ := Occurrence{Start: s.current, End: s.current.Add(s.duration)}
	s.emitted++
	s.current = step(s.current, s.kind)
	return occ, true
}

// All adapts the series to a range-over-func iterator. Ranging consumes the
// series.
func (s *Series) All() iter.Seq[Occurrence] {
	return func(yield func(Occurrence) bool) {
		for {
			occ, ok := s.Next()
			if !ok || !yield(occ) {
				return
			}
		}
	}
}

// Truncated reports whether the series was cut at MaxOccurrences although
// further occurrences fell before the end date. It is only meaningful after
// Next has returned false.
func (s *Series) Truncated() bool { return s.truncated }

// Kind is the recurrence kind the series was expanded with.
func (s *Series) Kind() domain.RecurrenceKind { return s.kind }

func step(t time.Time, kind domain.RecurrenceKind) time.Time {
	switch kind {
	case domain.RecurrenceDaily:
		return t.AddDate(0, 0, 1)
	case domain.RecurrenceWeekly:
		return t.AddDate(0, 0, 7)
	case domain.RecurrenceMonthly:
		return t.AddDate(0, 1, 0)
	}
	// RecurrenceNone: push past the limit so Next stops after the base.
	return t.Add(time.Nanosecond)
}

// Collect drains s into a slice.
func Collect(s *Series) []Occurrence {
	var out []Occurrence
	for occ := range s.All() {
		out = append(out, occ)
	}
	return out
}

var frequencies = map[domain.RecurrenceKind]rrule.Frequency{
	domain.RecurrenceDaily:   rrule.DAILY,
	domain.RecurrenceWeekly:  rrule.WEEKLY,
	domain.RecurrenceMonthly: rrule.MONTHLY,
}

// Rule describes a series as an RFC 5545 RRULE value, for example
// "FREQ=WEEKLY;UNTIL=20240630T215959Z". The string is stored on every
// occurrence for display and export; nothing re-expands it. It returns ""
// for RecurrenceNone.
func Rule(kind domain.RecurrenceKind, start time.Time, until *time.Time, loc *time.Location) string {
	freq, ok := frequencies[kind]
	if !ok || until == nil {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := until.In(loc).Date()
	opt := rrule.ROption{
		Freq:    freq,
		Dtstart: start.In(loc),
		Until:   time.Date(y, m, d, 23, 59, 59, 0, loc),
	}
	return opt.RRuleString()
}
