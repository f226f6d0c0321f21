package model

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DefaultLookbackYears is the backfill window length.
const DefaultLookbackYears = 5

// DateRange is an inclusive [Start, End] pair of calendar dates at UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// LookbackRange returns [now - years, now] in calendar dates.
func LookbackRange(now time.Time, years int) DateRange {
	if years <= 0 {
		years = DefaultLookbackYears
	}
	end := DateOf(now)
	return DateRange{Start: end.AddDate(-years, 0, 0), End: end}
}

// DefaultRange is the five year backfill window ending today.
func DefaultRange(now time.Time) DateRange {
	return LookbackRange(now, DefaultLookbackYears)
}

func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return fmt.Errorf("date range: start %s after end %s", r.Start.Format(dateLayout), r.End.Format(dateLayout))
	}
	return nil
}

func (r DateRange) String() string {
	return r.Start.Format(dateLayout) + ".." + r.End.Format(dateLayout)
}
