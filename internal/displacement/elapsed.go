package displacement

import "time"

// ElapsedSeconds returns to - from in seconds. Computed from Unix seconds so
// spans beyond time.Duration's ~292-year range stay exact.
func ElapsedSeconds(from, to time.Time) float64 {
	whole := float64(to.Unix() - from.Unix())
	frac := float64(to.Nanosecond()-from.Nanosecond()) / 1e9
	return whole + frac
}

// ElapsedYears returns the calendar years from from to to (from <= to):
// whole anniversaries of from, plus the fraction of the following year
// already elapsed. Leap days are counted where they fall, so 2000-02-28 to
// 2001-02-28 is exactly 1 and 2000-02-29 to 2004-02-29 exactly 4.
//
// Both instants are taken in UTC. A negative span returns the negated
// forward span.
func ElapsedYears(from, to time.Time) float64 {
	from, to = from.UTC(), to.UTC()
	if to.Before(from) {
		return -ElapsedYears(to, from)
	}

	n := to.Year() - from.Year()
	if from.AddDate(n, 0, 0).After(to) {
		n--
	}
	anchor := from.AddDate(n, 0, 0)
	next := from.AddDate(n+1, 0, 0)

	if anchor.Equal(to) {
		return float64(n)
	}
	return float64(n) + ElapsedSeconds(anchor, to)/ElapsedSeconds(anchor, next)
}
