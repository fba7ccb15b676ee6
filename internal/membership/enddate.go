package membership

import "time"

var termMonths = map[MembershipType]int{
	TypeBasic:   1,
	TypePremium: 3,
}

// EndDateFrom returns the end of a membership of type t started at from.
// BASIC runs one calendar month and PREMIUM three.
func EndDateFrom(t MembershipType, from time.Time) time.Time {
	return AddMonths(from, termMonths[t])
}

// AddMonths adds n calendar months to t. Unlike time.AddDate the day of month
// is clamped to the last day of the target month, so Jan 31 + 1 month is the
// last day of February.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
