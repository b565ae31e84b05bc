package amortization

import "time"

type Frequency string

const (
	Weekly    Frequency = "Weekly"
	BiWeekly  Frequency = "Bi-Weekly"
	Monthly   Frequency = "Monthly"
	Quarterly Frequency = "Quarterly"
	Annually  Frequency = "Annually"
)

var paymentsPerYear = map[Frequency]int{
	Weekly:    52,
	BiWeekly:  26,
	Monthly:   12,
	Quarterly: 4,
	Annually:  1,
}

// caps every frequency at five years of installments
var maxPayments = map[Frequency]int{
	Weekly:    260,
	BiWeekly:  130,
	Monthly:   60,
	Quarterly: 20,
	Annually:  5,
}

func (f Frequency) Valid() bool {
	_, ok := paymentsPerYear[f]
	return ok
}

// PaymentsPerYear returns 0 for an unknown frequency.
func (f Frequency) PaymentsPerYear() int { return paymentsPerYear[f] }

func Frequencies() []Frequency {
	return []Frequency{Weekly, BiWeekly, Monthly, Quarterly, Annually}
}

// nthDate returns the date of the n-th installment (0-based) counted from start.
func (f Frequency) nthDate(start time.Time, n int) time.Time {
	switch f {
	case Weekly:
		return start.AddDate(0, 0, 7*n)
	case BiWeekly:
		return start.AddDate(0, 0, 14*n)
	case Monthly:
		return addMonths(start, n)
	case Quarterly:
		return addMonths(start, 3*n)
	case Annually:
		return addMonths(start, 12*n)
	}
	return start
}

// addMonths moves t by n calendar months, clamping the day to the last day of
// the target month (Jan 31 + 1 month = Feb 28/29). time.AddDate would
// normalise Feb 31 into March instead.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
