package broker

import "time"

// Exchange session windows, minutes from midnight local time. Morning close
// is exclusive, afternoon close inclusive, matching the exchange's auction
// handling.
const (
	morningOpen    = 9*60 + 30
	morningClose   = 11*60 + 30
	afternoonOpen  = 13 * 60
	afternoonClose = 15 * 60

	preOpenWindowMin = 5
)

// InSession reports whether t falls inside a trading session: weekdays,
// 09:30-11:30 and 13:00-15:00, with the midday break closed.
func InSession(t time.Time) bool {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	if m >= morningOpen && m < morningClose {
		return true
	}
	return m >= afternoonOpen && m <= afternoonClose
}

// IdleInterval returns how long to sleep while the market is closed. Just
// before a session opens the interval drops to a second so the loop catches
// the opening print.
func IdleInterval(t time.Time, idle time.Duration) time.Duration {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return idle
	}
	m := t.Hour()*60 + t.Minute()
	if m >= morningOpen-preOpenWindowMin && m < morningOpen {
		return time.Second
	}
	if m >= afternoonOpen-preOpenWindowMin && m < afternoonOpen {
		return time.Second
	}
	return idle
}
