package schedule

import "time"

// Day truncates t to its calendar date at UTC midnight so day arithmetic
// never trips over DST or wall-clock offsets.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func addDays(t time.Time, n int) time.Time { return t.AddDate(0, 0, n) }

// RemainingDays is end - today in whole days; negative once the payment date passed.
func RemainingDays(today, end time.Time) int {
	return int(Day(end).Sub(Day(today)).Hours() / 24)
}

// RemainingSessions counts class days between today and end. Going forward it
// counts [today, end); when end is already behind, it counts (end, today]
// as negative sessions. The result is never clamped.
func RemainingSessions(today, end time.Time, w Weekdays) int {
	cur, stop := Day(today), Day(end)
	step := 1
	if stop.Before(cur) {
		step = -1
	}
	count := 0
	for !cur.Equal(stop) {
		if w.Matches(cur) {
			count += step
		}
		cur = addDays(cur, step)
	}
	return count
}

// countIn counts class days in [from, to).
func countIn(from, to time.Time, w Weekdays) int {
	n := 0
	for d := from; d.Before(to); d = addDays(d, 1) {
		if w.Matches(d) {
			n++
		}
	}
	return n
}

// TotalAndPassed returns the class days in [start, end) and how many of those
// lie before today. Once today is past end, every class day in (end, today]
// is charged against passed, so total-passed goes negative.
func TotalAndPassed(start, end, today time.Time, w Weekdays) (total, passed int) {
	start, end, today = Day(start), Day(end), Day(today)
	total = countIn(start, end, w)

	until := today
	if end.Before(until) {
		until = end
	}
	passed = countIn(start, until, w)

	if today.After(end) {
		passed += countIn(addDays(end, 1), addDays(today, 1), w)
	}
	return total, passed
}

// Balance is the session balance stored on a student. Every writer (batch
// recompute, inline edits, extensions, imports) goes through here.
func Balance(start, end, today time.Time, w Weekdays) int {
	total, passed := TotalAndPassed(start, end, today, w)
	return total - passed
}

// ExtendEndDate moves end forward by n class days. When end itself is not a
// class day one extra class day is consumed, so n=1 lands on the second
// class day after end.
func ExtendEndDate(end time.Time, n int, w Weekdays) time.Time {
	d := Day(end)
	if w.Empty() || n <= 0 {
		return d
	}
	need := n
	if !w.Matches(d) {
		need = n + 1
	}
	for need > 0 {
		d = addDays(d, 1)
		if w.Matches(d) {
			need--
		}
	}
	return d
}

// NextClassDate is the first class day strictly after the given date.
func NextClassDate(after time.Time, w Weekdays) (time.Time, bool) {
	if w.Empty() {
		return time.Time{}, false
	}
	d := addDays(Day(after), 1)
	for !w.Matches(d) {
		d = addDays(d, 1)
	}
	return d, true
}

// DefaultSessions is the balance a fresh four-week enrolment starts with.
func DefaultSessions(w Weekdays) int {
	n := w.Len()
	if n == 0 {
		n = 1
	}
	return 4 * n
}

// Period is the length of one payment cycle.
const Period = 28
