// Package schedule holds the calendar arithmetic behind session and day
// balances. Everything here is pure; callers pass "today" explicitly.
package schedule

import (
	"strings"
	"time"
)

// Weekdays is a set of class days, bit i set for index i (Monday=0 .. Sunday=6).
type Weekdays uint8

// Abbreviations used when weekday sets are written back to the store.
var dayAbbrev = [7]string{"Pzt", "Salı", "Çarşamba", "Perşembe", "Cuma", "Cmrtsi", "Pazar"}

// dayAlias keys are already folded with foldTR.
var dayAlias = map[string]int{
	"pzt": 0, "pazartesi": 0, "pztesi": 0, "pzt.": 0,
	"sali": 1,
	"carsamba": 2, "crs": 2,
	"persembe": 3, "pers": 3,
	"cuma": 4,
	"cmrtsi": 5, "cumartesi": 5, "cmt": 5, "cts": 5,
	"pazar": 6,
}

var trFold = strings.NewReplacer(
	"î", "i", "â", "a", "û", "u", "ı", "i", "ğ", "g", "ş", "s", "ç", "c", "ö", "o", "ü", "u",
	"İ", "i", "Ğ", "g", "Ş", "s", "Ç", "c", "Ö", "o", "Ü", "u", "̇", "",
)

func foldTR(s string) string {
	return strings.ToLower(trFold.Replace(strings.TrimSpace(s)))
}

// DayIndex maps one Turkish day token to 0..6.
func DayIndex(token string) (int, bool) {
	idx, ok := dayAlias[foldTR(token)]
	return idx, ok
}

// ParseWeekdays reads a comma separated day list. Unknown tokens are dropped.
func ParseWeekdays(text string) Weekdays {
	var w Weekdays
	for _, tok := range strings.Split(text, ",") {
		if idx, ok := DayIndex(tok); ok {
			w = w.With(idx)
		}
	}
	return w
}

// Of builds a set from indexes; out of range values are ignored.
func Of(days ...int) Weekdays {
	var w Weekdays
	for _, d := range days {
		w = w.With(d)
	}
	return w
}

func (w Weekdays) With(i int) Weekdays {
	if i < 0 || i > 6 {
		return w
	}
	return w | 1<<uint(i)
}

func (w Weekdays) Has(i int) bool {
	return i >= 0 && i <= 6 && w&(1<<uint(i)) != 0
}

func (w Weekdays) Empty() bool { return w == 0 }

func (w Weekdays) Len() int {
	n := 0
	for i := 0; i < 7; i++ {
		if w.Has(i) {
			n++
		}
	}
	return n
}

// Indexes lists the set in Monday-first order.
func (w Weekdays) Indexes() []int {
	out := make([]int, 0, 7)
	for i := 0; i < 7; i++ {
		if w.Has(i) {
			out = append(out, i)
		}
	}
	return out
}

// String is the canonical stored form, e.g. "Pzt,Çarşamba". Equal sets encode equally.
func (w Weekdays) String() string {
	names := make([]string, 0, 7)
	for _, i := range w.Indexes() {
		names = append(names, dayAbbrev[i])
	}
	return strings.Join(names, ",")
}

// Matches reports whether d falls on one of the class days.
func (w Weekdays) Matches(d time.Time) bool {
	return w.Has(weekdayIndex(d))
}

// weekdayIndex converts Go's Sunday-first weekday to Monday=0.
func weekdayIndex(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}
