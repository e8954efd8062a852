package schedule

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var monWed = Of(0, 2)

func TestTotalAndPassed_MidCycle(t *testing.T) {
	start, end, today := date(2024, 1, 1), date(2024, 1, 29), date(2024, 1, 15)

	total, passed := TotalAndPassed(start, end, today, monWed)
	assert.Equal(t, 8, total)
	assert.Equal(t, 4, passed)
	assert.Equal(t, 4, Balance(start, end, today, monWed))
	assert.Equal(t, 4, RemainingSessions(today, end, monWed))
}

func TestTotalAndPassed_Overdue(t *testing.T) {
	start, end := date(2024, 1, 1), date(2024, 1, 29)

	// Tuesday after the end date: no class day passed yet
	assert.Equal(t, 0, Balance(start, end, date(2024, 1, 30), monWed))
	// Wednesday is one overdue session
	assert.Equal(t, -1, Balance(start, end, date(2024, 1, 31), monWed))
	assert.Equal(t, -3, Balance(start, end, date(2024, 2, 7), monWed))
}

func TestRemainingSessions_Backward(t *testing.T) {
	end := date(2024, 1, 29)
	assert.Equal(t, 0, RemainingSessions(end, end, monWed))
	assert.Equal(t, 0, RemainingSessions(date(2024, 1, 30), end, monWed))
	assert.Equal(t, -1, RemainingSessions(date(2024, 1, 31), end, monWed))
	assert.Equal(t, -2, RemainingSessions(date(2024, 2, 5), end, monWed))
}

func TestRemainingSessions_Properties(t *testing.T) {
	ranges := [][2]time.Time{
		{date(2024, 1, 1), date(2024, 1, 29)},
		{date(2024, 2, 14), date(2024, 3, 13)},
		{date(2024, 3, 30), date(2024, 4, 2)},
		{date(2024, 5, 5), date(2024, 5, 5)},
	}
	for w := Weekdays(1); w < 1<<7; w++ {
		for _, r := range ranges {
			start, end := r[0], r[1]
			total, _ := TotalAndPassed(start, end, start, w)
			require.Equal(t, total, RemainingSessions(start, end, w), "w=%s start=%s", w, start)
			require.LessOrEqual(t, RemainingSessions(end, end, w), 0)

			for today := start; !today.After(end.AddDate(0, 0, 21)); today = today.AddDate(0, 0, 1) {
				require.Equal(t, RemainingSessions(today, end, w), Balance(start, end, today, w),
					"w=%s start=%s end=%s today=%s", w, start, end, today)
			}
		}
	}
}

func TestRemainingSessions_NegativeAfterOneClassDay(t *testing.T) {
	end := date(2024, 1, 29)
	for w := Weekdays(1); w < 1<<7; w++ {
		next, ok := NextClassDate(end, w)
		require.True(t, ok)
		assert.Equal(t, -1, RemainingSessions(next, end, w), "w=%s", w)
	}
}

func TestRemainingDays(t *testing.T) {
	assert.Equal(t, 14, RemainingDays(date(2024, 1, 15), date(2024, 1, 29)))
	assert.Equal(t, -2, RemainingDays(date(2024, 1, 31), date(2024, 1, 29)))
	assert.Equal(t, 0, RemainingDays(time.Date(2024, 1, 29, 23, 10, 0, 0, time.Local), date(2024, 1, 29)))
}

func TestExtendEndDate(t *testing.T) {
	tests := []struct {
		name string
		end  time.Time
		n    int
		w    Weekdays
		want time.Time
	}{
		{"on cycle one", date(2024, 1, 29), 1, monWed, date(2024, 1, 31)},
		{"on cycle three", date(2024, 1, 29), 3, monWed, date(2024, 2, 7)},
		{"off cycle one lands on second class day", date(2024, 1, 30), 1, monWed, date(2024, 2, 5)},
		{"off cycle two", date(2024, 1, 30), 2, monWed, date(2024, 2, 7)},
		{"no class days", date(2024, 1, 30), 4, 0, date(2024, 1, 30)},
		{"nothing to add", date(2024, 1, 29), 0, monWed, date(2024, 1, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtendEndDate(tt.end, tt.n, tt.w))
		})
	}
}

func TestNextClassDate(t *testing.T) {
	d, ok := NextClassDate(date(2024, 1, 15), monWed)
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 17), d)

	_, ok = NextClassDate(date(2024, 1, 15), 0)
	assert.False(t, ok)
}

func TestParseWeekdays(t *testing.T) {
	assert.Equal(t, monWed, ParseWeekdays("Pzt, Çarşamba, foo"))
	assert.Equal(t, monWed, ParseWeekdays("PAZARTESİ,ÇARŞAMBA"))
	assert.Equal(t, Of(3, 5, 6), ParseWeekdays("Perş,Cmrtsi,Pazar"))
	assert.Equal(t, Of(1), ParseWeekdays("salı"))
	assert.True(t, ParseWeekdays("ESKİLER").Empty())
	assert.Equal(t, "Pzt,Çarşamba", Of(2, 0).String())
	assert.Equal(t, 8, DefaultSessions(monWed))
	assert.Equal(t, 4, DefaultSessions(0))
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-01-15", "2024/01/15", "15-01-2024", "15.01.2024", "15/1/2024", "2024-01-15 00:00:00"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, date(2024, 1, 15), got, in)
	}

	_, err := ParseDate("next tuesday")
	assert.True(t, errors.Is(err, ErrMalformedDate))

	fallback := date(2024, 3, 1)
	assert.Equal(t, fallback, DateOr("", fallback))
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("19:30")
	require.NoError(t, err)
	assert.Equal(t, "19.30", got)

	_, err = ParseTime("late")
	assert.Error(t, err)
}
