package schedule

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrMalformedDate is returned for date text none of the accepted layouts read.
var ErrMalformedDate = errors.New("malformed date")

const (
	ISODate   = "2006-01-02"
	TRDate    = "02-01-2006"
	HourShort = "15.04"
)

// year-first, then day-first (Turkish habit)
var dateLayouts = []string{
	"2006-01-02", "2006/01/02", "2006.01.02",
	"02-01-2006", "02/01/2006", "02.01.2006",
	"2-1-2006", "2/1/2006", "2.1.2006",
}

// ParseDate reads the date forms staff and spreadsheets produce.
func ParseDate(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, errors.Wrap(ErrMalformedDate, "empty")
	}
	// "2024-01-01 00:00:00" and "2024-01-01T00:00:00Z" keep only the date part
	if i := strings.IndexAny(s, " T"); i >= 8 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, errors.Wrapf(ErrMalformedDate, "%q", text)
}

// DateOr parses text and falls back when it is unreadable.
func DateOr(text string, fallback time.Time) time.Time {
	t, err := ParseDate(text)
	if err != nil {
		return Day(fallback)
	}
	return t
}

// FormatDate renders the stored form.
func FormatDate(t time.Time) string {
	return t.Format(ISODate)
}

// ParseTime accepts "19.00" or "19:00" and returns the stored "HH.mm".
func ParseTime(text string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ":", ".")
	t, err := time.Parse(HourShort, s)
	if err != nil {
		return "", errors.Errorf("invalid class time %q", text)
	}
	return t.Format(HourShort), nil
}
