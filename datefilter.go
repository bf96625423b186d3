package coinfeed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pevans/coinfeed/article"
)

// ErrInvalidDateFilter is returned for filter values ParseDateFilter does not
// recognise.
var ErrInvalidDateFilter = errors.New("invalid date filter")

// Named date filters.
const (
	FilterAll       = "all"
	FilterToday     = "today"
	FilterYesterday = "yesterday"
	FilterLast3Days = "last_3_days"
	FilterLastWeek  = "last_week"
)

// DateFilter selects candidates by the publish date in their URL. The zero
// value matches everything.
type DateFilter struct {
	name  string
	dates map[time.Time]bool
	since time.Time
}

// ParseDateFilter parses one of all, today, yesterday, last_3_days,
// last_week, or a YYYY-MM-DD date. Relative filters are resolved against
// now's calendar date. An empty value means all.
func ParseDateFilter(value string, now time.Time) (DateFilter, error) {
	value = strings.TrimSpace(value)
	today := civilDate(now)

	switch value {
	case "", FilterAll:
		return DateFilter{name: FilterAll}, nil
	case FilterToday:
		return newDateFilter(value, today, 1), nil
	case FilterYesterday:
		return newDateFilter(value, today.AddDate(0, 0, -1), 1), nil
	case FilterLast3Days:
		return newDateFilter(value, today, 3), nil
	case FilterLastWeek:
		return newDateFilter(value, today, 7), nil
	}

	d, err := time.Parse(article.DateLayout, value)
	if err != nil {
		return DateFilter{}, fmt.Errorf("%w: %q", ErrInvalidDateFilter, value)
	}
	return newDateFilter(value, d, 1), nil
}

// newDateFilter covers days calendar days ending at last.
func newDateFilter(name string, last time.Time, days int) DateFilter {
	f := DateFilter{name: name, dates: make(map[time.Time]bool, days)}
	for i := 0; i < days; i++ {
		f.dates[last.AddDate(0, 0, -i)] = true
	}
	f.since = last.AddDate(0, 0, -(days - 1))
	return f
}

// All reports whether the filter matches every date.
func (f DateFilter) All() bool {
	return f.dates == nil
}

// Matches reports whether d falls on one of the filter's days.
func (f DateFilter) Matches(d time.Time) bool {
	if f.All() {
		return true
	}
	return f.dates[civilDate(d)]
}

// Before reports whether d is older than the oldest day the filter covers.
// Listings are newest first, so such a date ends discovery.
func (f DateFilter) Before(d time.Time) bool {
	if f.All() {
		return false
	}
	return civilDate(d).Before(f.since)
}

func (f DateFilter) String() string {
	if f.name == "" {
		return FilterAll
	}
	return f.name
}

// civilDate drops the clock and zone from t, keeping its calendar date.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
