package billing

import "time"

// UsageWindow is the inclusive time range a usage count covers
type UsageWindow struct {
	Start time.Time
	End   time.Time
}

// MonthWindow returns the calendar month containing t, in UTC.
// End is the last nanosecond of the month so the range is inclusive on both sides.
func MonthWindow(t time.Time) UsageWindow {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return UsageWindow{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

// Contains reports whether t falls inside the window
func (w UsageWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// UsageCount is the number of metered documents in a window.
// Known is false when the store could not be read; callers treat that as
// "do not block" rather than as zero.
type UsageCount struct {
	Count  int64
	Known  bool
	Window UsageWindow
}

// KnownUsage builds a successful count
func KnownUsage(count int64, window UsageWindow) UsageCount {
	return UsageCount{Count: count, Known: true, Window: window}
}

// UnknownUsage is returned when the document store is unreachable
func UnknownUsage(window UsageWindow) UsageCount {
	return UsageCount{Known: false, Window: window}
}
