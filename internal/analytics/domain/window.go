package analytics

import "time"

// Window is a named aggregation range relative to "now".
type Window string

const (
	WindowHour      Window = "hour"
	WindowDay       Window = "day"
	WindowWeek      Window = "week"
	WindowMonth     Window = "month"
	WindowTwoMonths Window = "two-months"
)

// ParseWindow validates a window keyword.
func ParseWindow(value string) (Window, error) {
	switch Window(value) {
	case WindowHour, WindowDay, WindowWeek, WindowMonth, WindowTwoMonths:
		return Window(value), nil
	default:
		return "", ErrInvalidWindow
	}
}

// Start resolves the window's lower bound. Month-based windows use calendar
// subtraction, not fixed 30-day blocks.
func (w Window) Start(now time.Time) (time.Time, error) {
	switch w {
	case WindowHour:
		return now.Add(-time.Hour), nil
	case WindowDay:
		return now.Add(-24 * time.Hour), nil
	case WindowWeek:
		return now.Add(-7 * 24 * time.Hour), nil
	case WindowMonth:
		return now.AddDate(0, -1, 0), nil
	case WindowTwoMonths:
		return now.AddDate(0, -2, 0), nil
	default:
		return time.Time{}, ErrInvalidWindow
	}
}
