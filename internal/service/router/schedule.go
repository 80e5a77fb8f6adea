package router

import (
	"strings"
	"time"

	"zapdesk/entity"
)

// InHours reports whether now falls inside a queue's business hours.
// No schedule at all, or an empty window for today's weekday, means the
// queue is always open.
func InHours(schedules []entity.QueueSchedule, now time.Time) bool {
	if len(schedules) == 0 {
		return true
	}

	weekday := strings.ToLower(now.Weekday().String())
	for _, s := range schedules {
		if strings.ToLower(s.Weekday) != weekday {
			continue
		}
		if s.StartTime == "" || s.EndTime == "" {
			return true
		}
		start, err := parseClock(s.StartTime, now)
		if err != nil {
			return true
		}
		end, err := parseClock(s.EndTime, now)
		if err != nil {
			return true
		}
		return !now.Before(start) && !now.After(end)
	}
	// Today is not listed: treat as closed all day.
	return false
}

func parseClock(value string, day time.Time) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
