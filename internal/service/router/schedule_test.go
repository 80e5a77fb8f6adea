package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"zapdesk/entity"
)

// Monday 2026-08-31 10:30 UTC.
var mondayMorning = time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

func TestInHoursNoSchedules(t *testing.T) {
	assert.True(t, InHours(nil, mondayMorning))
}

func TestInHoursInsideWindow(t *testing.T) {
	schedules := []entity.QueueSchedule{
		{Weekday: "monday", StartTime: "08:00", EndTime: "18:00"},
	}
	assert.True(t, InHours(schedules, mondayMorning))
}

func TestInHoursOutsideWindow(t *testing.T) {
	schedules := []entity.QueueSchedule{
		{Weekday: "monday", StartTime: "13:00", EndTime: "18:00"},
	}
	assert.False(t, InHours(schedules, mondayMorning))
}

func TestInHoursEmptyWindowMeansOpen(t *testing.T) {
	schedules := []entity.QueueSchedule{
		{Weekday: "monday", StartTime: "", EndTime: ""},
	}
	assert.True(t, InHours(schedules, mondayMorning))
}

func TestInHoursUnlistedDayIsClosed(t *testing.T) {
	schedules := []entity.QueueSchedule{
		{Weekday: "tuesday", StartTime: "08:00", EndTime: "18:00"},
	}
	assert.False(t, InHours(schedules, mondayMorning))
}

func TestInHoursBoundaries(t *testing.T) {
	schedules := []entity.QueueSchedule{
		{Weekday: "monday", StartTime: "10:30", EndTime: "11:00"},
	}
	assert.True(t, InHours(schedules, mondayMorning))
	assert.False(t, InHours(schedules, mondayMorning.Add(31*time.Minute)))
}
