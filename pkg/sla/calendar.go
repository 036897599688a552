package sla

import (
	"strconv"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
)

// CalendarConfig describes a business calendar: which hours count per
// weekday and which recurring dates are holidays.
type CalendarConfig struct {
	// WorkingHours maps short day names to the hours (0-23) that count as
	// working time, e.g. Mon: [8, 9, ..., 17]. An empty list makes the day
	// a non-workday.
	WorkingHours map[string][]int `yaml:"working_hours"`
	// Holidays lists recurring non-working dates as "MM-DD".
	Holidays []string `yaml:"holidays"`
}

var weekdays = map[string]time.Weekday{
	"Mon": time.Monday,
	"Tue": time.Tuesday,
	"Wed": time.Wednesday,
	"Thu": time.Thursday,
	"Fri": time.Friday,
	"Sat": time.Saturday,
	"Sun": time.Sunday,
}

// NewCalendar builds a BusinessCalendar from cfg. With no working hours
// configured the rickar/cal default (Mon-Fri, 9-17) is kept.
func NewCalendar(cfg CalendarConfig) *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()

	if len(cfg.WorkingHours) > 0 {
		minHour, maxHour := 24, -1
		for _, wd := range weekdays {
			c.SetWorkday(wd, false)
		}
		for name, hours := range cfg.WorkingHours {
			wd, ok := weekdays[name]
			if !ok || len(hours) == 0 {
				continue
			}
			c.SetWorkday(wd, true)
			for _, h := range hours {
				if h < minHour {
					minHour = h
				}
				if h > maxHour {
					maxHour = h
				}
			}
		}
		// rickar/cal models work hours as one contiguous range; the end is
		// the end of the last listed hour.
		if minHour < 24 && maxHour >= 0 {
			c.SetWorkHours(time.Duration(minHour)*time.Hour, time.Duration(maxHour+1)*time.Hour)
		}
	}

	for _, day := range cfg.Holidays {
		parts := strings.SplitN(day, "-", 2)
		if len(parts) != 2 {
			continue
		}
		month, err1 := strconv.Atoi(parts[0])
		dom, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil || month < 1 || month > 12 || dom < 1 || dom > 31 {
			continue
		}
		c.AddHoliday(&cal.Holiday{
			Name:  day,
			Type:  cal.ObservancePublic,
			Month: time.Month(month),
			Day:   dom,
			Func:  cal.CalcDayOfMonth,
		})
	}

	return c
}
