// Package calendar resolves the calendar of a time series and derives the
// month of each sample under that calendar.
package calendar

import (
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

type Kind int

const (
	Standard Kind = iota
	Fixed360
)

func (k Kind) String() string {
	if k == Fixed360 {
		return "360_day"
	}
	return "standard"
}

// Calendar derives month-of-year for an instant given as seconds elapsed since
// an origin. Each variant does its own date arithmetic.
type Calendar interface {
	Kind() Kind
	Month(origin civil.DateTime, seconds float64) time.Month
	// DaysBetween counts whole days from one date to another.
	DaysBetween(from, to civil.Date) int64
}

// Resolve classifies a calendar attribute. Only the 360-day identifier is
// recognised, everything else is handled as standard.
func Resolve(attr string) Calendar {
	switch strings.ToLower(strings.TrimSpace(attr)) {
	case Fixed360Name, "360":
		return fixed360{}
	default:
		return standard{}
	}
}

type standard struct{}

func (standard) Kind() Kind { return Standard }

func (standard) Month(origin civil.DateTime, seconds float64) time.Month {
	return origin.Date.AddDays(int(elapsedDays(origin.Time, seconds))).Month
}

func (standard) DaysBetween(from, to civil.Date) int64 {
	return int64(to.DaysSince(from))
}

type fixed360 struct{}

func (fixed360) Kind() Kind { return Fixed360 }

func (fixed360) Month(origin civil.DateTime, seconds float64) time.Month {
	days := elapsedDays(origin.Time, seconds)
	ordinal := int64(origin.Date.Month-1)*DaysPerMonth360 + int64(origin.Date.Day-1) + days
	ordinal %= DaysPerYear360
	if ordinal < 0 {
		ordinal += DaysPerYear360
	}
	return time.Month(ordinal/DaysPerMonth360 + 1)
}

func (fixed360) DaysBetween(from, to civil.Date) int64 {
	return int64(to.Year-from.Year)*DaysPerYear360 +
		int64(to.Month-from.Month)*DaysPerMonth360 +
		int64(to.Day-from.Day)
}

// elapsedDays adds seconds to a time of day and returns the number of day
// boundaries crossed.
func elapsedDays(tod civil.Time, seconds float64) int64 {
	total := float64(tod.Hour*3600+tod.Minute*60+tod.Second) + float64(tod.Nanosecond)/1e9 + seconds
	return int64(math.Floor(total / secondsPerDay))
}
