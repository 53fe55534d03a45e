package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/uyouii/kstail/common"
)

// Units is a parsed CF time units string, "<unit> since <origin>".
type Units struct {
	// UnitSeconds is the length of one offset unit in seconds
	UnitSeconds float64
	Origin      civil.DateTime
}

func (u Units) String() string {
	return fmt.Sprintf("%vs since %v", u.UnitSeconds, u.Origin)
}

// Seconds converts a time offset to seconds since the origin.
func (u Units) Seconds(offset float64) float64 {
	return offset * u.UnitSeconds
}

// ParseUnits parses strings like "days since 1961-01-01" or
// "hours since 1950-1-1 00:00:00". The origin date is not checked against the
// Gregorian calendar so 360-day origins like 1961-02-30 are accepted.
func ParseUnits(units string) (Units, error) {
	fields := strings.Fields(units)
	if len(fields) < 3 || strings.ToLower(fields[1]) != "since" {
		return Units{}, fmt.Errorf("%w: malformed time units %q", common.ErrInput, units)
	}

	unitSeconds, ok := unitSeconds[strings.ToLower(fields[0])]
	if !ok {
		return Units{}, fmt.Errorf("%w: unsupported time unit %q", common.ErrInput, fields[0])
	}

	datePart, timePart, _ := strings.Cut(fields[2], "T")
	if timePart == "" && len(fields) > 3 {
		timePart = fields[3]
	}

	date, err := ParseDate(datePart)
	if err != nil {
		return Units{}, err
	}

	tod, err := parseTimeOfDay(timePart)
	if err != nil {
		return Units{}, fmt.Errorf("%w: time units %q: %v", common.ErrInput, units, err)
	}

	return Units{
		UnitSeconds: unitSeconds,
		Origin:      civil.DateTime{Date: date, Time: tod},
	}, nil
}

// ParseDate parses "Y-M-D" with optional zero padding. Day may be up to 30 in
// any month so that 360-day dates survive.
func ParseDate(s string) (civil.Date, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return civil.Date{}, fmt.Errorf("%w: malformed date %q", common.ErrInput, s)
	}
	nums := [3]int{}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return civil.Date{}, fmt.Errorf("%w: malformed date %q", common.ErrInput, s)
		}
		nums[i] = n
	}
	if nums[1] < 1 || nums[1] > 12 || nums[2] < 1 || nums[2] > 31 {
		return civil.Date{}, fmt.Errorf("%w: date out of range %q", common.ErrInput, s)
	}
	return civil.Date{Year: nums[0], Month: time.Month(nums[1]), Day: nums[2]}, nil
}

func parseTimeOfDay(s string) (civil.Time, error) {
	s = strings.TrimSuffix(s, "Z")
	if s == "" {
		return civil.Time{}, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return civil.Time{}, fmt.Errorf("malformed time of day %q", s)
	}
	var tod civil.Time
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 {
			return civil.Time{}, fmt.Errorf("malformed time of day %q", s)
		}
		switch i {
		case 0:
			tod.Hour = int(v)
		case 1:
			tod.Minute = int(v)
		case 2:
			tod.Second = int(v)
			tod.Nanosecond = int((v - float64(int(v))) * 1e9)
		}
	}
	if tod.Hour > 23 || tod.Minute > 59 || tod.Second > 60 {
		return civil.Time{}, fmt.Errorf("time of day out of range %q", s)
	}
	return tod, nil
}
