package model

import (
	"fmt"
	"math"
	"strconv"
)

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (l Location) Key() string {
	return strconv.FormatFloat(l.Lat, 'g', -1, 64) + "," + strconv.FormatFloat(l.Lon, 'g', -1, 64)
}

// SinglePoint is the location used for series without spatial dimensions.
var SinglePoint = Location{Lat: math.NaN(), Lon: math.NaN()}

type TimeSeries struct {
	// Variable is the data variable name, like "prec"
	Variable string
	// Calendar is the raw calendar attribute, like "360_day" or "standard"
	Calendar string
	// Units is the CF time units string, like "days since 1961-01-01"
	Units string
	// Offsets holds one time coordinate per sample, expressed in Units
	Offsets   []float64
	Locations []Location
	// Values is indexed [time][location], NaN marks a missing value
	Values [][]float64
}

func (s *TimeSeries) DebugString() string {
	res := fmt.Sprintf("variable: %v, calendar: %v, units: %v, timeCount: %v, locationCount: %v",
		s.Variable, s.Calendar, s.Units, len(s.Offsets), len(s.Locations))
	return res
}

func (s *TimeSeries) IsEmpty() bool {
	if s == nil {
		return true
	}
	return len(s.Offsets) == 0 || len(s.Locations) == 0
}

func (s *TimeSeries) Len() int {
	return len(s.Offsets)
}

// Column returns the values of one location along the time axis.
func (s *TimeSeries) Column(loc int) []float64 {
	res := make([]float64, len(s.Values))
	for i, row := range s.Values {
		if loc < len(row) {
			res[i] = row[loc]
		} else {
			res[i] = math.NaN()
		}
	}
	return res
}

// Validate checks the time axis and value matrix agree in shape.
func (s *TimeSeries) Validate() error {
	if s.IsEmpty() {
		return fmt.Errorf("series %q is empty", s.Variable)
	}
	if len(s.Values) != len(s.Offsets) {
		return fmt.Errorf("series %q has %d time offsets but %d value rows",
			s.Variable, len(s.Offsets), len(s.Values))
	}
	for i, row := range s.Values {
		if len(row) != len(s.Locations) {
			return fmt.Errorf("series %q row %d has %d values for %d locations",
				s.Variable, i, len(row), len(s.Locations))
		}
	}
	return nil
}

// Pair names which two datasets a comparison runs on.
type Pair string

const (
	HistObs Pair = "hist_obs"
	HistFut Pair = "hist_fut"
)

var AllPairs = []Pair{HistObs, HistFut}
