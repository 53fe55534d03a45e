package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/uyouii/kstail/calendar"
	"github.com/uyouii/kstail/common"
	"github.com/uyouii/kstail/model"
	"github.com/uyouii/kstail/utils"
	"go.uber.org/zap"
)

// Metadata comment keys recognised at the top of a CSV file, e.g.
//
//	# calendar: 360_day
//	# units: days since 1961-01-01
const (
	metaCalendar = "calendar"
	metaUnits    = "units"
)

func loadCSVFile(ctx context.Context, path, variable string) (*model.TimeSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInput, err)
	}
	defer f.Close()
	return ReadCSV(ctx, f, variable)
}

// ReadCSV reads a series with columns time[,lat,lon],<variable>. Time is a
// numeric offset in the file's units or a Y-M-D date in its calendar.
func ReadCSV(ctx context.Context, r io.Reader, variable string) (*model.TimeSeries, error) {
	logger := utils.GetLogger(ctx)

	br := bufio.NewReader(r)
	meta, err := readMetadata(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInput, err)
	}

	reader := csv.NewReader(br)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", common.ErrInput, err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	timeCol, ok := cols["time"]
	if !ok {
		return nil, fmt.Errorf("%w: no time column", common.ErrInput)
	}
	valueCol, ok := cols[variable]
	if !ok {
		return nil, fmt.Errorf("%w: variable %q not found in columns %v", common.ErrInput, variable, header)
	}
	latCol, hasLat := cols["lat"]
	lonCol, hasLon := cols["lon"]
	if hasLat != hasLon {
		return nil, fmt.Errorf("%w: lat and lon columns must appear together", common.ErrInput)
	}

	cal := calendar.Resolve(meta[metaCalendar])
	tc := &timeConverter{cal: cal, units: meta[metaUnits]}
	var b *builder

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", common.ErrInput, line, err)
		}

		offset, err := tc.offset(record[timeCol])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", common.ErrInput, line, err)
		}
		if b == nil {
			b = newBuilder(variable, meta[metaCalendar], tc.units)
		}

		loc := model.SinglePoint
		if hasLat {
			if loc.Lat, err = strconv.ParseFloat(record[latCol], 64); err != nil {
				return nil, fmt.Errorf("%w: line %d: lat: %v", common.ErrInput, line, err)
			}
			if loc.Lon, err = strconv.ParseFloat(record[lonCol], 64); err != nil {
				return nil, fmt.Errorf("%w: line %d: lon: %v", common.ErrInput, line, err)
			}
		}

		value, err := parseValue(record[valueCol])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %v", common.ErrInput, line, variable, err)
		}
		b.add(offset, loc, value)
	}

	if b == nil {
		return nil, fmt.Errorf("%w: no data rows", common.ErrInput)
	}
	ts := b.build()
	logger.Info("loaded csv series", zap.String("series", ts.DebugString()))
	return ts, nil
}

func readMetadata(br *bufio.Reader) (map[string]string, error) {
	meta := map[string]string{}
	for {
		peek, err := br.Peek(1)
		if err != nil || peek[0] != '#' {
			if errors.Is(err, io.EOF) {
				return meta, nil
			}
			return meta, err
		}
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(strings.TrimSpace(line), "#"), ":")
		if ok {
			meta[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
		}
	}
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

var datePattern = regexp.MustCompile(`^\d{1,4}-\d{1,2}-\d{1,2}`)

// timeConverter turns time cells into offsets. Dates are counted from the
// origin of the units, which default to days since the first date seen.
type timeConverter struct {
	cal    calendar.Calendar
	units  string
	parsed *calendar.Units
}

func (tc *timeConverter) offset(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if !datePattern.MatchString(cell) {
		if tc.units == "" {
			return 0, fmt.Errorf("numeric time %q needs a units comment", cell)
		}
		return strconv.ParseFloat(cell, 64)
	}

	date, err := calendar.ParseDate(strings.Fields(strings.Replace(cell, "T", " ", 1))[0])
	if err != nil {
		return 0, err
	}
	if tc.units == "" {
		tc.units = fmt.Sprintf("days since %04d-%02d-%02d", date.Year, date.Month, date.Day)
	}
	if tc.parsed == nil {
		units, err := calendar.ParseUnits(tc.units)
		if err != nil {
			return 0, err
		}
		tc.parsed = &units
	}
	days := tc.cal.DaysBetween(tc.parsed.Origin.Date, date)
	return float64(days) * 86400 / tc.parsed.UnitSeconds, nil
}
