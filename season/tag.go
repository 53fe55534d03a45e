// Package season assigns meteorological seasons to the samples of a time
// series and extracts per-season sample sets from it.
package season

import (
	"context"
	"fmt"

	"github.com/uyouii/kstail/calendar"
	"github.com/uyouii/kstail/model"
	"github.com/uyouii/kstail/utils"
	"go.uber.org/zap"
)

// Tag returns one season per time sample of ts, aligned with ts.Offsets.
func Tag(ctx context.Context, ts *model.TimeSeries) ([]model.Season, error) {
	logger := utils.GetLogger(ctx)

	units, err := calendar.ParseUnits(ts.Units)
	if err != nil {
		return nil, fmt.Errorf("tag %q: %w", ts.Variable, err)
	}
	cal := calendar.Resolve(ts.Calendar)

	tags := make([]model.Season, len(ts.Offsets))
	for i, offset := range ts.Offsets {
		tags[i] = model.SeasonOf(cal.Month(units.Origin, units.Seconds(offset)))
	}

	logger.Debug("tagged series", zap.String("variable", ts.Variable),
		zap.Stringer("calendar", cal.Kind()), zap.Any("counts", Counts(tags)))
	return tags, nil
}

// Counts returns the number of samples per season.
func Counts(tags []model.Season) map[model.Season]int {
	res := map[model.Season]int{}
	for _, tag := range tags {
		res[tag]++
	}
	return res
}
